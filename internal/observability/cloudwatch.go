package observability

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"go.uber.org/zap"
)

// maxDatumsPerPut is the PutMetricData batch limit.
const maxDatumsPerPut = 1000

// CloudWatchAPI is the part of the CloudWatch client the publisher uses.
type CloudWatchAPI interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// CloudWatchPublisher pushes the collector's counters to CloudWatch. Lambda
// functions have no scrape endpoint, so each invocation flushes what its
// counters grew by since the previous flush.
type CloudWatchPublisher struct {
	client    CloudWatchAPI
	namespace string
	gatherer  prometheus.Gatherer
	logger    *zap.Logger
	now       func() time.Time

	mu   sync.Mutex
	sent map[string]float64
}

// NewCloudWatchPublisher publishes the counters of c under namespace.
func NewCloudWatchPublisher(client CloudWatchAPI, namespace string, c *Collector, logger *zap.Logger) *CloudWatchPublisher {
	return &CloudWatchPublisher{
		client:    client,
		namespace: namespace,
		gatherer:  c.Registry(),
		logger:    logger,
		now:       time.Now,
		sent:      make(map[string]float64),
	}
}

type pendingDatum struct {
	key   string
	total float64
	datum types.MetricDatum
}

// Flush sends counter deltas. A nil publisher does nothing, which is how
// local runs without a namespace are wired. Deltas that fail to send are
// retried on the next flush.
func (p *CloudWatchPublisher) Flush(ctx context.Context) error {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	families, err := p.gatherer.Gather()
	if err != nil {
		return err
	}

	now := aws.Time(p.now())
	var pending []pendingDatum
	for _, family := range families {
		if family.GetType() != dto.MetricType_COUNTER {
			continue
		}
		for _, m := range family.GetMetric() {
			key := seriesKey(family.GetName(), m.GetLabel())
			total := m.GetCounter().GetValue()
			delta := total - p.sent[key]
			if delta <= 0 {
				continue
			}
			pending = append(pending, pendingDatum{
				key:   key,
				total: total,
				datum: types.MetricDatum{
					MetricName: aws.String(family.GetName()),
					Dimensions: dimensions(m.GetLabel()),
					Value:      aws.Float64(delta),
					Unit:       types.StandardUnitCount,
					Timestamp:  now,
				},
			})
		}
	}

	for start := 0; start < len(pending); start += maxDatumsPerPut {
		batch := pending[start:min(start+maxDatumsPerPut, len(pending))]
		data := make([]types.MetricDatum, len(batch))
		for i, d := range batch {
			data[i] = d.datum
		}
		if _, err := p.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
			Namespace:  aws.String(p.namespace),
			MetricData: data,
		}); err != nil {
			p.logger.Warn("Failed to publish metrics to CloudWatch", zap.Int("datums", len(data)), zap.Error(err))
			return err
		}
		for _, d := range batch {
			p.sent[d.key] = d.total
		}
	}
	return nil
}

func dimensions(labels []*dto.LabelPair) []types.Dimension {
	dims := make([]types.Dimension, 0, len(labels))
	for _, l := range labels {
		dims = append(dims, types.Dimension{Name: aws.String(l.GetName()), Value: aws.String(l.GetValue())})
	}
	return dims
}

func seriesKey(name string, labels []*dto.LabelPair) string {
	parts := make([]string, 0, len(labels))
	for _, l := range labels {
		parts = append(parts, l.GetName()+"="+l.GetValue())
	}
	sort.Strings(parts)
	return name + "{" + strings.Join(parts, ",") + "}"
}

package observability

import (
	"context"
	"net/http"

	"github.com/aws/aws-xray-sdk-go/xray"
)

// Tracer records X-Ray subsegments. A nil or disabled tracer runs work
// untraced.
type Tracer struct {
	serviceName string
	enabled     bool
}

// NewTracer creates a tracer for serviceName.
func NewTracer(serviceName string, enabled bool) *Tracer {
	return &Tracer{serviceName: serviceName, enabled: enabled}
}

// Enabled reports whether spans are recorded.
func (t *Tracer) Enabled() bool { return t != nil && t.enabled }

// Trace runs fn inside a subsegment and records its error.
func (t *Tracer) Trace(ctx context.Context, name string, fn func(context.Context) error) error {
	if !t.Enabled() {
		return fn(ctx)
	}
	ctx, seg := xray.BeginSubsegment(ctx, name)
	err := fn(ctx)
	if seg != nil {
		seg.Close(err)
	}
	return err
}

// Handler opens a segment per request for servers outside Lambda, where the
// runtime does not open one.
func (t *Tracer) Handler(next http.Handler) http.Handler {
	if !t.Enabled() {
		return next
	}
	return xray.Handler(xray.NewFixedSegmentNamer(t.serviceName), next)
}

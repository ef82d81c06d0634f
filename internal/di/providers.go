package di

import (
	"context"

	"awsugmdu-backend/internal/assets"
	"awsugmdu-backend/internal/config"
	"awsugmdu-backend/internal/events"
	"awsugmdu-backend/internal/handlers"
	"awsugmdu-backend/internal/notify"
	"awsugmdu-backend/internal/observability"
	"awsugmdu-backend/internal/repository"
	"awsugmdu-backend/internal/repository/ddb"
	"awsugmdu-backend/internal/repository/memory"
	svc "awsugmdu-backend/internal/service"
	"awsugmdu-backend/internal/service/certification"
	"awsugmdu-backend/internal/service/sprint"
	"awsugmdu-backend/internal/service/store"
	"awsugmdu-backend/internal/service/user"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscloudwatch "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	awssesv2 "github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-xray-sdk-go/instrumentation/awsv2"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Storage is the set of repositories of one backend.
type Storage struct {
	Sprints      repository.SprintStore
	Groups       repository.GroupStore
	Items        repository.ItemStore
	Orders       repository.OrderStore
	Users        repository.UserStore
	Transactions repository.Transactions
}

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	var zcfg zap.Config
	if cfg.IsProduction() {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
	}

	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	zcfg.Level = level
	return zcfg.Build()
}

// ProvideAWSConfig creates AWS configuration. With tracing on, every client
// built from it records X-Ray subsegments.
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
	if err != nil {
		return aws.Config{}, err
	}
	if cfg.TracingEnabled {
		awsv2.AWSV2Instrumentor(&awsCfg.APIOptions)
	}
	return awsCfg, nil
}

// ProvideStorage builds the DynamoDB repositories, or an in-memory store for
// local runs.
func ProvideStorage(cfg *config.Config, awsCfg aws.Config, logger *zap.Logger) *Storage {
	if cfg.StorageBackend == config.StorageMemory {
		logger.Warn("Using in-memory storage; data is lost on restart")
		st := memory.New()
		return &Storage{
			Sprints:      st.Sprints,
			Groups:       st.Groups,
			Items:        st.Items,
			Orders:       st.Orders,
			Users:        st.Users,
			Transactions: st,
		}
	}

	client := awsdynamodb.NewFromConfig(awsCfg)
	sprints := ddb.NewSprintTable(client, cfg.Tables.Sprints)
	items := ddb.NewItemTable(client, cfg.Tables.StoreItems)
	orders := ddb.NewOrderTable(client, cfg.Tables.StoreOrders)
	users := ddb.NewUsers(client, cfg.Tables.Users)
	return &Storage{
		Sprints:      sprints,
		Groups:       ddb.NewGroupTable(client, cfg.Tables.CertificationGroups),
		Items:        items,
		Orders:       orders,
		Users:        users,
		Transactions: ddb.NewTransactions(client, users, sprints, items, orders, logger),
	}
}

// ProvideMetrics creates the application's metrics collector.
func ProvideMetrics() *observability.Collector {
	return observability.NewCollector("awsugmdu")
}

// ProvideCloudWatchPublisher pushes the collector's counters to CloudWatch
// when a namespace is configured. It returns nil otherwise, and a nil
// publisher's Flush is a no-op.
func ProvideCloudWatchPublisher(
	cfg *config.Config,
	awsCfg aws.Config,
	metrics *observability.Collector,
	logger *zap.Logger,
) *observability.CloudWatchPublisher {
	if cfg.CloudWatchNamespace == "" {
		return nil
	}
	return observability.NewCloudWatchPublisher(awscloudwatch.NewFromConfig(awsCfg), cfg.CloudWatchNamespace, metrics, logger)
}

// ProvideTracer creates the X-Ray tracer.
func ProvideTracer(cfg *config.Config) *observability.Tracer {
	return observability.NewTracer("awsugmdu-"+cfg.APISurface, cfg.TracingEnabled)
}

// ProvideNotifier sends email through SES when a sender address is
// configured, and only logs it otherwise.
func ProvideNotifier(cfg *config.Config, awsCfg aws.Config, logger *zap.Logger) (notify.Notifier, error) {
	templates, err := notify.NewTemplates()
	if err != nil {
		return nil, err
	}

	var sender notify.Sender
	if cfg.SESFromEmail != "" {
		sender = notify.NewSESSender(awssesv2.NewFromConfig(awsCfg), cfg.SESFromEmail, cfg.SESConfigurationSet, logger)
	} else {
		logger.Info("SES_FROM_EMAIL not set; emails will only be logged")
		sender = notify.NewLogSender(logger)
	}
	return notify.NewMailer(templates, sender, logger), nil
}

// ProvidePublisher publishes to EventBridge when a bus is configured.
func ProvidePublisher(cfg *config.Config, awsCfg aws.Config, logger *zap.Logger) events.Publisher {
	if cfg.EventBusName == "" {
		return events.NopPublisher{}
	}
	return events.NewEventBridgePublisher(awseventbridge.NewFromConfig(awsCfg), cfg.EventBusName, logger)
}

// ProvideImageUploads presigns store image uploads into the assets bucket.
func ProvideImageUploads(cfg *config.Config, awsCfg aws.Config) *assets.ImageUploads {
	presigner := awss3.NewPresignClient(awss3.NewFromConfig(awsCfg))
	return assets.NewImageUploads(presigner, cfg.StoreAssetsBucket, cfg.AWSRegion, cfg.UploadURLTTL())
}

func ProvideServiceDeps(
	logger *zap.Logger,
	metrics *observability.Collector,
	notifier notify.Notifier,
	publisher events.Publisher,
	tracer *observability.Tracer,
) svc.Deps {
	deps := svc.NewDeps(logger, metrics, notifier, publisher)
	deps.Tracer = tracer
	return deps
}

func ProvideSprintService(cfg *config.Config, storage *Storage, deps svc.Deps) sprint.Service {
	return sprint.NewService(storage.Sprints, storage.Users, storage.Transactions, deps, sprint.Options{
		StatusWriteBack: cfg.SprintStatusWriteBack,
	})
}

func ProvideCertificationService(storage *Storage, deps svc.Deps) certification.Service {
	return certification.NewService(storage.Groups, deps)
}

func ProvideStoreService(storage *Storage, uploads *assets.ImageUploads, deps svc.Deps) store.Service {
	return store.NewService(storage.Items, storage.Orders, storage.Users, storage.Transactions, uploads, deps)
}

func ProvideUserService(storage *Storage, deps svc.Deps) user.Service {
	return user.NewService(storage.Users, deps)
}

// ProvideHTTPHandler builds the router for the configured API surface.
func ProvideHTTPHandler(
	cfg *config.Config,
	services handlers.Services,
	metrics *observability.Collector,
	logger *zap.Logger,
) *chi.Mux {
	return handlers.NewRouter(cfg, services, metrics, logger).Setup()
}

// Command lambda serves the HTTP API behind API Gateway (HTTP API, payload
// v2). API_SURFACE selects which route group this function answers.
package main

import (
	"context"
	"log"
	"time"

	"awsugmdu-backend/internal/config"
	"awsugmdu-backend/internal/di"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	chiadapter "github.com/awslabs/aws-lambda-go-api-proxy/chi"
	"go.uber.org/zap"
)

var (
	chiLambda *chiadapter.ChiLambdaV2
	container *di.Container
	coldStart = true
)

func init() {
	start := time.Now()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	container, err = di.InitializeContainer(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}
	chiLambda = chiadapter.NewV2(container.Handler)

	container.Logger.Info("Lambda cold start completed",
		zap.String("surface", cfg.APISurface),
		zap.Duration("duration", time.Since(start)),
	)
}

// Handler is the Lambda function handler
func Handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	defer container.FlushMetrics(ctx)

	resp, err := chiLambda.ProxyWithContextV2(ctx, req)
	if err != nil {
		container.Logger.Error("Failed to proxy request",
			zap.String("requestID", req.RequestContext.RequestID),
			zap.String("path", req.RawPath),
			zap.Error(err),
		)
		return resp, err
	}

	if resp.Headers == nil {
		resp.Headers = make(map[string]string)
	}
	if coldStart {
		resp.Headers["X-Cold-Start"] = "true"
		coldStart = false
	}
	if req.RequestContext.RequestID != "" {
		resp.Headers["X-Request-ID"] = req.RequestContext.RequestID
	}
	return resp, nil
}

func main() {
	defer container.Shutdown()
	lambda.Start(Handler)
}

package main

import (
	"context"
	"log"

	"github.com/Quan024/Phan-loai-bao/infrastructure/config"
	"github.com/Quan024/Phan-loai-bao/infrastructure/di"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	chiadapter "github.com/awslabs/aws-lambda-go-api-proxy/chi"
	"go.uber.org/zap"
)

var chiLambda *chiadapter.ChiLambdaV2

// The graph lives for the lifetime of the execution environment, so
// papers added by one invocation are visible to the next warm one.
func init() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	container, err := di.InitializeContainer(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}

	chiLambda = chiadapter.NewV2(container.Router)

	container.Logger.Info("Service initialized successfully",
		zap.Int("nodes", container.Graph.NodeCount()),
	)
}

// Handler proxies API Gateway HTTP API events to the chi router
func Handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	return chiLambda.ProxyWithContextV2(ctx, req)
}

func main() {
	lambda.Start(Handler)
}

package main

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/rs/zerolog/log"

	"imgmeta/internal/app"
	"imgmeta/internal/config"
	"imgmeta/internal/logger"
)

var ginLambda *ginadapter.GinLambda

// handler proxies an API Gateway event through the gin router.
func handler(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	return ginLambda.ProxyWithContext(ctx, req)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	logger.Init(&cfg.Log)

	// The store and clients live for the lifetime of the execution
	// environment and are reused across invocations.
	a, err := app.New(context.Background(), cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize application")
	}
	ginLambda = ginadapter.New(a.Router)

	lambda.Start(handler)
}

// Lambda entrypoint for POST /users/batch-delete.
package main

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/araozmd/ancdotario-user-service/internal/app"
	"github.com/araozmd/ancdotario-user-service/internal/config"
	"github.com/araozmd/ancdotario-user-service/internal/handler"
	pkglog "github.com/araozmd/ancdotario-user-service/pkg/log"
)

var h *handler.LambdaHandler

func init() {
	ctx := context.Background()

	cfg, err := config.Load(ctx)
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}
	pkglog.Init(cfg.Log)

	container, err := app.NewContainer(ctx, cfg)
	if err != nil {
		panic("failed to initialize application: " + err.Error())
	}

	h = handler.NewLambdaHandler(container.Users, container.Photos, container.Provider)
}

func main() {
	lambda.Start(h.BatchDelete)
}

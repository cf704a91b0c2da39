package main

import (
	"log"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"cleancare-loyalty/pkg/config"
	"cleancare-loyalty/pkg/db"
	"cleancare-loyalty/pkg/logger"
	"cleancare-loyalty/pkg/profiling"
	"cleancare-loyalty/pkg/redis"
	"cleancare-loyalty/pkg/sequence"
	"cleancare-loyalty/pkg/task"
	"cleancare-loyalty/services/ledger"
	"cleancare-loyalty/services/member"
	"cleancare-loyalty/services/notification"
	sweep "cleancare-loyalty/services/task"
)

func main() {
	opts := []fx.Option{
		config.Module,
		logger.Module,
		profiling.Module,
		db.Module,
		redis.Module,
		task.Client,
		sequence.Module,
		fx.Provide(provideSnowflakeNode),
		member.Module,
		ledger.Module,
		notification.Module,
		notification.WorkerModule,
		sweep.Module,
		task.Server,
		fxLogger,
	}

	if err := fx.ValidateApp(opts...); err != nil {
		log.Fatalf("fx validation failed: %v", err)
	}

	app := fx.New(opts...)

	app.Run()
}

var fxLogger = fx.WithLogger(func(cfg *config.Config, logger *zap.Logger) fxevent.Logger {
	return fxevent.NopLogger
})

func provideSnowflakeNode() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}

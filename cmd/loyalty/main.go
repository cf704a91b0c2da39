package main

import (
	"log"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"cleancare-loyalty/pkg/config"
	"cleancare-loyalty/pkg/db"
	"cleancare-loyalty/pkg/health"
	"cleancare-loyalty/pkg/logger"
	"cleancare-loyalty/pkg/profiling"
	"cleancare-loyalty/pkg/redis"
	"cleancare-loyalty/pkg/sequence"
	"cleancare-loyalty/pkg/server"
	"cleancare-loyalty/pkg/task"
	"cleancare-loyalty/services/ledger"
	"cleancare-loyalty/services/member"
	"cleancare-loyalty/services/notification"
	"cleancare-loyalty/services/order"
	"cleancare-loyalty/services/pending"
	"cleancare-loyalty/services/reconcile"
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
		fx.Provide(
			provideTracerProvider,
			provideSnowflakeNode,
		),
		fx.Invoke(autoMigrate, registerDBPlugins),
		member.Module,
		ledger.Module,
		ledger.Gateway,
		pending.Module,
		pending.Gateway,
		order.Module,
		order.Gateway,
		notification.Module,
		reconcile.Module,
		reconcile.Gateway,
		health.Module,
		server.ProvideHTTPServer,
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

func provideTracerProvider() trace.TracerProvider {
	return otel.GetTracerProvider()
}

func provideSnowflakeNode() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}

func registerDBPlugins(gdb *gorm.DB, cfg *config.Config) error {
	if err := db.Otel(gdb); err != nil {
		return err
	}
	return db.Metric(gdb, cfg.Database.DBNAME)
}

func autoMigrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&member.Member{},
		&ledger.LedgerEntry{},
		&ledger.MemberBalance{},
		&pending.PendingAward{},
		&order.Order{},
		&order.OrderItem{},
		&notification.Notification{},
		&sweep.SweepRun{},
	)
}

package main

import (
	"log"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"loyalty-connector/internal/httpapi"
	"loyalty-connector/pkg/config"
	"loyalty-connector/pkg/couponcode"
	"loyalty-connector/pkg/db"
	"loyalty-connector/pkg/featureflags"
	"loyalty-connector/pkg/health"
	"loyalty-connector/pkg/lock"
	"loyalty-connector/pkg/logger"
	"loyalty-connector/pkg/loyalty"
	"loyalty-connector/pkg/otelcol"
	"loyalty-connector/pkg/profiling"
	"loyalty-connector/pkg/redis"
	"loyalty-connector/pkg/secretmanager"
	"loyalty-connector/pkg/server"
	"loyalty-connector/pkg/task"
	"loyalty-connector/services/forwarder"
	"loyalty-connector/services/host"
	"loyalty-connector/services/identity"
	"loyalty-connector/services/ordertask"
	"loyalty-connector/services/redemption"
	"loyalty-connector/services/shortcode"
)

func main() {
	opts := []fx.Option{
		secretmanager.Module,
		config.Module,
		logger.Module,
		otelcol.Module,
		profiling.Module,
		db.Module,
		lock.Module,
		couponcode.Module,
		featureflags.Module,
		loyalty.Module,
		host.Module,
		identity.Module,
		forwarder.Module,
		redemption.Module,
		shortcode.Module,
		health.Module,
		httpapi.Module,
		server.ProvideHTTPServer,
		fxLogger,
	}

	// Redis backed modules are only wired when an address is configured.
	if config.RedisEnabled() {
		opts = append(opts,
			redis.Module,
			task.Client,
			task.Server,
			ordertask.Module,
			ordertask.WorkerModule,
		)
	}

	if err := fx.ValidateApp(opts...); err != nil {
		log.Fatalf("fx validation failed: %v", err)
	}

	app := fx.New(opts...)

	app.Run()
}

var fxLogger = fx.WithLogger(func(cfg *config.Config, logger *zap.Logger) fxevent.Logger {
	if cfg.IsProduction() {
		return fxevent.NopLogger
	}
	return &fxevent.ZapLogger{Logger: logger}
})

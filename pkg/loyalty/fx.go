package loyalty

import (
	"loyalty-connector/pkg/config"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("loyalty.gateway",
	fx.Provide(ProvideGateway),
)

func ProvideGateway(cfg *config.Config) Gateway {
	zap.L().Info("loyalty gateway configured",
		zap.String("base_url", cfg.Loyalty.BaseURL),
		zap.String("auth_scheme", cfg.Loyalty.AuthScheme),
		zap.Int("retry_count", cfg.Loyalty.RetryCount),
	)

	return NewClient(Config{
		BaseURL:    cfg.Loyalty.BaseURL,
		APIKey:     cfg.Loyalty.APIKey,
		APISecret:  cfg.Loyalty.APISecret,
		AuthScheme: cfg.Loyalty.AuthScheme,
		Timeout:    cfg.Loyalty.Timeout,
		RetryCount: cfg.Loyalty.RetryCount,
	})
}

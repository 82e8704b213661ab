package featureflags

import (
	"context"

	"loyalty-connector/pkg/config"

	"github.com/Flagsmith/flagsmith-go-client/v2"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("featureflags", fx.Provide(ProvideFeatureFlag))

const (
	// RedemptionCustomerScoped switches a customer to server-side eligibility queries.
	RedemptionCustomerScoped = "redemption_customer_scoped"
)

type FeatureFlag interface {
	Enabled(ctx context.Context, identifier, feature string, fallback bool) bool
}

type featureflag struct {
	client *flagsmith.Client
}

type FeatureParams struct {
	fx.In
	Config *config.Config
}

// ProvideFeatureFlag returns a flag source that answers with the fallback when Flagsmith is not configured.
func ProvideFeatureFlag(p FeatureParams) FeatureFlag {
	if p.Config.Flagsmith.ApiKey == "" {
		return Static{}
	}

	var opts []flagsmith.Option
	if p.Config.Flagsmith.Addr != "" {
		opts = append(opts, flagsmith.WithBaseURL(p.Config.Flagsmith.Addr))
	}

	return &featureflag{
		client: flagsmith.NewClient(p.Config.Flagsmith.ApiKey, opts...),
	}
}

func (s *featureflag) Enabled(ctx context.Context, identifier, feature string, fallback bool) bool {
	zapLog := zap.L().With(zap.String("feature", feature), zap.String("identifier", identifier))

	flags, err := s.client.GetIdentityFlags(identifier, nil)
	if err != nil {
		zapLog.Warn("failed to fetch identity flags", zap.Error(err))
		return fallback
	}

	enabled, err := flags.IsFeatureEnabled(feature)
	if err != nil {
		zapLog.Debug("feature flag not found", zap.Error(err))
		return fallback
	}
	return enabled
}

// Static answers from a fixed map, falling back for unknown features.
type Static map[string]bool

func (s Static) Enabled(_ context.Context, _, feature string, fallback bool) bool {
	if v, ok := s[feature]; ok {
		return v
	}
	return fallback
}

package featureflags

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"loyalty-connector/pkg/config"
)

func TestProvideWithoutAPIKeyUsesFallback(t *testing.T) {
	ff := ProvideFeatureFlag(FeatureParams{Config: &config.Config{}})

	require.True(t, ff.Enabled(context.Background(), "1001", RedemptionCustomerScoped, true))
	require.False(t, ff.Enabled(context.Background(), "1001", RedemptionCustomerScoped, false))
}

func TestStatic(t *testing.T) {
	ff := Static{RedemptionCustomerScoped: true}
	require.True(t, ff.Enabled(context.Background(), "x", RedemptionCustomerScoped, false))
	require.False(t, ff.Enabled(context.Background(), "x", "other", false))
}

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(redemptions.WithLabelValues("success"))
	Redemption("success")
	require.Equal(t, before+1, testutil.ToFloat64(redemptions.WithLabelValues("success")))

	before = testutil.ToFloat64(eventsForwarded.WithLabelValues("failed"))
	EventForwarded("failed")
	require.Equal(t, before+1, testutil.ToFloat64(eventsForwarded.WithLabelValues("failed")))
}

func TestObserveGatewayRequest(t *testing.T) {
	ObserveGatewayRequest("send_event", "success", 15*time.Millisecond)
	require.GreaterOrEqual(t, testutil.CollectAndCount(gatewayDuration), 1)
}

package rediskey

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildRedemptionLockKey(t *testing.T) {
	require.Equal(t, "loyalty:redemption:lock:C-42", BuildRedemptionLockKey("C-42"))
}

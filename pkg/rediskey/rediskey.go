package rediskey

import "fmt"

const (
	RedemptionLockPrefix = "loyalty:redemption:lock"
)

func NamespaceKey(namespace, key string) string {
	return fmt.Sprintf("%s:%s", namespace, key)
}

// BuildRedemptionLockKey returns "loyalty:redemption:lock:{remoteCustomerID}"
func BuildRedemptionLockKey(remoteCustomerID string) string {
	return NamespaceKey(RedemptionLockPrefix, remoteCustomerID)
}

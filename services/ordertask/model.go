package ordertask

const (
	TypeOrderCompleted = "loyalty:order_completed"
)

type OrderCompletedPayload struct {
	OrderID string `json:"order_id"`
	TraceID string `json:"trace_id,omitempty"`
}

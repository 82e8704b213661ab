package forwarder

type Status string

var (
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

func (s Status) String() string {
	return string(s)
}

// Result reports what happened to a forwarded event. Callers are free to ignore it.
type Result struct {
	Status           Status `json:"status"`
	RemoteCustomerID string `json:"remote_customer_id,omitempty"`
	Err              error  `json:"-"`
}

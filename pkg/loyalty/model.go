package loyalty

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

type EventType string

var (
	EventOrder    EventType = "order"
	EventSignup   EventType = "signup"
	EventReview   EventType = "review"
	EventReferral EventType = "referral"
)

func (t EventType) String() string {
	return string(t)
}

// RemoteID is the loyalty service's customer key. The service has sent it both as a
// JSON number and as a string, so both decode.
type RemoteID string

func (id *RemoteID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = RemoteID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("remote id: %w", err)
	}
	*id = RemoteID(n.String())
	return nil
}

func (id RemoteID) String() string {
	return string(id)
}

// Points accepts a JSON number or a numeric string; fractions are truncated.
type Points int64

func (p *Points) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) || bytes.Equal(b, []byte(`""`)) {
		*p = 0
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		b = []byte(s)
	}
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("points: %w", err)
	}
	*p = Points(int64(f))
	return nil
}

func (p Points) Int64() int64 {
	return int64(p)
}

// CustomerFields is the customer record sent inline with events and on create.
type CustomerFields struct {
	ExternalID string `json:"external_id,omitempty"`
	Email      string `json:"email,omitempty"`
	FirstName  string `json:"first_name,omitempty"`
	LastName   string `json:"last_name,omitempty"`
}

func (c CustomerFields) IsZero() bool {
	return c == CustomerFields{}
}

type Customer struct {
	ID            RemoteID `json:"id"`
	ExternalID    string   `json:"external_id,omitempty"`
	Email         string   `json:"email,omitempty"`
	FirstName     string   `json:"first_name,omitempty"`
	LastName      string   `json:"last_name,omitempty"`
	PointsBalance Points   `json:"points_balance"`
}

type Event struct {
	EventType  EventType
	Customer   *CustomerFields
	CustomerID string
	Data       Data
	ExternalID string
	Sources    []string
}

// eventPayload is the body of POST /events. Exactly one of Customer and CustomerID is set.
type eventPayload struct {
	EventType  EventType       `json:"event_type"`
	Data       map[string]any  `json:"data"`
	Customer   *CustomerFields `json:"customer,omitempty"`
	CustomerID string          `json:"customer_id,omitempty"`
	ExternalID string          `json:"external_id,omitempty"`
	Sources    []string        `json:"sources,omitempty"`
}

type EventResponse struct {
	ID         RemoteID  `json:"id"`
	EventType  EventType `json:"event_type,omitempty"`
	CustomerID RemoteID  `json:"customer_id,omitempty"`
	Customer   *Customer `json:"customer,omitempty"`
}

// RemoteCustomerID returns the customer id the service attached to the event, if any.
func (r *EventResponse) RemoteCustomerID() string {
	if r == nil {
		return ""
	}
	if r.Customer != nil && r.Customer.ID != "" {
		return r.Customer.ID.String()
	}
	return r.CustomerID.String()
}

const (
	ExchangeFixed       = "fixed"
	MethodFixedDiscount = "fixed_discount"
)

type DiscountType string

var (
	FixedCart      DiscountType = "fixed_cart"
	Percent        DiscountType = "percent"
	FixedProduct   DiscountType = "fixed_product"
	PercentProduct DiscountType = "percent_product"
)

func (t DiscountType) String() string {
	switch t {
	case FixedCart, Percent, FixedProduct, PercentProduct:
		return string(t)
	default:
		return ""
	}
}

type PointsExchange struct {
	Type         string `json:"type"`
	PointsAmount Points `json:"points_amount"`
}

type RedemptionMethod struct {
	Type           string       `json:"type"`
	DiscountType   DiscountType `json:"discount_type"`
	Value          float64      `json:"value"`
	UsageLimit     int          `json:"usage_limit,omitempty"`
	IndividualUse  bool         `json:"individual_use,omitempty"`
	FreeShipping   bool         `json:"free_shipping,omitempty"`
	ExpiryDate     string       `json:"expiry_date,omitempty"`
	ApplyBeforeTax bool         `json:"apply_before_tax,omitempty"`
}

type RedemptionOption struct {
	ID               RemoteID         `json:"id"`
	Name             string           `json:"name"`
	PointsExchange   PointsExchange   `json:"points_exchange"`
	RedemptionMethod RedemptionMethod `json:"redemption_method"`
}

type redemptionOptionList struct {
	Contents []RedemptionOption `json:"_contents"`
}

type redemptionPayload struct {
	PointsAmount       int64  `json:"points_amount"`
	RedemptionOptionID string `json:"redemption_option_id"`
}

type Transaction struct {
	ID                 RemoteID `json:"id"`
	CustomerID         RemoteID `json:"customer_id,omitempty"`
	RedemptionOptionID RemoteID `json:"redemption_option_id,omitempty"`
	PointsChange       *Points  `json:"points_change,omitempty"`
	PointsBalance      *Points  `json:"points_balance,omitempty"`
}

// Delta is the signed points change of the transaction.
func (t *Transaction) Delta() int64 {
	if t == nil || t.PointsChange == nil {
		return 0
	}
	return t.PointsChange.Int64()
}

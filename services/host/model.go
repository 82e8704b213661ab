package host

import (
	"time"

	"gorm.io/datatypes"
)

// RemoteCustomerIDKey is the user meta key holding the loyalty service customer id.
const RemoteCustomerIDKey = "st_loyalty_remote_customer_id"

type User struct {
	ID        string    `gorm:"column:id;primaryKey" json:"id"`
	Email     string    `gorm:"column:email;index" json:"email"`
	FirstName string    `gorm:"column:first_name" json:"first_name"`
	LastName  string    `gorm:"column:last_name" json:"last_name"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
}

func (User) TableName() string {
	return "host_users"
}

type UserMeta struct {
	UserID    string    `gorm:"column:user_id;primaryKey" json:"user_id"`
	MetaKey   string    `gorm:"column:meta_key;primaryKey" json:"meta_key"`
	MetaValue string    `gorm:"column:meta_value" json:"meta_value"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (UserMeta) TableName() string {
	return "host_user_meta"
}

type OrderStatus string

var (
	OrderPending    OrderStatus = "pending"
	OrderProcessing OrderStatus = "processing"
	OrderCompleted  OrderStatus = "completed"
	OrderCancelled  OrderStatus = "cancelled"
)

func (s OrderStatus) String() string {
	switch s {
	case OrderPending, OrderProcessing, OrderCompleted, OrderCancelled:
		return string(s)
	default:
		return ""
	}
}

type Order struct {
	ID               string         `gorm:"column:id;primaryKey" json:"id"`
	UserID           *string        `gorm:"column:user_id;index" json:"customer_user,omitempty"`
	Status           OrderStatus    `gorm:"column:status" json:"status"`
	Currency         string         `gorm:"column:currency" json:"currency"`
	Total            float64        `gorm:"column:total" json:"total"`
	DiscountTotal    float64        `gorm:"column:discount_total" json:"discount_total"`
	BillingFirstName string         `gorm:"column:billing_first_name" json:"billing_first_name"`
	BillingLastName  string         `gorm:"column:billing_last_name" json:"billing_last_name"`
	BillingEmail     string         `gorm:"column:billing_email" json:"billing_email"`
	LineItems        datatypes.JSON `gorm:"column:line_items" json:"line_items,omitempty"`
	Meta             datatypes.JSON `gorm:"column:meta" json:"meta,omitempty"`
	CompletedAt      *time.Time     `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CreatedAt        time.Time      `gorm:"column:created_at" json:"created_at"`
}

func (Order) TableName() string {
	return "host_orders"
}

// IsGuest reports whether the order was placed without an account.
func (o *Order) IsGuest() bool {
	return o.UserID == nil || *o.UserID == ""
}

type Coupon struct {
	ID                  int64      `gorm:"column:id;primaryKey;autoIncrement:false" json:"id"`
	Code                string     `gorm:"column:code;uniqueIndex;size:64" json:"code"`
	DiscountType        string     `gorm:"column:discount_type" json:"discount_type"`
	Amount              float64    `gorm:"column:amount" json:"amount"`
	UsageLimit          int        `gorm:"column:usage_limit" json:"usage_limit"`
	IndividualUse       bool       `gorm:"column:individual_use" json:"individual_use"`
	FreeShipping        bool       `gorm:"column:free_shipping" json:"free_shipping"`
	ApplyBeforeTax      bool       `gorm:"column:apply_before_tax" json:"apply_before_tax"`
	ExpiryDate          *time.Time `gorm:"column:expiry_date" json:"expiry_date,omitempty"`
	CustomerEmail       string     `gorm:"column:customer_email" json:"customer_email"`
	UserID              string     `gorm:"column:user_id;index" json:"user_id"`
	RemoteCustomerID    string     `gorm:"column:remote_customer_id" json:"remote_customer_id"`
	RedemptionOptionID  string     `gorm:"column:redemption_option_id" json:"redemption_option_id"`
	RemoteTransactionID string     `gorm:"column:remote_transaction_id" json:"remote_transaction_id"`
	CreatedAt           time.Time  `gorm:"column:created_at" json:"created_at"`
}

func (Coupon) TableName() string {
	return "host_coupons"
}

// ReconciliationItem records a debit the loyalty service committed without a local coupon.
type ReconciliationItem struct {
	ID                  int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	UserID              string    `gorm:"column:user_id" json:"user_id"`
	RemoteCustomerID    string    `gorm:"column:remote_customer_id;index" json:"remote_customer_id"`
	RemoteTransactionID string    `gorm:"column:remote_transaction_id" json:"remote_transaction_id"`
	RedemptionOptionID  string    `gorm:"column:redemption_option_id" json:"redemption_option_id"`
	Points              int64     `gorm:"column:points" json:"points"`
	CouponCode          string    `gorm:"column:coupon_code" json:"coupon_code"`
	Reason              string    `gorm:"column:reason" json:"reason"`
	Resolved            bool      `gorm:"column:resolved" json:"resolved"`
	CreatedAt           time.Time `gorm:"column:created_at" json:"created_at"`
}

func (ReconciliationItem) TableName() string {
	return "loyalty_reconciliations"
}

func Models() []any {
	return []any{&User{}, &UserMeta{}, &Order{}, &Coupon{}, &ReconciliationItem{}}
}

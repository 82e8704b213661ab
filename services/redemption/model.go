package redemption

// Customer-facing messages. Nothing else is ever returned to the browser.
const (
	MsgSelectOption   = "Please select a redemption option."
	MsgNotLoggedIn    = "You must be logged in to redeem points."
	MsgNotEligible    = "You are not eligible for this redemption option."
	MsgUnavailable    = "Your points balance is not available right now. Please try again later."
	MsgUnableToDeduct = "We were unable to deduct points from your account. Please try again later."
	MsgUnableToIssue  = "Your points were redeemed but we could not create your coupon. Please contact us."
	MsgBusy           = "Another redemption is already in progress. Please wait a moment and try again."
	MsgRedeemed       = "Points redeemed! Use your coupon code at checkout."
)

type Mode string

var (
	// ModeBalance filters all options by the customer's current balance.
	ModeBalance Mode = "balance"
	// ModeCustomer asks the loyalty service for the customer's options.
	ModeCustomer Mode = "customer"
)

func (m Mode) String() string {
	switch m {
	case ModeBalance, ModeCustomer:
		return string(m)
	default:
		return ""
	}
}

type Result struct {
	Success    bool   `json:"success"`
	CouponCode string `json:"coupon_code,omitempty"`
	NewBalance *int64 `json:"new_balance,omitempty"`
	Message    string `json:"message,omitempty"`
}

func failure(msg string) Result {
	return Result{Success: false, Message: msg}
}

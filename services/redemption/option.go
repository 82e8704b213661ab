package redemption

import (
	"fmt"
	"strconv"
	"time"

	"loyalty-connector/pkg/loyalty"
)

// Label is the option name, or a generated description for unnamed options.
func Label(opt loyalty.RedemptionOption) string {
	if opt.Name != "" {
		return opt.Name
	}

	amount := strconv.FormatFloat(opt.RedemptionMethod.Value, 'f', -1, 64)
	var discount string
	switch opt.RedemptionMethod.DiscountType {
	case loyalty.Percent:
		discount = amount + "% off of your total order"
	case loyalty.FixedProduct:
		discount = "$" + amount + " on selected products"
	case loyalty.PercentProduct:
		discount = amount + "% off of selected products"
	default:
		discount = "$" + amount + " on your total order"
	}

	return fmt.Sprintf("Deduct %d Points for a discount of %s.", opt.PointsExchange.PointsAmount.Int64(), discount)
}

// supported reports whether the option is a fixed points for fixed discount exchange.
func supported(opt loyalty.RedemptionOption) bool {
	return opt.PointsExchange.Type == loyalty.ExchangeFixed &&
		opt.PointsExchange.PointsAmount > 0 &&
		opt.RedemptionMethod.Type == loyalty.MethodFixedDiscount &&
		opt.RedemptionMethod.DiscountType.String() != "" &&
		opt.RedemptionMethod.Value > 0
}

func affordable(options []loyalty.RedemptionOption, balance int64) []loyalty.RedemptionOption {
	out := make([]loyalty.RedemptionOption, 0, len(options))
	for _, opt := range options {
		if opt.PointsExchange.PointsAmount.Int64() <= balance {
			out = append(out, opt)
		}
	}
	return out
}

func find(options []loyalty.RedemptionOption, id string) (loyalty.RedemptionOption, bool) {
	for _, opt := range options {
		if opt.ID.String() == id {
			return opt, true
		}
	}
	return loyalty.RedemptionOption{}, false
}

var expiryLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"}

func parseExpiry(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	for _, layout := range expiryLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("unrecognised expiry date %q", s)
}

package shortcode

// BalanceAttrs are the placeholders of the points balance fragment.
type BalanceAttrs struct {
	Default     string
	Label       string
	NotLoggedIn string
	ZeroBalance string
}

// FormAttrs configure the redemption form fragment.
type FormAttrs struct {
	FormID      string
	OptionsName string
	AjaxAction  string
	AjaxURL     string
	SubmitLabel string
	NotLoggedIn string
	NoOptions   string
}

type formOption struct {
	ID      string
	InputID string
	Label   string
	Points  int64
}

type formView struct {
	FormAttrs
	Options []formOption
}

package shortcode

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"

	"loyalty-connector/pkg/config"
	"loyalty-connector/services/identity"
	"loyalty-connector/services/redemption"

	"github.com/gosimple/slug"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var formTemplate = template.Must(template.New("redemption-form").Parse(`<form id="{{.FormID}}" class="loyalty-redemption-form" method="post" action="{{.AjaxURL}}" data-action="{{.AjaxAction}}">
{{- range .Options}}
	<p class="loyalty-redemption-option">
		<input type="radio" name="{{$.OptionsName}}" id="{{.InputID}}" value="{{.ID}}" data-points="{{.Points}}">
		<label for="{{.InputID}}">{{.Label}}</label>
	</p>
{{- end}}
	<input type="hidden" name="action" value="{{.AjaxAction}}">
	<button type="submit">{{.SubmitLabel}}</button>
	<div class="loyalty-redemption-message" aria-live="polite"></div>
</form>`))

type Renderer struct {
	balance BalanceAttrs
	form    FormAttrs
}

type RendererParams struct {
	fx.In
	Config *config.Config
}

func NewRenderer(p RendererParams) *Renderer {
	sc := p.Config.Shortcode
	return &Renderer{
		balance: BalanceAttrs{
			Default:     sc.BalanceDefault,
			Label:       sc.BalanceLabel,
			NotLoggedIn: sc.NotLoggedIn,
			ZeroBalance: sc.ZeroBalance,
		},
		form: FormAttrs{
			FormID:      sc.FormID,
			OptionsName: sc.OptionsName,
			AjaxAction:  sc.AjaxAction,
			AjaxURL:     "/ajax",
			SubmitLabel: "Redeem",
			NotLoggedIn: sc.NotLoggedIn,
			NoOptions:   sc.NoOptions,
		},
	}
}

func (r *Renderer) DefaultBalanceAttrs() BalanceAttrs { return r.balance }
func (r *Renderer) DefaultFormAttrs() FormAttrs       { return r.form }

// BalanceFragment renders "<points> <label>", or a placeholder when the balance is not
// shown. An unknown balance is never rendered as zero.
func (r *Renderer) BalanceFragment(ctx context.Context, scope *identity.Scope, attrs BalanceAttrs) template.HTML {
	if scope.Actor().IsGuest() {
		return escape(firstNonEmpty(attrs.NotLoggedIn, attrs.Default))
	}

	balance := scope.Balance(ctx)
	switch {
	case !balance.Known:
		return escape(attrs.Default)
	case balance.Points == 0 && attrs.ZeroBalance != "":
		return escape(attrs.ZeroBalance)
	}

	return escape(strings.TrimSpace(fmt.Sprintf("%d %s", balance.Points, attrs.Label)))
}

func (r *Renderer) RedemptionForm(ctx context.Context, req *redemption.Request, attrs FormAttrs) (template.HTML, error) {
	if req.Scope().Actor().IsGuest() {
		return escape(attrs.NotLoggedIn), nil
	}

	options, err := req.EligibleOptions(ctx)
	if err != nil {
		zap.L().Warn("redemption options unavailable for form", zap.Error(err))
		return escape(attrs.NoOptions), nil
	}
	if len(options) == 0 {
		return escape(attrs.NoOptions), nil
	}

	view := formView{FormAttrs: attrs}
	for _, opt := range options {
		label := redemption.Label(opt)
		view.Options = append(view.Options, formOption{
			ID:      opt.ID.String(),
			InputID: slug.Make(fmt.Sprintf("%s %s %s", attrs.FormID, opt.ID, label)),
			Label:   label,
			Points:  opt.PointsExchange.PointsAmount.Int64(),
		})
	}

	var buf bytes.Buffer
	if err := formTemplate.Execute(&buf, view); err != nil {
		zap.L().Error("failed to render redemption form", zap.Error(err))
		return "", err
	}
	return template.HTML(buf.String()), nil
}

func escape(s string) template.HTML {
	return template.HTML(template.HTMLEscapeString(s))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

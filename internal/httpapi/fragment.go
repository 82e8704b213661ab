package httpapi

import (
	"fmt"
	"html/template"

	"loyalty-connector/pkg/errutil"
	"loyalty-connector/services/shortcode"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

// balanceAttrs overlays shortcode style query attributes on the configured defaults.
func (h *Handler) balanceAttrs(c *gin.Context) shortcode.BalanceAttrs {
	attrs := h.renderer.DefaultBalanceAttrs()
	attrs.Default = c.DefaultQuery("default", attrs.Default)
	attrs.Label = c.DefaultQuery("label", attrs.Label)
	attrs.NotLoggedIn = c.DefaultQuery("not_logged_in", attrs.NotLoggedIn)
	attrs.ZeroBalance = c.DefaultQuery("zero_balance", attrs.ZeroBalance)
	return attrs
}

func (h *Handler) formAttrs(c *gin.Context) shortcode.FormAttrs {
	attrs := h.renderer.DefaultFormAttrs()
	attrs.FormID = c.DefaultQuery("form_id", attrs.FormID)
	attrs.OptionsName = c.DefaultQuery("options_name", attrs.OptionsName)
	attrs.SubmitLabel = c.DefaultQuery("submit_label", attrs.SubmitLabel)
	attrs.NotLoggedIn = c.DefaultQuery("not_logged_in", attrs.NotLoggedIn)
	attrs.NoOptions = c.DefaultQuery("no_options", attrs.NoOptions)
	return attrs
}

// Panel renders the balance and the redemption form side by side. Both fragments share
// one identity scope, so the customer is resolved once.
func (h *Handler) Panel(c *gin.Context) {
	scope := h.scope(c)
	req := h.orchestrator.NewRequest(scope)
	balanceAttrs, formAttrs := h.balanceAttrs(c), h.formAttrs(c)

	var balance, form template.HTML
	g, ctx := errgroup.WithContext(c.Request.Context())
	g.Go(func() error {
		balance = h.renderer.BalanceFragment(ctx, scope, balanceAttrs)
		return nil
	})
	g.Go(func() error {
		var err error
		form, err = h.renderer.RedemptionForm(ctx, req, formAttrs)
		return err
	})
	if err := g.Wait(); err != nil {
		_ = c.Error(errutil.Internal("failed to render loyalty panel", err))
		return
	}

	writeHTML(c, fmt.Sprintf(`<div class="loyalty-panel"><div class="loyalty-balance">%s</div>%s</div>`, balance, form))
}

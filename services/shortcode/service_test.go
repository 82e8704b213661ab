package shortcode

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"loyalty-connector/pkg/config"
	"loyalty-connector/pkg/couponcode"
	"loyalty-connector/pkg/lock"
	"loyalty-connector/pkg/loyalty"
	"loyalty-connector/pkg/loyalty/loyaltytest"
	"loyalty-connector/pkg/testutil"
	"loyalty-connector/services/host"
	"loyalty-connector/services/identity"
	"loyalty-connector/services/redemption"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type fixture struct {
	srv          *loyaltytest.Server
	meta         *host.MetaStore
	resolver     *identity.Resolver
	orchestrator *redemption.Orchestrator
	renderer     *Renderer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.NewTestDB(t, host.Models()...)
	srv := loyaltytest.New(t)
	meta := host.NewMetaStore(db)

	cfg := &config.Config{}
	cfg.Redemption.Mode = "balance"
	cfg.Shortcode.BalanceDefault = "N/A"
	cfg.Shortcode.BalanceLabel = "Points"
	cfg.Shortcode.NotLoggedIn = "Log in to see your points."
	cfg.Shortcode.NoOptions = "Nothing to redeem yet."
	cfg.Shortcode.FormID = "loyalty-redemption-form"
	cfg.Shortcode.OptionsName = "loyalty_redemption_option"
	cfg.Shortcode.AjaxAction = "loyalty_customer_coupon_redemption"

	codes, err := couponcode.New(1, "ST")
	require.NoError(t, err)

	gw := srv.Client()
	return &fixture{
		srv:      srv,
		meta:     meta,
		resolver: identity.NewResolver(identity.ResolverParams{Gateway: gw, Meta: meta}),
		orchestrator: redemption.NewOrchestrator(redemption.OrchestratorParams{
			Config:          cfg,
			Gateway:         gw,
			Coupons:         host.NewCouponStore(db),
			Reconciliations: host.NewReconciliationStore(db),
			Codes:           codes,
			Locker:          lock.NewLocal(),
		}),
		renderer: NewRenderer(RendererParams{Config: cfg}),
	}
}

func (f *fixture) customer(t *testing.T, userID string, balance int64) identity.Actor {
	t.Helper()
	actor := identity.Actor{UserID: userID, Email: userID + "@example.com"}
	c := f.srv.AddCustomer(loyalty.Customer{Email: actor.Email, PointsBalance: loyalty.Points(balance)})
	require.NoError(t, f.meta.Set(context.Background(), userID, host.RemoteCustomerIDKey, c.ID.String()))
	return actor
}

func TestBalanceFragment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	attrs := f.renderer.DefaultBalanceAttrs()

	require.Equal(t, "Log in to see your points.", string(f.renderer.BalanceFragment(ctx, f.resolver.Scope(identity.Actor{}), attrs)))

	rich := f.customer(t, "rich", 1250)
	require.Equal(t, "1250 Points", string(f.renderer.BalanceFragment(ctx, f.resolver.Scope(rich), attrs)))

	broke := f.customer(t, "broke", 0)
	require.Equal(t, "0 Points", string(f.renderer.BalanceFragment(ctx, f.resolver.Scope(broke), attrs)))

	attrs.ZeroBalance = "No points yet"
	require.Equal(t, "No points yet", string(f.renderer.BalanceFragment(ctx, f.resolver.Scope(broke), attrs)))

	f.srv.Fail(loyaltytest.RouteGetCustomer, http.StatusServiceUnavailable)
	require.Equal(t, "N/A", string(f.renderer.BalanceFragment(ctx, f.resolver.Scope(rich), attrs)))
}

func TestBalanceFragmentEscapes(t *testing.T) {
	f := newFixture(t)
	attrs := BalanceAttrs{NotLoggedIn: "<b>log in</b>"}

	out := f.renderer.BalanceFragment(context.Background(), f.resolver.Scope(identity.Actor{}), attrs)
	require.Equal(t, "&lt;b&gt;log in&lt;/b&gt;", string(out))
}

func TestRedemptionForm(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.srv.AddOption(loyalty.RedemptionOption{
		Name:             "Spend 10 Points <now>",
		PointsExchange:   loyalty.PointsExchange{Type: loyalty.ExchangeFixed, PointsAmount: 10},
		RedemptionMethod: loyalty.RedemptionMethod{Type: loyalty.MethodFixedDiscount, DiscountType: loyalty.FixedCart, Value: 1},
	})
	f.srv.AddOption(loyalty.RedemptionOption{
		PointsExchange:   loyalty.PointsExchange{Type: loyalty.ExchangeFixed, PointsAmount: 20},
		RedemptionMethod: loyalty.RedemptionMethod{Type: loyalty.MethodFixedDiscount, DiscountType: loyalty.Percent, Value: 5},
	})
	f.srv.AddOption(loyalty.RedemptionOption{
		Name:           "Too expensive",
		PointsExchange: loyalty.PointsExchange{Type: loyalty.ExchangeFixed, PointsAmount: 500},
	})

	attrs := f.renderer.DefaultFormAttrs()
	actor := f.customer(t, "jane", 30)

	out, err := f.renderer.RedemptionForm(ctx, f.orchestrator.NewRequest(f.resolver.Scope(actor)), attrs)
	require.NoError(t, err)
	html := string(out)

	require.Contains(t, html, `id="loyalty-redemption-form"`)
	require.Contains(t, html, `data-action="loyalty_customer_coupon_redemption"`)
	require.Equal(t, 2, strings.Count(html, `name="loyalty_redemption_option"`))
	require.Contains(t, html, "Spend 10 Points &lt;now&gt;")
	require.Contains(t, html, "Deduct 20 Points for a discount of 5% off of your total order.")
	require.NotContains(t, html, "Too expensive")
	require.NotContains(t, html, "<now>")
}

func TestRedemptionFormPlaceholders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	attrs := f.renderer.DefaultFormAttrs()

	out, err := f.renderer.RedemptionForm(ctx, f.orchestrator.NewRequest(f.resolver.Scope(identity.Actor{})), attrs)
	require.NoError(t, err)
	require.Equal(t, "Log in to see your points.", string(out))

	actor := f.customer(t, "jane", 0)
	out, err = f.renderer.RedemptionForm(ctx, f.orchestrator.NewRequest(f.resolver.Scope(actor)), attrs)
	require.NoError(t, err)
	require.Equal(t, "Nothing to redeem yet.", string(out))
}

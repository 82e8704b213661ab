package forwarder

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"loyalty-connector/pkg/config"
	"loyalty-connector/pkg/loyalty"
	"loyalty-connector/pkg/loyalty/loyaltytest"
	"loyalty-connector/pkg/testutil"
	"loyalty-connector/services/host"
	"loyalty-connector/services/identity"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type mockGateway struct {
	loyalty.Gateway
	sendEventFn func(ctx context.Context, event loyalty.Event) (*loyalty.EventResponse, error)
}

func (m *mockGateway) SendEvent(ctx context.Context, event loyalty.Event) (*loyalty.EventResponse, error) {
	return m.sendEventFn(ctx, event)
}

type fixture struct {
	db   *gorm.DB
	meta *host.MetaStore
	srv  *loyaltytest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewTestDB(t, host.Models()...)

	uid := "u1"
	require.NoError(t, db.Create(&host.User{ID: "u1", Email: "jane@example.com", FirstName: "Jane", LastName: "Doe"}).Error)
	require.NoError(t, db.Create(&host.Order{
		ID:               "1001",
		UserID:           &uid,
		Status:           host.OrderCompleted,
		Total:            120,
		BillingFirstName: "Jane",
		BillingLastName:  "Doe",
		BillingEmail:     "jane.billing@example.com",
		LineItems:        datatypes.JSON(`[{"sku":"A-1","qty":2,"options":{"size":"L"}}]`),
	}).Error)
	require.NoError(t, db.Create(&host.Order{
		ID:               "1002",
		Status:           host.OrderCompleted,
		Total:            15,
		BillingFirstName: "Gus",
		BillingLastName:  "Guest",
		BillingEmail:     "gus@example.com",
	}).Error)

	return &fixture{db: db, meta: host.NewMetaStore(db), srv: loyaltytest.New(t)}
}

func (f *fixture) forwarder(gw loyalty.Gateway) *Forwarder {
	cfg := &config.Config{}
	cfg.Loyalty.Sources = []string{"woocommerce"}
	return NewForwarder(ForwarderParams{
		Config:   cfg,
		Gateway:  gw,
		Orders:   host.NewOrderStore(f.db),
		Users:    host.NewUserStore(f.db),
		Resolver: identity.NewResolver(identity.ResolverParams{Gateway: gw, Meta: f.meta}),
	})
}

func TestGuestOrderCarriesBillingFieldsOnly(t *testing.T) {
	f := newFixture(t)

	res := f.forwarder(f.srv.Client()).OrderCompleted(context.Background(), "1002")
	require.Equal(t, StatusSent, res.Status)
	require.NoError(t, res.Err)

	events := f.srv.Events()
	require.Len(t, events, 1)
	event := events[0]

	require.Equal(t, "order", event["event_type"])
	require.NotContains(t, event, "customer_id")
	require.Equal(t, map[string]any{
		"first_name": "Gus",
		"last_name":  "Guest",
		"email":      "gus@example.com",
	}, event["customer"])
	require.Equal(t, "1002", event["external_id"])
	require.Equal(t, []any{"woocommerce"}, event["sources"])

	data := event["data"].(map[string]any)
	require.Equal(t, "1002", data["order_id"])
	require.Equal(t, "1002", data["id"])
	require.NotContains(t, data, "customer_user")

	require.Zero(t, f.srv.Calls(loyaltytest.RouteGetCustomer))
}

func TestAccountOrderWithMappingSendsCustomerID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	stored := f.srv.AddCustomer(loyalty.Customer{Email: "jane@example.com"})
	require.NoError(t, f.meta.Set(ctx, "u1", host.RemoteCustomerIDKey, stored.ID.String()))

	res := f.forwarder(f.srv.Client()).OrderCompleted(ctx, "1001")
	require.Equal(t, StatusSent, res.Status)
	require.Equal(t, stored.ID.String(), res.RemoteCustomerID)

	event := f.srv.Events()[0]
	require.Equal(t, stored.ID.String(), event["customer_id"])
	require.NotContains(t, event, "customer")

	data := event["data"].(map[string]any)
	items := data["line_items"].([]any)
	require.Equal(t, map[string]any{"sku": "A-1", "qty": float64(2), "options": map[string]any{"size": "L"}}, items[0])

	require.Zero(t, f.srv.Calls(loyaltytest.RouteGetCustomer))
	require.Zero(t, f.srv.Calls(loyaltytest.RouteCreateCustomer))
}

func TestAccountOrderWithoutMappingLearnsRemoteID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res := f.forwarder(f.srv.Client()).OrderCompleted(ctx, "1001")
	require.Equal(t, StatusSent, res.Status)
	require.NotEmpty(t, res.RemoteCustomerID)

	event := f.srv.Events()[0]
	require.Equal(t, map[string]any{
		"external_id": "u1",
		"email":       "jane@example.com",
		"first_name":  "Jane",
		"last_name":   "Doe",
	}, event["customer"])

	mapped, ok, err := f.meta.Get(ctx, "u1", host.RemoteCustomerIDKey)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, res.RemoteCustomerID, mapped)
}

func TestSelfHealingReplacesStaleMapping(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.meta.Set(ctx, "u1", host.RemoteCustomerIDKey, "old"))

	gw := &mockGateway{sendEventFn: func(_ context.Context, event loyalty.Event) (*loyalty.EventResponse, error) {
		require.Equal(t, "old", event.CustomerID)
		return &loyalty.EventResponse{Customer: &loyalty.Customer{ID: "new"}}, nil
	}}

	res := f.forwarder(gw).OrderCompleted(ctx, "1001")
	require.Equal(t, StatusSent, res.Status)

	mapped, _, err := f.meta.Get(ctx, "u1", host.RemoteCustomerIDKey)
	require.NoError(t, err)
	require.Equal(t, "new", mapped)
}

func TestFailuresAreSwallowed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	fw := f.forwarder(f.srv.Client())

	f.srv.Fail(loyaltytest.RouteSendEvent, http.StatusInternalServerError)
	res := fw.OrderCompleted(ctx, "1002")
	require.Equal(t, StatusFailed, res.Status)
	require.Error(t, res.Err)

	res = fw.OrderCompleted(ctx, "missing")
	require.Equal(t, StatusFailed, res.Status)

	res = fw.OrderCompleted(ctx, "")
	require.Equal(t, StatusSkipped, res.Status)
}

func TestPanicIsRecovered(t *testing.T) {
	f := newFixture(t)
	gw := &mockGateway{sendEventFn: func(context.Context, loyalty.Event) (*loyalty.EventResponse, error) {
		panic("boom")
	}}

	var res Result
	require.NotPanics(t, func() {
		res = f.forwarder(gw).OrderCompleted(context.Background(), "1002")
	})
	require.Equal(t, StatusFailed, res.Status)
	require.ErrorContains(t, res.Err, "boom")
}

package loyalty_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"loyalty-connector/pkg/errutil"
	"loyalty-connector/pkg/loyalty"
	"loyalty-connector/pkg/loyalty/loyaltytest"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func fixedOption(name string, points int64, value float64) loyalty.RedemptionOption {
	return loyalty.RedemptionOption{
		Name:           name,
		PointsExchange: loyalty.PointsExchange{Type: loyalty.ExchangeFixed, PointsAmount: loyalty.Points(points)},
		RedemptionMethod: loyalty.RedemptionMethod{
			Type:         loyalty.MethodFixedDiscount,
			DiscountType: loyalty.FixedCart,
			Value:        value,
		},
	}
}

func TestSendEventValidation(t *testing.T) {
	srv := loyaltytest.New(t)
	client := srv.Client()
	ctx := context.Background()

	_, err := client.SendEvent(ctx, loyalty.Event{CustomerID: "1"})
	require.True(t, errutil.IsValidation(err))

	_, err = client.SendEvent(ctx, loyalty.Event{EventType: loyalty.EventOrder})
	require.True(t, errutil.IsValidation(err))

	_, err = client.SendEvent(ctx, loyalty.Event{EventType: loyalty.EventOrder, Customer: &loyalty.CustomerFields{}})
	require.True(t, errutil.IsValidation(err))

	require.Zero(t, srv.Calls(loyaltytest.RouteSendEvent))
}

func TestSendEventEmitsExactlyOneCustomerField(t *testing.T) {
	srv := loyaltytest.New(t)
	existing := srv.AddCustomer(loyalty.Customer{Email: "known@example.com"})
	client := srv.Client()
	ctx := context.Background()

	resp, err := client.SendEvent(ctx, loyalty.Event{
		EventType:  loyalty.EventOrder,
		CustomerID: existing.ID.String(),
		Customer:   &loyalty.CustomerFields{Email: "ignored@example.com"},
		Data:       loyalty.Record{"order_id": loyalty.String("55")},
		ExternalID: "55",
		Sources:    []string{"woocommerce", " "},
	})
	require.NoError(t, err)
	require.Equal(t, existing.ID.String(), resp.RemoteCustomerID())

	resp, err = client.SendEvent(ctx, loyalty.Event{
		EventType: loyalty.EventOrder,
		Customer:  &loyalty.CustomerFields{Email: "guest@example.com", FirstName: "Guest"},
		Data:      loyalty.String("scalar"),
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.RemoteCustomerID())

	events := srv.Events()
	require.Len(t, events, 2)

	require.Equal(t, existing.ID.String(), events[0]["customer_id"])
	require.NotContains(t, events[0], "customer")
	require.Equal(t, []any{"woocommerce"}, events[0]["sources"])
	require.Equal(t, "55", events[0]["external_id"])
	require.Equal(t, map[string]any{"order_id": "55"}, events[0]["data"])

	require.NotContains(t, events[1], "customer_id")
	require.NotContains(t, events[1], "sources")
	require.Equal(t, map[string]any{"0": "scalar"}, events[1]["data"])
}

func TestCustomerLookups(t *testing.T) {
	srv := loyaltytest.New(t)
	stored := srv.AddCustomer(loyalty.Customer{Email: "jane@example.com", PointsBalance: 120})
	client := srv.Client()
	ctx := context.Background()

	byEmail, err := client.GetCustomerByEmail(ctx, "jane@example.com")
	require.NoError(t, err)
	require.Equal(t, stored.ID, byEmail.ID)
	require.EqualValues(t, 120, byEmail.PointsBalance)

	byID, err := client.GetCustomerByRemoteID(ctx, stored.ID.String())
	require.NoError(t, err)
	require.Equal(t, "jane@example.com", byID.Email)

	_, err = client.GetCustomerByEmail(ctx, "nobody@example.com")
	require.True(t, errutil.IsNotFound(err))

	created, err := client.CreateCustomer(ctx, loyalty.CustomerFields{Email: "new@example.com", ExternalID: "42"})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	require.Equal(t, "42", created.ExternalID)
}

func TestErrorMapping(t *testing.T) {
	srv := loyaltytest.New(t)
	ctx := context.Background()

	bad := loyalty.NewClient(loyalty.Config{BaseURL: srv.URL, APIKey: "wrong", APISecret: "creds"})
	_, err := bad.GetRedemptionOptions(ctx, "")
	require.True(t, errutil.IsTransport(err))

	srv.Fail(loyaltytest.RouteListOptions, http.StatusInternalServerError)
	_, err = srv.Client().GetRedemptionOptions(ctx, "")
	require.True(t, errutil.IsServer(err))

	var be errutil.BaseError
	require.ErrorAs(t, err, &be)
	require.Equal(t, http.StatusInternalServerError, be.RemoteStatus)
	require.NotContains(t, errutil.UserMessage(err, "generic"), "injected")

	unreachable := loyalty.NewClient(loyalty.Config{BaseURL: "http://127.0.0.1:1", APIKey: "k"})
	_, err = unreachable.SendEvent(ctx, loyalty.Event{EventType: loyalty.EventOrder, CustomerID: "1"})
	require.True(t, errutil.IsTransport(err))
}

func TestRedemptionOptionsAndRedeem(t *testing.T) {
	srv := loyaltytest.New(t)
	customer := srv.AddCustomer(loyalty.Customer{Email: "jane@example.com", PointsBalance: 15})
	srv.AddOption(fixedOption("A", 10, 5))
	srv.AddOption(fixedOption("B", 25, 10))
	client := srv.Client()
	ctx := context.Background()

	all, err := client.GetRedemptionOptions(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)

	scoped, err := client.GetRedemptionOptions(ctx, customer.ID.String())
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	require.Equal(t, "A", scoped[0].Name)

	tx, err := client.CreateRedemption(ctx, customer.ID.String(), 10, scoped[0].ID.String())
	require.NoError(t, err)
	require.EqualValues(t, -10, tx.Delta())

	after, ok := srv.Customer(customer.ID.String())
	require.True(t, ok)
	require.EqualValues(t, 5, after.PointsBalance)

	_, err = client.CreateRedemption(ctx, customer.ID.String(), 0, "x")
	require.True(t, errutil.IsValidation(err))
}

func TestClientLogsThroughZap(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	defer restore()

	srv := loyaltytest.New(t)
	_, err := srv.Client().GetRedemptionOptions(context.Background(), "")
	require.NoError(t, err)

	warnings := logs.FilterLevelExact(zapcore.WarnLevel).FilterMessageSnippet("Basic Auth").Filter(func(e observer.LoggedEntry) bool {
		return e.LoggerName == "resty"
	})
	require.NotZero(t, warnings.Len())
}

package forwarder

import (
	"context"
	"fmt"

	"loyalty-connector/pkg/config"
	"loyalty-connector/pkg/errutil"
	"loyalty-connector/pkg/loyalty"
	"loyalty-connector/pkg/metrics"
	"loyalty-connector/services/host"
	"loyalty-connector/services/identity"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Forwarder struct {
	gateway  loyalty.Gateway
	orders   host.Orders
	users    host.Users
	resolver *identity.Resolver
	sources  []string
}

type ForwarderParams struct {
	fx.In
	Config   *config.Config
	Gateway  loyalty.Gateway
	Orders   host.Orders
	Users    host.Users
	Resolver *identity.Resolver
}

func NewForwarder(p ForwarderParams) *Forwarder {
	return &Forwarder{
		gateway:  p.Gateway,
		orders:   p.Orders,
		users:    p.Users,
		resolver: p.Resolver,
		sources:  p.Config.Loyalty.Sources,
	}
}

// OrderCompleted sends the "order" event for orderID. It never fails the caller: every
// error and panic is logged and reported through the returned Result.
func (f *Forwarder) OrderCompleted(ctx context.Context, orderID string) (res Result) {
	zapLog := zap.L().With(zap.String("order_id", orderID))

	defer func() {
		if r := recover(); r != nil {
			zapLog.Error("panic while forwarding order event", zap.Any("panic", r))
			res = Result{Status: StatusFailed, Err: fmt.Errorf("panic: %v", r)}
		}
		metrics.EventForwarded(res.Status.String())
	}()

	if orderID == "" {
		zapLog.Warn("order completed without an order id, skipping")
		return Result{Status: StatusSkipped}
	}

	order, err := f.orders.Get(ctx, orderID)
	if err != nil {
		zapLog.Error("failed to load order", zap.Error(err))
		return Result{Status: StatusFailed, Err: err}
	}

	data, err := loyalty.RecordOf(order)
	if err != nil {
		zapLog.Error("failed to serialize order", zap.Error(err))
		return Result{Status: StatusFailed, Err: err}
	}
	data["order_id"] = loyalty.String(order.ID)

	event := loyalty.Event{
		EventType:  loyalty.EventOrder,
		Data:       data,
		ExternalID: order.ID,
		Sources:    f.sources,
	}

	var scope *identity.Scope
	if order.IsGuest() {
		event.Customer = &loyalty.CustomerFields{
			FirstName: order.BillingFirstName,
			LastName:  order.BillingLastName,
			Email:     order.BillingEmail,
		}
	} else {
		scope = f.resolver.Scope(f.actorFor(ctx, order))
		if id, ok := scope.KnownRemoteID(ctx); ok {
			event.CustomerID = id
		} else {
			actor := scope.Actor()
			event.Customer = &loyalty.CustomerFields{
				ExternalID: actor.UserID,
				Email:      actor.Email,
				FirstName:  actor.FirstName,
				LastName:   actor.LastName,
			}
		}
	}

	resp, err := f.gateway.SendEvent(ctx, event)
	if err != nil {
		if errutil.IsValidation(err) {
			zapLog.Warn("order event rejected locally", zap.Error(err))
		} else {
			zapLog.Error("failed to send order event", zap.Error(err))
		}
		return Result{Status: StatusFailed, Err: err}
	}

	remoteID := resp.RemoteCustomerID()
	if scope != nil && remoteID != "" {
		scope.Remember(ctx, remoteID)
	}

	zapLog.Info("order event sent", zap.String("customer_id", remoteID))
	return Result{Status: StatusSent, RemoteCustomerID: remoteID}
}

// actorFor loads the order's account, falling back to billing details when the account
// cannot be read.
func (f *Forwarder) actorFor(ctx context.Context, order *host.Order) identity.Actor {
	user, err := f.users.Get(ctx, *order.UserID)
	if err != nil {
		zap.L().Warn("failed to load order account, using billing details",
			zap.String("order_id", order.ID), zap.String("user_id", *order.UserID), zap.Error(err))
		return identity.Actor{
			UserID:    *order.UserID,
			Email:     order.BillingEmail,
			FirstName: order.BillingFirstName,
			LastName:  order.BillingLastName,
		}
	}
	return identity.ActorFromUser(user)
}

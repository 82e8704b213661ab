package redemption

import (
	"context"
	"errors"
	"sync"

	"loyalty-connector/pkg/config"
	"loyalty-connector/pkg/couponcode"
	"loyalty-connector/pkg/errutil"
	"loyalty-connector/pkg/featureflags"
	"loyalty-connector/pkg/lock"
	"loyalty-connector/pkg/loyalty"
	"loyalty-connector/pkg/metrics"
	"loyalty-connector/services/host"
	"loyalty-connector/services/identity"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

const couponAttempts = 3

type Orchestrator struct {
	gateway         loyalty.Gateway
	coupons         host.Coupons
	reconciliations host.Reconciliations
	codes           couponcode.Generator
	locker          lock.Locker
	flags           featureflags.FeatureFlag
	mode            Mode
}

type OrchestratorParams struct {
	fx.In
	Config          *config.Config
	Gateway         loyalty.Gateway
	Coupons         host.Coupons
	Reconciliations host.Reconciliations
	Codes           couponcode.Generator
	Locker          lock.Locker
	Flags           featureflags.FeatureFlag `optional:"true"`
}

func NewOrchestrator(p OrchestratorParams) *Orchestrator {
	flags := p.Flags
	if flags == nil {
		flags = featureflags.Static{}
	}

	mode := Mode(p.Config.Redemption.Mode)
	if mode.String() == "" {
		mode = ModeBalance
	}

	return &Orchestrator{
		gateway:         p.Gateway,
		coupons:         p.Coupons,
		reconciliations: p.Reconciliations,
		codes:           p.Codes,
		locker:          p.Locker,
		flags:           flags,
		mode:            mode,
	}
}

// NewRequest binds the orchestrator to one request's identity scope.
func (o *Orchestrator) NewRequest(scope *identity.Scope) *Request {
	return &Request{
		o:       o,
		scope:   scope,
		options: make(map[int64][]loyalty.RedemptionOption),
	}
}

func (o *Orchestrator) modeFor(ctx context.Context, remoteID string) Mode {
	if o.mode == ModeCustomer {
		return ModeCustomer
	}
	if o.flags.Enabled(ctx, remoteID, featureflags.RedemptionCustomerScoped, false) {
		return ModeCustomer
	}
	return ModeBalance
}

// Request holds the per-request redemption state.
type Request struct {
	o     *Orchestrator
	scope *identity.Scope

	mu      sync.Mutex
	options map[int64][]loyalty.RedemptionOption
}

func (r *Request) Scope() *identity.Scope {
	return r.scope
}

// EligibleOptions lists the options the customer can redeem right now, memoized per balance
// for the lifetime of the request. Errors are UserErrors safe to display.
func (r *Request) EligibleOptions(ctx context.Context) ([]loyalty.RedemptionOption, error) {
	if r.scope.Actor().IsGuest() {
		return nil, errutil.User(MsgNotLoggedIn)
	}

	customer, ok := r.scope.Customer(ctx)
	if !ok {
		return nil, errutil.User(MsgUnavailable)
	}
	remoteID := customer.ID.String()
	balance := r.scope.Balance(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()

	if cached, ok := r.options[balance.Points]; ok {
		return cached, nil
	}

	zapLog := zap.L().With(zap.String("customer_id", remoteID), zap.Int64("balance", balance.Points))

	var (
		options []loyalty.RedemptionOption
		err     error
	)
	switch mode := r.o.modeFor(ctx, remoteID); mode {
	case ModeCustomer:
		options, err = r.o.gateway.GetRedemptionOptions(ctx, remoteID)
	default:
		options, err = r.o.gateway.GetRedemptionOptions(ctx, "")
		if err == nil {
			options = affordable(options, balance.Points)
		}
	}
	if err != nil {
		zapLog.Error("failed to load redemption options", zap.Error(err))
		return nil, errutil.User(MsgUnavailable, errutil.WithErr(err))
	}

	r.options[balance.Points] = options
	return options, nil
}

// Redeem exchanges points for a coupon. The customer is resolved remotely so the debit never
// targets a stale mapping, and the balance is re-read under the lock. The debit always happens
// before the coupon is written; a coupon failure after a debit is recorded for reconciliation.
func (r *Request) Redeem(ctx context.Context, selection string) (res Result) {
	zapLog := zap.L().With(zap.String("user_id", r.scope.Actor().UserID), zap.String("option_id", selection))

	defer func() {
		metrics.Redemption(resultLabel(res))
	}()

	if selection == "" {
		return failure(MsgSelectOption)
	}
	if r.scope.Actor().IsGuest() {
		return failure(MsgNotLoggedIn)
	}

	customer, ok := r.scope.Customer(ctx)
	if !ok {
		return failure(MsgUnavailable)
	}
	remoteID := customer.ID.String()
	zapLog = zapLog.With(zap.String("customer_id", remoteID))

	release, err := r.o.locker.Acquire(ctx, remoteID)
	if err != nil {
		if errors.Is(err, lock.ErrHeld) {
			zapLog.Warn("redemption already in progress")
		} else {
			zapLog.Error("failed to acquire redemption lock", zap.Error(err))
		}
		return failure(MsgBusy)
	}
	defer release()

	r.scope.Refresh(ctx)

	eligible, err := r.EligibleOptions(ctx)
	if err != nil {
		return failure(errutil.UserMessage(err, MsgUnavailable))
	}

	opt, ok := find(eligible, selection)
	if !ok {
		zapLog.Info("selected option is not eligible")
		return failure(MsgNotEligible)
	}

	if !supported(opt) {
		zapLog.Warn("unsupported redemption option",
			zap.String("exchange_type", opt.PointsExchange.Type),
			zap.String("method_type", opt.RedemptionMethod.Type),
			zap.String("discount_type", string(opt.RedemptionMethod.DiscountType)),
		)
		return failure(MsgNotEligible)
	}

	points := opt.PointsExchange.PointsAmount.Int64()
	tx, err := r.o.gateway.CreateRedemption(ctx, remoteID, points, opt.ID.String())
	if err != nil {
		zapLog.Error("failed to debit points", zap.Int64("points", points), zap.Error(err))
		return failure(MsgUnableToDeduct)
	}

	coupon, err := r.issueCoupon(ctx, remoteID, opt, tx)
	if err != nil {
		r.reconcile(ctx, zapLog, remoteID, opt, tx, coupon, err)
		return failure(MsgUnableToIssue)
	}

	// balance read under the lock plus the debit; not re-read afterwards
	newBalance := r.scope.Balance(ctx).Points + tx.Delta()
	zapLog.Info("points redeemed", zap.String("coupon_code", coupon.Code), zap.Int64("new_balance", newBalance))

	return Result{
		Success:    true,
		CouponCode: coupon.Code,
		NewBalance: &newBalance,
		Message:    MsgRedeemed,
	}
}

func (r *Request) issueCoupon(ctx context.Context, remoteID string, opt loyalty.RedemptionOption, tx *loyalty.Transaction) (*host.Coupon, error) {
	method := opt.RedemptionMethod

	expiry, err := parseExpiry(method.ExpiryDate)
	if err != nil {
		zap.L().Warn("ignoring redemption option expiry", zap.String("option_id", opt.ID.String()), zap.Error(err))
	}

	actor := r.scope.Actor()
	coupon := &host.Coupon{
		DiscountType:        method.DiscountType.String(),
		Amount:              method.Value,
		UsageLimit:          1,
		IndividualUse:       true,
		FreeShipping:        method.FreeShipping,
		ApplyBeforeTax:      method.ApplyBeforeTax,
		ExpiryDate:          expiry,
		CustomerEmail:       actor.Email,
		UserID:              actor.UserID,
		RemoteCustomerID:    remoteID,
		RedemptionOptionID:  opt.ID.String(),
		RemoteTransactionID: tx.ID.String(),
	}

	for attempt := 1; ; attempt++ {
		coupon.ID = r.o.codes.ID()
		coupon.Code = r.o.codes.Code()

		err = r.o.coupons.Create(ctx, coupon)
		if err == nil {
			return coupon, nil
		}
		if !errutil.Is(err, errutil.StatusConflict) || attempt == couponAttempts {
			return coupon, err
		}
		zap.L().Warn("coupon code collision, retrying", zap.String("coupon_code", coupon.Code))
	}
}

func (r *Request) reconcile(ctx context.Context, zapLog *zap.Logger, remoteID string, opt loyalty.RedemptionOption, tx *loyalty.Transaction, coupon *host.Coupon, cause error) {
	item := &host.ReconciliationItem{
		UserID:              r.scope.Actor().UserID,
		RemoteCustomerID:    remoteID,
		RemoteTransactionID: tx.ID.String(),
		RedemptionOptionID:  opt.ID.String(),
		Points:              opt.PointsExchange.PointsAmount.Int64(),
		Reason:              cause.Error(),
	}
	if coupon != nil {
		item.CouponCode = coupon.Code
	}

	zapLog.Error("points debited but coupon not issued",
		zap.Bool("reconciliation", true),
		zap.String("transaction_id", item.RemoteTransactionID),
		zap.Int64("points", item.Points),
		zap.Error(cause),
	)
	metrics.ReconciliationItem()

	if err := r.o.reconciliations.Record(ctx, item); err != nil {
		zapLog.Error("failed to record reconciliation item", zap.Bool("reconciliation", true), zap.Error(err))
	}
}

func resultLabel(res Result) string {
	if res.Success {
		return "success"
	}
	switch res.Message {
	case MsgUnableToDeduct:
		return "debit_failed"
	case MsgUnableToIssue:
		return "coupon_failed"
	case MsgBusy:
		return "busy"
	case MsgUnavailable:
		return "unavailable"
	default:
		return "rejected"
	}
}

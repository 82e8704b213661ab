package identity

import (
	"context"
	"sync"

	"loyalty-connector/pkg/errutil"
	"loyalty-connector/pkg/loyalty"
	"loyalty-connector/services/host"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Resolver struct {
	gateway loyalty.Gateway
	meta    host.Meta
}

type ResolverParams struct {
	fx.In
	Gateway loyalty.Gateway
	Meta    host.Meta
}

func NewResolver(p ResolverParams) *Resolver {
	return &Resolver{
		gateway: p.Gateway,
		meta:    p.Meta,
	}
}

// Scope starts the per-request identity state for actor. A Scope must not outlive the request.
func (r *Resolver) Scope(actor Actor) *Scope {
	return &Scope{
		resolver: r,
		actor:    actor,
		log:      zap.L().With(zap.String("user_id", actor.UserID)),
	}
}

// Scope memoizes identity resolution for one request. It is safe for concurrent use.
type Scope struct {
	resolver *Resolver
	actor    Actor
	log      *zap.Logger

	mappingOnce sync.Once
	mu          sync.RWMutex
	mapping     string

	customerOnce sync.Once
	customerMu   sync.RWMutex
	customer     *loyalty.Customer
	created      bool
}

func (s *Scope) Actor() Actor {
	return s.actor
}

// KnownRemoteID returns the persisted mapping without calling the loyalty service.
func (s *Scope) KnownRemoteID(ctx context.Context) (string, bool) {
	if s.actor.IsGuest() {
		return "", false
	}

	s.mappingOnce.Do(func() {
		id, ok, err := s.resolver.meta.Get(ctx, s.actor.UserID, host.RemoteCustomerIDKey)
		if err != nil {
			s.log.Error("failed to read remote customer mapping", zap.Error(err))
			return
		}
		if ok {
			s.mu.Lock()
			s.mapping = id
			s.mu.Unlock()
		}
	})

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mapping, s.mapping != ""
}

// RemoteID prefers the mapping and only resolves remotely when there is none.
func (s *Scope) RemoteID(ctx context.Context) (string, bool) {
	if id, ok := s.KnownRemoteID(ctx); ok {
		return id, true
	}
	c, ok := s.Customer(ctx)
	if !ok {
		return "", false
	}
	return c.ID.String(), true
}

// Customer resolves the remote record at most once per scope. Remote failures are logged
// and reported as absent.
func (s *Scope) Customer(ctx context.Context) (*loyalty.Customer, bool) {
	s.customerOnce.Do(func() {
		s.customer, s.created = s.resolve(ctx)
	})

	s.customerMu.RLock()
	defer s.customerMu.RUnlock()
	return s.customer, s.customer != nil
}

// Refresh re-reads the resolved customer so the balance is current. The previous record is
// kept when the read fails.
func (s *Scope) Refresh(ctx context.Context) (*loyalty.Customer, bool) {
	c, ok := s.Customer(ctx)
	if !ok {
		return nil, false
	}

	fresh, err := s.resolver.gateway.GetCustomerByRemoteID(ctx, c.ID.String())
	if err != nil {
		s.log.Warn("failed to refresh loyalty customer", zap.String("customer_id", c.ID.String()), zap.Error(err))
		return c, true
	}

	s.customerMu.Lock()
	s.customer = fresh
	s.customerMu.Unlock()
	return fresh, true
}

func (s *Scope) Balance(ctx context.Context) Balance {
	c, ok := s.Customer(ctx)
	if !ok {
		return Balance{}
	}
	return Balance{Points: c.PointsBalance.Int64(), Known: true}
}

// EnsureCustomer resolves the customer and reports whether this scope created it remotely.
func (s *Scope) EnsureCustomer(ctx context.Context) bool {
	s.Customer(ctx)
	return s.created
}

// Remember persists remoteID as the actor's mapping when it differs from the stored one.
func (s *Scope) Remember(ctx context.Context, remoteID string) {
	if s.actor.IsGuest() || remoteID == "" {
		return
	}
	if known, _ := s.KnownRemoteID(ctx); known == remoteID {
		return
	}
	s.persist(ctx, remoteID)
}

func (s *Scope) resolve(ctx context.Context) (*loyalty.Customer, bool) {
	if s.actor.IsGuest() {
		return nil, false
	}

	gw := s.resolver.gateway

	if id, ok := s.KnownRemoteID(ctx); ok {
		c, err := gw.GetCustomerByRemoteID(ctx, id)
		if err == nil {
			return c, false
		}
		if !errutil.IsNotFound(err) {
			s.log.Error("failed to load loyalty customer", zap.String("customer_id", id), zap.Error(err))
			return nil, false
		}
		s.log.Warn("stored loyalty customer id not found, resolving by email", zap.String("customer_id", id))
	}

	if s.actor.Email == "" {
		s.log.Warn("cannot resolve loyalty customer without an email")
		return nil, false
	}

	c, err := gw.GetCustomerByEmail(ctx, s.actor.Email)
	if err == nil {
		s.persist(ctx, c.ID.String())
		return c, false
	}
	if !errutil.IsNotFound(err) {
		s.log.Error("failed to look up loyalty customer by email", zap.Error(err))
		return nil, false
	}

	c, err = gw.CreateCustomer(ctx, loyalty.CustomerFields{
		ExternalID: s.actor.UserID,
		Email:      s.actor.Email,
		FirstName:  s.actor.FirstName,
		LastName:   s.actor.LastName,
	})
	if err != nil {
		s.log.Error("failed to create loyalty customer", zap.Error(err))
		return nil, false
	}

	s.log.Info("loyalty customer created", zap.String("customer_id", c.ID.String()))
	s.persist(ctx, c.ID.String())
	return c, true
}

func (s *Scope) persist(ctx context.Context, remoteID string) {
	if remoteID == "" {
		return
	}
	if err := s.resolver.meta.Set(ctx, s.actor.UserID, host.RemoteCustomerIDKey, remoteID); err != nil {
		s.log.Error("failed to persist remote customer mapping", zap.String("customer_id", remoteID), zap.Error(err))
		return
	}

	s.mu.Lock()
	s.mapping = remoteID
	s.mu.Unlock()
}

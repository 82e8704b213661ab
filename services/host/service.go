package host

import (
	"context"
	"errors"
	"time"

	"loyalty-connector/pkg/errutil"
	"loyalty-connector/pkg/repository"

	"gorm.io/gorm"
)

// Users loads host accounts.
type Users interface {
	Get(ctx context.Context, id string) (*User, error)
}

// Meta is the host's per-user key/value store.
type Meta interface {
	Get(ctx context.Context, userID, key string) (string, bool, error)
	Set(ctx context.Context, userID, key, value string) error
}

type Orders interface {
	Get(ctx context.Context, id string) (*Order, error)
}

type Coupons interface {
	Create(ctx context.Context, coupon *Coupon) error
}

type Reconciliations interface {
	Record(ctx context.Context, item *ReconciliationItem) error
}

var (
	_ Users           = (*UserStore)(nil)
	_ Meta            = (*MetaStore)(nil)
	_ Orders          = (*OrderStore)(nil)
	_ Coupons         = (*CouponStore)(nil)
	_ Reconciliations = (*ReconciliationStore)(nil)
)

type UserStore struct {
	repo repository.Repository[User]
}

func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{repo: repository.ProvideStore[User](db)}
}

func (s *UserStore) Get(ctx context.Context, id string) (*User, error) {
	if id == "" {
		return nil, errutil.NotFound("user not found", nil)
	}
	return s.repo.FindOne(ctx, &User{ID: id})
}

type OrderStore struct {
	repo repository.Repository[Order]
}

func NewOrderStore(db *gorm.DB) *OrderStore {
	return &OrderStore{repo: repository.ProvideStore[Order](db)}
}

func (s *OrderStore) Get(ctx context.Context, id string) (*Order, error) {
	if id == "" {
		return nil, errutil.NotFound("order not found", nil)
	}
	return s.repo.FindOne(ctx, &Order{ID: id})
}

type CouponStore struct {
	repo repository.Repository[Coupon]
}

func NewCouponStore(db *gorm.DB) *CouponStore {
	return &CouponStore{repo: repository.ProvideStore[Coupon](db)}
}

// Create fails with a conflict when the code is already taken.
func (s *CouponStore) Create(ctx context.Context, coupon *Coupon) error {
	if coupon.CreatedAt.IsZero() {
		coupon.CreatedAt = time.Now()
	}
	if err := s.repo.Create(ctx, coupon); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return errutil.New(errutil.StatusConflict, "coupon code already exists", errutil.WithErr(err))
		}
		return err
	}
	return nil
}

type ReconciliationStore struct {
	repo repository.Repository[ReconciliationItem]
}

func NewReconciliationStore(db *gorm.DB) *ReconciliationStore {
	return &ReconciliationStore{repo: repository.ProvideStore[ReconciliationItem](db)}
}

func (s *ReconciliationStore) Record(ctx context.Context, item *ReconciliationItem) error {
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now()
	}
	return s.repo.Create(ctx, item)
}

type MetaStore struct {
	repo repository.Repository[UserMeta]
}

func NewMetaStore(db *gorm.DB) *MetaStore {
	return &MetaStore{repo: repository.ProvideStore[UserMeta](db)}
}

// Get reports ok=false for a missing or empty value.
func (m *MetaStore) Get(ctx context.Context, userID, key string) (string, bool, error) {
	meta, err := m.repo.FindOne(ctx, &UserMeta{UserID: userID, MetaKey: key})
	if err != nil {
		if errutil.IsNotFound(err) {
			return "", false, nil
		}
		return "", false, err
	}
	if meta.MetaValue == "" {
		return "", false, nil
	}
	return meta.MetaValue, true, nil
}

func (m *MetaStore) Set(ctx context.Context, userID, key, value string) error {
	return m.repo.Save(ctx, &UserMeta{
		UserID:    userID,
		MetaKey:   key,
		MetaValue: value,
		UpdatedAt: time.Now(),
	})
}

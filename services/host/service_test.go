package host

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"loyalty-connector/pkg/errutil"
	"loyalty-connector/pkg/testutil"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func TestMetaStoreUpsert(t *testing.T) {
	db := testutil.NewTestDB(t, Models()...)
	meta := NewMetaStore(db)
	ctx := context.Background()

	_, ok, err := meta.Get(ctx, "u1", RemoteCustomerIDKey)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, meta.Set(ctx, "u1", RemoteCustomerIDKey, "1001"))
	require.NoError(t, meta.Set(ctx, "u1", RemoteCustomerIDKey, "1002"))

	val, ok, err := meta.Get(ctx, "u1", RemoteCustomerIDKey)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "1002", val)

	var count int64
	require.NoError(t, db.Model(&UserMeta{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestMetaStoreScopesByUserAndKey(t *testing.T) {
	meta := NewMetaStore(testutil.NewTestDB(t, Models()...))
	ctx := context.Background()

	require.NoError(t, meta.Set(ctx, "u1", RemoteCustomerIDKey, "1001"))
	require.NoError(t, meta.Set(ctx, "u2", RemoteCustomerIDKey, "2002"))
	require.NoError(t, meta.Set(ctx, "u1", "other", ""))

	val, ok, err := meta.Get(ctx, "u2", RemoteCustomerIDKey)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "2002", val)

	_, ok, err = meta.Get(ctx, "u1", "other")
	require.NoError(t, err)
	require.False(t, ok)

	_, ok, err = meta.Get(ctx, "u3", RemoteCustomerIDKey)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestUserAndOrderStores(t *testing.T) {
	db := testutil.NewTestDB(t, Models()...)
	ctx := context.Background()

	require.NoError(t, db.Create(&User{ID: "u1", Email: "jane@example.com"}).Error)
	uid := "u1"
	require.NoError(t, db.Create(&Order{
		ID:        "o1",
		UserID:    &uid,
		Status:    OrderCompleted,
		LineItems: datatypes.JSON(`[{"sku":"A","qty":1}]`),
	}).Error)
	require.NoError(t, db.Create(&Order{ID: "o2", BillingEmail: "guest@example.com"}).Error)

	users := NewUserStore(db)
	u, err := users.Get(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "jane@example.com", u.Email)

	_, err = users.Get(ctx, "missing")
	require.True(t, errutil.IsNotFound(err))

	orders := NewOrderStore(db)
	o, err := orders.Get(ctx, "o1")
	require.NoError(t, err)
	require.False(t, o.IsGuest())

	guest, err := orders.Get(ctx, "o2")
	require.NoError(t, err)
	require.True(t, guest.IsGuest())

	_, err = orders.Get(ctx, "")
	require.True(t, errutil.IsNotFound(err))
}

func TestCouponCodeIsUnique(t *testing.T) {
	db := testutil.NewTestDB(t, Models()...)
	coupons := NewCouponStore(db)
	ctx := context.Background()

	require.NoError(t, coupons.Create(ctx, &Coupon{ID: 1, Code: "ST-ABC", UsageLimit: 1}))

	err := coupons.Create(ctx, &Coupon{ID: 2, Code: "ST-ABC", UsageLimit: 1})
	require.True(t, errutil.Is(err, errutil.StatusConflict))
}

func TestReconciliationRecord(t *testing.T) {
	db := testutil.NewTestDB(t, Models()...)
	store := NewReconciliationStore(db)

	item := &ReconciliationItem{RemoteCustomerID: "1001", Points: 100, Reason: "coupon insert failed"}
	require.NoError(t, store.Record(context.Background(), item))
	require.NotZero(t, item.ID)
	require.False(t, item.CreatedAt.IsZero())
}

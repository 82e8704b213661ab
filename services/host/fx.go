package host

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("host",
	fx.Provide(
		fx.Annotate(NewUserStore, fx.As(new(Users))),
		fx.Annotate(NewMetaStore, fx.As(new(Meta))),
		fx.Annotate(NewOrderStore, fx.As(new(Orders))),
		fx.Annotate(NewCouponStore, fx.As(new(Coupons))),
		fx.Annotate(NewReconciliationStore, fx.As(new(Reconciliations))),
	),
	fx.Invoke(Migrate),
)

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		zap.L().Error("failed to migrate host tables", zap.Error(err))
		return err
	}
	return nil
}

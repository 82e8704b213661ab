package httpapi

import (
	"net/http"
	"slices"
	"time"

	"loyalty-connector/pkg/config"
	"loyalty-connector/pkg/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

var Module = fx.Module("httpapi",
	fx.Provide(
		NewHandler,
		NewEngine,
	),
)

const (
	RouteAjax          = "/ajax"
	RouteBalance       = "/fragments/balance"
	RouteForm          = "/fragments/redemption-form"
	RoutePanel         = "/fragments/panel"
	RouteOrderComplete = "/hooks/order-completed"
)

// NewEngine builds the gin engine served by pkg/server.
func NewEngine(cfg *config.Config, h *Handler) http.Handler {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
		cors.New(corsConfig(cfg)),
	)

	r.GET("/healthz", h.Liveness)
	r.GET("/readyz", h.Readiness)
	r.GET("/metrics", h.Metrics())

	api := r.Group("/", middleware.Error(), h.currentActor())
	api.POST(RouteAjax, h.Redeem)
	api.GET(RouteBalance, h.BalanceFragment)
	api.GET(RouteForm, h.RedemptionForm)
	api.GET(RoutePanel, h.Panel)

	hooks := r.Group("/hooks", middleware.Error())
	hooks.POST("/order-completed", h.OrderCompleted)

	return r
}

// corsConfig never lets browsers send the host identity header. Credentials are only allowed
// for explicitly configured origins.
func corsConfig(cfg *config.Config) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", middleware.HeaderRequestID},
		ExposeHeaders: []string{middleware.HeaderRequestID},
		MaxAge:        12 * time.Hour,
	}

	origins := cfg.Server.AllowOrigins
	if len(origins) == 0 || slices.Contains(origins, "*") {
		c.AllowAllOrigins = true
		return c
	}
	c.AllowOrigins = origins
	c.AllowCredentials = true
	return c
}

package health

import (
	"net/http"

	"loyalty-connector/pkg/config"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/vault-client-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("health", fx.Provide(ProvideHealth))

const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

type Dependency struct {
	Name    string `json:"name"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

type Health struct {
	Status  string       `json:"status"`
	Message string       `json:"message"`
	Version string       `json:"version,omitempty"`
	Deps    []Dependency `json:"deps"`
}

type HealthService interface {
	Liveness(c *gin.Context)
	Readiness(c *gin.Context)
}

type health struct {
	version string
	db      *gorm.DB
	redis   *redis.Client
	vault   *vault.Client
}

type HealthParams struct {
	fx.In
	Config *config.Config `optional:"true"`
	DB     *gorm.DB       `optional:"true"`
	Redis  *redis.Client  `optional:"true"`
	Vault  *vault.Client  `optional:"true"`
}

func ProvideHealth(p HealthParams) HealthService {
	h := &health{
		db:    p.DB,
		redis: p.Redis,
		vault: p.Vault,
	}
	if p.Config != nil {
		h.version = p.Config.AppVersion
	}

	return h
}

func (h *health) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, &Health{
		Status:  StatusHealthy,
		Message: "OK",
		Version: h.version,
	})
}

// Readiness pings every configured dependency. Any failure turns the response into a 503.
func (h *health) Readiness(c *gin.Context) {
	this := &Health{
		Status:  StatusHealthy,
		Message: "OK",
		Version: h.version,
	}

	ctx := c.Request.Context()
	deps := make([]Dependency, 0)
	if h.db != nil {
		dep := healthy(h.db.Name())

		sql, err := h.db.DB()
		if err == nil {
			err = sql.PingContext(ctx)
		}
		if err != nil {
			dep.Status = StatusUnhealthy
			dep.Message = err.Error()
		}

		deps = append(deps, dep)
	}

	if h.redis != nil {
		dep := healthy("redis")
		if err := h.redis.Ping(ctx).Err(); err != nil {
			dep.Status = StatusUnhealthy
			dep.Message = err.Error()
		}

		deps = append(deps, dep)
	}

	if h.vault != nil {
		dep := healthy("vault")
		if _, err := h.vault.System.ReadHealthStatus(ctx); err != nil {
			dep.Status = StatusUnhealthy
			dep.Message = err.Error()
		}

		deps = append(deps, dep)
	}

	this.Deps = deps

	code := http.StatusOK
	for _, dep := range deps {
		if dep.Status != StatusHealthy {
			this.Status = StatusUnhealthy
			this.Message = dep.Name + " unavailable"
			code = http.StatusServiceUnavailable
			break
		}
	}

	c.JSON(code, this)
}

func healthy(name string) Dependency {
	return Dependency{
		Name:    name,
		Status:  StatusHealthy,
		Message: "OK",
	}
}

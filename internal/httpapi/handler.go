package httpapi

import (
	"context"
	"net/http"

	"loyalty-connector/pkg/config"
	"loyalty-connector/pkg/errutil"
	"loyalty-connector/pkg/health"
	"loyalty-connector/pkg/metrics"
	"loyalty-connector/services/forwarder"
	"loyalty-connector/services/host"
	"loyalty-connector/services/identity"
	"loyalty-connector/services/ordertask"
	"loyalty-connector/services/redemption"
	"loyalty-connector/services/shortcode"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// OrderEvents forwards an order synchronously.
type OrderEvents interface {
	OrderCompleted(ctx context.Context, orderID string) forwarder.Result
}

// OrderQueue hands an order to the background worker and returns the task id.
type OrderQueue interface {
	OrderCompleted(ctx context.Context, orderID string) (string, error)
}

type Handler struct {
	ajaxAction   string
	users        host.Users
	resolver     *identity.Resolver
	orchestrator *redemption.Orchestrator
	renderer     *shortcode.Renderer
	events       OrderEvents
	queue        OrderQueue
	health       health.HealthService
}

type HandlerParams struct {
	fx.In
	Config       *config.Config
	Users        host.Users
	Resolver     *identity.Resolver
	Orchestrator *redemption.Orchestrator
	Renderer     *shortcode.Renderer
	Forwarder    *forwarder.Forwarder
	Queue        *ordertask.Dispatcher `optional:"true"`
	Health       health.HealthService  `optional:"true"`
}

func NewHandler(p HandlerParams) *Handler {
	h := &Handler{
		ajaxAction:   p.Config.Shortcode.AjaxAction,
		users:        p.Users,
		resolver:     p.Resolver,
		orchestrator: p.Orchestrator,
		renderer:     p.Renderer,
		events:       p.Forwarder,
		health:       p.Health,
	}
	if p.Queue != nil {
		h.queue = p.Queue
	}
	return h
}

func (h *Handler) scope(c *gin.Context) *identity.Scope {
	return h.resolver.Scope(actorFrom(c))
}

type ajaxRequest struct {
	Action   string `form:"action" json:"action"`
	Selected string `form:"selected" json:"selected"`
}

// Redeem answers the redemption AJAX call. Business outcomes are always a 200 with a
// redemption result; only an unknown action is rejected.
func (h *Handler) Redeem(c *gin.Context) {
	var req ajaxRequest
	if err := c.ShouldBind(&req); err != nil {
		_ = c.Error(errutil.BadRequest("invalid request body", err))
		return
	}

	if req.Action != h.ajaxAction {
		_ = c.Error(errutil.BadRequest("unknown action", nil, errutil.WithDetails(errutil.Detail{
			Field:   "action",
			Message: "must be " + h.ajaxAction,
		})))
		return
	}

	res := h.orchestrator.NewRequest(h.scope(c)).Redeem(c.Request.Context(), req.Selected)
	c.JSON(http.StatusOK, res)
}

func (h *Handler) BalanceFragment(c *gin.Context) {
	html := h.renderer.BalanceFragment(c.Request.Context(), h.scope(c), h.balanceAttrs(c))
	writeHTML(c, string(html))
}

func (h *Handler) RedemptionForm(c *gin.Context) {
	req := h.orchestrator.NewRequest(h.scope(c))
	html, err := h.renderer.RedemptionForm(c.Request.Context(), req, h.formAttrs(c))
	if err != nil {
		_ = c.Error(errutil.Internal("failed to render redemption form", err))
		return
	}
	writeHTML(c, string(html))
}

type orderHookRequest struct {
	OrderID string `json:"order_id" form:"order_id" binding:"required"`
}

type orderHookResponse struct {
	Status           string `json:"status"`
	RemoteCustomerID string `json:"remote_customer_id,omitempty"`
	TaskID           string `json:"task_id,omitempty"`
}

// OrderCompleted is the host's order completion hook. Forwarding problems never fail the
// hook; the body only reports what happened.
func (h *Handler) OrderCompleted(c *gin.Context) {
	var req orderHookRequest
	if err := c.ShouldBind(&req); err != nil {
		_ = c.Error(errutil.Validation("order_id is required", errutil.WithErr(err), errutil.WithDetails(errutil.Detail{
			Field:   "order_id",
			Message: "required",
		})))
		return
	}

	ctx := c.Request.Context()
	if h.queue != nil && c.Query("async") == "true" {
		taskID, err := h.queue.OrderCompleted(ctx, req.OrderID)
		if err == nil {
			c.JSON(http.StatusAccepted, orderHookResponse{Status: "queued", TaskID: taskID})
			return
		}
		zap.L().Warn("order queue unavailable, forwarding inline", zap.String("order_id", req.OrderID), zap.Error(err))
	}

	res := h.events.OrderCompleted(ctx, req.OrderID)
	c.JSON(http.StatusAccepted, orderHookResponse{
		Status:           res.Status.String(),
		RemoteCustomerID: res.RemoteCustomerID,
	})
}

func (h *Handler) Liveness(c *gin.Context) {
	if h.health == nil {
		c.JSON(http.StatusOK, gin.H{"status": health.StatusHealthy})
		return
	}
	h.health.Liveness(c)
}

func (h *Handler) Readiness(c *gin.Context) {
	if h.health == nil {
		c.JSON(http.StatusOK, gin.H{"status": health.StatusHealthy})
		return
	}
	h.health.Readiness(c)
}

func (h *Handler) Metrics() gin.HandlerFunc {
	return gin.WrapH(metrics.Handler())
}

func writeHTML(c *gin.Context, html string) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
}

package ordertask

import (
	"context"
	"encoding/json"
	"fmt"

	"loyalty-connector/pkg/task"
	"loyalty-connector/services/forwarder"

	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// OrderEvents is the part of the forwarder the task handler needs.
type OrderEvents interface {
	OrderCompleted(ctx context.Context, orderID string) forwarder.Result
}

type Handler struct {
	events OrderEvents
}

type HandlerParams struct {
	fx.In
	Forwarder *forwarder.Forwarder
}

func NewHandler(p HandlerParams) *Handler {
	return &Handler{events: p.Forwarder}
}

// HandleOrderCompleted forwards the order event. Forwarding is fire-and-forget, so the
// handler never asks asynq for a retry.
func (h *Handler) HandleOrderCompleted(ctx context.Context, t *asynq.Task) error {
	var payload OrderCompletedPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		zap.L().Error("invalid order completed payload", zap.String("task_type", t.Type()), zap.Error(err))
		return fmt.Errorf("invalid payload: %v: %w", err, asynq.SkipRetry)
	}

	zapLog := zap.L().With(
		zap.String("task_type", t.Type()),
		zap.String("order_id", payload.OrderID),
		zap.String("trace_id", payload.TraceID),
	)

	res := h.events.OrderCompleted(ctx, payload.OrderID)
	zapLog.Info("order completed task processed", zap.String("status", res.Status.String()))
	return nil
}

type Dispatcher struct {
	enqueuer task.Enqueuer
}

func NewDispatcher(enqueuer task.Enqueuer) *Dispatcher {
	return &Dispatcher{enqueuer: enqueuer}
}

// OrderCompleted queues the order for forwarding. Tasks are not retried.
func (d *Dispatcher) OrderCompleted(ctx context.Context, orderID string) (string, error) {
	payload := OrderCompletedPayload{OrderID: orderID}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		payload.TraceID = sc.TraceID().String()
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	info, err := d.enqueuer.Enqueue(ctx, asynq.NewTask(TypeOrderCompleted, raw),
		asynq.MaxRetry(0),
		asynq.Queue(task.QueueCritical),
	)
	if err != nil {
		zap.L().Error("failed to enqueue order completed task", zap.String("order_id", orderID), zap.Error(err))
		return "", err
	}
	return info.ID, nil
}

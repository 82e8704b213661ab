package ordertask

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"loyalty-connector/services/forwarder"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type mockEvents struct {
	orderCompletedFn func(ctx context.Context, orderID string) forwarder.Result
}

func (m *mockEvents) OrderCompleted(ctx context.Context, orderID string) forwarder.Result {
	return m.orderCompletedFn(ctx, orderID)
}

type mockEnqueuer struct {
	enqueueFn func(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

func (m *mockEnqueuer) Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	return m.enqueueFn(ctx, task, opts...)
}

func TestHandleOrderCompleted(t *testing.T) {
	var got string
	h := &Handler{events: &mockEvents{orderCompletedFn: func(_ context.Context, orderID string) forwarder.Result {
		got = orderID
		return forwarder.Result{Status: forwarder.StatusFailed, Err: errors.New("remote down")}
	}}}

	err := h.HandleOrderCompleted(context.Background(), asynq.NewTask(TypeOrderCompleted, []byte(`{"order_id":"1001"}`)))
	require.NoError(t, err)
	require.Equal(t, "1001", got)
}

func TestHandleOrderCompletedMalformedPayload(t *testing.T) {
	h := &Handler{events: &mockEvents{orderCompletedFn: func(context.Context, string) forwarder.Result {
		t.Fatal("forwarder must not be called")
		return forwarder.Result{}
	}}}

	err := h.HandleOrderCompleted(context.Background(), asynq.NewTask(TypeOrderCompleted, []byte(`{`)))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestDispatcherEnqueuesWithoutRetry(t *testing.T) {
	var task *asynq.Task
	var opts []asynq.Option
	d := NewDispatcher(&mockEnqueuer{enqueueFn: func(_ context.Context, tk *asynq.Task, o ...asynq.Option) (*asynq.TaskInfo, error) {
		task, opts = tk, o
		return &asynq.TaskInfo{ID: "task-1"}, nil
	}})

	id, err := d.OrderCompleted(context.Background(), "1001")
	require.NoError(t, err)
	require.Equal(t, "task-1", id)
	require.Equal(t, TypeOrderCompleted, task.Type())
	require.JSONEq(t, `{"order_id":"1001"}`, string(task.Payload()))

	var maxRetry int = -1
	for _, o := range opts {
		if o.Type() == asynq.MaxRetryOpt {
			maxRetry = o.Value().(int)
		}
	}
	require.Equal(t, 0, maxRetry)
}

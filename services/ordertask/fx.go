package ordertask

import (
	"github.com/hibiken/asynq"
	"go.uber.org/fx"
)

var Module = fx.Module("ordertask",
	fx.Provide(NewDispatcher),
)

var WorkerModule = fx.Module("ordertask.worker",
	fx.Provide(NewHandler),
	fx.Invoke(registerHandler),
)

func registerHandler(mux *asynq.ServeMux, h *Handler) {
	mux.HandleFunc(TypeOrderCompleted, h.HandleOrderCompleted)
}

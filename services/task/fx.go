package task

import (
	"github.com/hibiken/asynq"
	"go.uber.org/fx"

	"cleancare-loyalty/services/notification"
)

var Module = fx.Module("task.sweep",
	fx.Provide(NewService, NewScheduler),
	fx.Invoke(StartScheduler, registerHandlers),
)

func registerHandlers(mux *asynq.ServeMux, s *Service) {
	mux.HandleFunc(notification.TypeBalanceSweep, s.HandleBalanceSweep)
}

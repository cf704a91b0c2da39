package pending

import (
	"go.uber.org/fx"
)

var Module = fx.Module("pending.service",
	fx.Provide(NewService),
)

var Gateway = fx.Module("pending.gateway",
	fx.Invoke(registerRoutes),
)

package reconcile

import (
	"go.uber.org/fx"
)

var Module = fx.Module("reconcile.service",
	fx.Provide(NewService),
)

var Gateway = fx.Module("reconcile.gateway",
	fx.Invoke(registerRoutes),
)

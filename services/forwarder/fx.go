package forwarder

import "go.uber.org/fx"

var Module = fx.Module("forwarder",
	fx.Provide(NewForwarder),
)

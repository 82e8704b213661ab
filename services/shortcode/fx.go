package shortcode

import "go.uber.org/fx"

var Module = fx.Module("shortcode",
	fx.Provide(NewRenderer),
)

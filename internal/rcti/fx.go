package rcti

import (
	"github.com/bldragon101/worklog/internal/rcti/service"
	"go.uber.org/fx"
)

var Module = fx.Module("rcti",
	fx.Provide(
		service.NewService,
	),
)

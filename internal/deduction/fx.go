package deduction

import (
	"github.com/bldragon101/worklog/internal/deduction/service"
	"go.uber.org/fx"
)

var Module = fx.Module("deduction",
	fx.Provide(
		service.NewService,
	),
)

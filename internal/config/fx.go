package config

import "go.uber.org/fx"

// Module wires application and payroll configuration.
var Module = fx.Module("config",
	fx.Provide(
		Load,
		NewPayrollConfigHolder,
	),
)

package providers

import (
	"github.com/bldragon101/worklog/internal/providers/email"
	"github.com/bldragon101/worklog/internal/providers/pdf"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	email.Module,
	pdf.Module,
)

package providers

import (
	"github.com/uniteorg/unite/internal/providers/email"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	email.Module,
)

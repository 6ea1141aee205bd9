package invitation

import (
	"github.com/uniteorg/unite/internal/invitation/repository"
	"github.com/uniteorg/unite/internal/invitation/service"
	"go.uber.org/fx"
)

var Module = fx.Module("invitation.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)

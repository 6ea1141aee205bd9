package organization

import (
	"github.com/uniteorg/unite/internal/organization/repository"
	"github.com/uniteorg/unite/internal/organization/service"
	"go.uber.org/fx"
)

var Module = fx.Module("organization.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)

package activity

import (
	"github.com/uniteorg/unite/internal/activity/repository"
	"github.com/uniteorg/unite/internal/activity/service"
	"go.uber.org/fx"
)

var Module = fx.Module("activity.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)

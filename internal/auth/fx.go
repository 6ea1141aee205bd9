package auth

import (
	"github.com/uniteorg/unite/internal/auth/repository"
	"github.com/uniteorg/unite/internal/auth/service"
	"go.uber.org/fx"
)

var Module = fx.Module("auth.service",
	fx.Provide(repository.New),
	fx.Provide(service.New),
)

package signup

import (
	activitydomain "github.com/uniteorg/unite/internal/activity/domain"
	"github.com/uniteorg/unite/internal/config"
	"github.com/uniteorg/unite/internal/signup/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("signup.service",
	fx.Provide(newProvisioner),
	fx.Provide(NewService),
)

func newProvisioner(cfg config.Config, activitySvc activitydomain.Service) domain.Provisioner {
	if !cfg.IsCloud() {
		return NewNoopProvisioner()
	}

	return NewActivityProvisioner(activitySvc)
}

package user

import (
	"github.com/owlbill/owlbill/internal/user/repository"
	"github.com/owlbill/owlbill/internal/user/service"
	"go.uber.org/fx"
)

var Module = fx.Module("user.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)

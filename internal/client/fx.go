package client

import (
	"github.com/owlbill/owlbill/internal/client/repository"
	"github.com/owlbill/owlbill/internal/client/service"
	"go.uber.org/fx"
)

var Module = fx.Module("client.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)

package invoice

import (
	"github.com/owlbill/owlbill/internal/invoice/repository"
	"github.com/owlbill/owlbill/internal/invoice/service"
	"go.uber.org/fx"
)

var Module = fx.Module("invoice.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)

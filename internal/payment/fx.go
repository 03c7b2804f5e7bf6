package payment

import (
	"github.com/owlbill/owlbill/internal/payment/repository"
	"github.com/owlbill/owlbill/internal/payment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)

package quote

import (
	"github.com/owlbill/owlbill/internal/quote/repository"
	"github.com/owlbill/owlbill/internal/quote/service"
	"go.uber.org/fx"
)

var Module = fx.Module("quote.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)

package migration

import (
	clientdomain "github.com/owlbill/owlbill/internal/client/domain"
	invoicedomain "github.com/owlbill/owlbill/internal/invoice/domain"
	paymentdomain "github.com/owlbill/owlbill/internal/payment/domain"
	quotedomain "github.com/owlbill/owlbill/internal/quote/domain"
	userdomain "github.com/owlbill/owlbill/internal/user/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB) error {
		if conn.Dialector.Name() != "postgres" {
			// Versioned migrations are postgres-only; other dialects
			// (local sqlite) get the schema straight from the models.
			return conn.AutoMigrate(
				&userdomain.User{},
				&clientdomain.Client{},
				&quotedomain.Quote{},
				&quotedomain.LineItem{},
				&invoicedomain.Invoice{},
				&paymentdomain.Payment{},
			)
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}),
)

package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/owlbill/owlbill/internal/clock"
	"github.com/owlbill/owlbill/internal/config"
	"github.com/owlbill/owlbill/internal/migration"
	"github.com/owlbill/owlbill/internal/observability"
	"github.com/owlbill/owlbill/internal/server"
	"github.com/owlbill/owlbill/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}

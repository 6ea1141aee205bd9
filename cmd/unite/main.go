package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/uniteorg/unite/internal/migration"
	"github.com/uniteorg/unite/internal/observability"
	"github.com/uniteorg/unite/internal/server"
	"github.com/uniteorg/unite/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
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

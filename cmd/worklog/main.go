package main

import (
	"github.com/bldragon101/worklog/internal/config"
	"github.com/bldragon101/worklog/internal/logger"
	"github.com/bldragon101/worklog/internal/migration"
	"github.com/bldragon101/worklog/internal/server"
	"github.com/bldragon101/worklog/pkg/db"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
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

package main

import (
	"os"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/checkoutrelay/internal/clock"
	"github.com/smallbiznis/checkoutrelay/internal/config"
	"github.com/smallbiznis/checkoutrelay/internal/migration"
	"github.com/smallbiznis/checkoutrelay/internal/observability"
	"github.com/smallbiznis/checkoutrelay/internal/server"
	"github.com/smallbiznis/checkoutrelay/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		clock.Module,
		server.Module,
	)
	app.Run()
}

// RegisterSnowflake builds the id node for journal rows. Each replica needs
// its own NODE_ID.
func RegisterSnowflake() (*snowflake.Node, error) {
	nodeID := int64(1)
	if raw := os.Getenv("NODE_ID"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, err
		}
		nodeID = parsed
	}
	return snowflake.NewNode(nodeID)
}

package migration

import (
	"github.com/smallbiznis/checkoutrelay/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg db.Config, log *zap.Logger) error {
		log = log.Named("migration")

		if cfg.Type != "postgres" {
			log.Info("applying schema with auto migrate", zap.String("type", cfg.Type))
			return AutoMigrate(conn)
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		log.Info("applying versioned migrations")
		return RunMigrations(sqlDB)
	}),
)

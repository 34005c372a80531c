package migrate

import (
	"context"
	"fmt"

	"github.com/tillpoint/pos-engine/pkg/config"
	"github.com/tillpoint/pos-engine/pkg/db"
	"github.com/tillpoint/pos-engine/pkg/db/models"
	"github.com/tillpoint/pos-engine/pkg/logger"
)

// Run migrates the engine's cache tables.
func Run(ctx context.Context, client *db.Client) error {
	conn := client.DB().WithContext(ctx)
	return conn.AutoMigrate(
		&models.HeldTransaction{},
		&models.Quote{},
		&models.QuoteLineItem{},
		&models.Sale{},
		&models.SaleLineItem{},
	)
}

// MaybeRunDev executes migrations automatically when the app is running in
// dev mode and the feature flag is enabled.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	ctx = logg.WithField(ctx, "env", cfg.App.Env)
	logg.Info(ctx, "running schema migrations (dev auto-run)")

	if err := Run(ctx, client); err != nil {
		return fmt.Errorf("running auto-migrate: %w", err)
	}

	logg.Info(ctx, "schema migrations completed")
	return nil
}

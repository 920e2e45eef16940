package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/mercavio/checkout/internal/repository"
)

// seedDemoCatalog loads the demo catalog into a development database so the
// checkout flow can be exercised without the catalog service running. The
// repository seeders are conflict-safe, so restarts are harmless.
func seedDemoCatalog(ctx context.Context, vendors repository.VendorRepository, products repository.ProductRepository, logger *zap.Logger) {
	if err := vendors.Seed(ctx); err != nil {
		logger.Warn("seed vendors", zap.Error(err))
		return
	}
	if err := products.Seed(ctx); err != nil {
		logger.Warn("seed products", zap.Error(err))
		return
	}
	logger.Info("seeded demo catalog")
}

// Command migrate applies the database migrations and optionally seeds a
// small sample catalogue for local development.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"kart-admin/internal/config"
	"kart-admin/internal/database"
	"kart-admin/internal/model"
	"kart-admin/internal/repository"

	"github.com/rs/zerolog"
)

func main() {
	seed := flag.Bool("seed", false, "insert sample categories, products and a user after migrating")
	flag.Parse()

	if err := run(*seed); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(seed bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := config.NewLogger(cfg.Logger)

	ctx := context.Background()
	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool, logger); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	if !seed {
		return nil
	}

	ctx = model.WithActor(ctx, "seed")
	return seedSample(ctx, repository.NewEntityRepository(pool, logger), logger)
}

func seedSample(ctx context.Context, store repository.EntityRepository, logger zerolog.Logger) error {
	clothing, err := store.Create(ctx, model.ResourceCategories, model.Payload{Fields: model.Fields{
		"name": "Clothing", "slug": "clothing", "status": model.CategoryStatusActive,
	}})
	if err != nil {
		return fmt.Errorf("seed category: %w", err)
	}
	shirts, err := store.Create(ctx, model.ResourceCategories, model.Payload{Fields: model.Fields{
		"name": "Shirts", "slug": "shirts", "parent_id": clothing.ID, "status": model.CategoryStatusActive,
	}})
	if err != nil {
		return fmt.Errorf("seed category: %w", err)
	}

	_, err = store.Create(ctx, model.ResourceProducts, model.Payload{
		Fields: model.Fields{
			"name": "Basic Tee", "slug": "basic-tee", "categoryId": shirts.ID,
			"price": 19.99, "originalPrice": 24.99, "status": model.ProductStatusActive,
			"isFeatured": true, "isNew": true, "isBestseller": false,
		},
		Collections: map[string][]model.Fields{
			"productVariants": {
				{"size": "M", "colorName": "White", "colorHex": "#ffffff", "price": 19.99, "originalPrice": 24.99, "quantity": 50},
				{"size": "L", "colorName": "Black", "colorHex": "#000000", "price": 19.99, "originalPrice": 24.99, "quantity": 30},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("seed product: %w", err)
	}

	_, err = store.Create(ctx, model.ResourceUsers, model.Payload{
		Fields: model.Fields{"username": "demo", "full_name": "Demo User", "gender": model.GenderOther},
		Collections: map[string][]model.Fields{
			"addresses": {{
				"full_name": "Demo User", "phone": "0900000000", "address": "1 Main St",
				"ward": "Ward 1", "district": "District 1", "city": "HCMC", "is_default": true,
			}},
		},
	})
	if err != nil {
		return fmt.Errorf("seed user: %w", err)
	}

	logger.Info().Msg("sample data inserted")
	return nil
}

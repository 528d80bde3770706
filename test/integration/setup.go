package integration

import (
	"context"
	"testing"
	"time"

	"kart-admin/internal/config"
	"kart-admin/internal/database"
	"kart-admin/internal/model"
	"kart-admin/internal/repository"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestDB represents a migrated test database instance.
type TestDB struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	Store     repository.EntityRepository
	ConnStr   string
}

// SetupTestDB starts a PostgreSQL container, applies the migrations and
// returns a repository on top of it.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	logger := zerolog.Nop()
	pool, err := database.NewPoolFromURL(ctx, connStr, config.DatabaseConfig{
		MaxConnections:  10,
		MinConnections:  2,
		MaxConnLifetime: 300,
	}, logger)
	if err != nil {
		t.Fatalf("failed to create connection pool: %v", err)
	}

	if err := database.Migrate(ctx, pool, logger); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	t.Cleanup(func() {
		pool.Close()
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	return &TestDB{
		Container: postgresContainer,
		Pool:      pool,
		Store:     repository.NewEntityRepository(pool, logger),
		ConnStr:   connStr,
	}
}

// SeedCategory inserts a category and returns it.
func SeedCategory(t *testing.T, db *TestDB, name, slug, parentID string) model.Entity {
	t.Helper()

	fields := model.Fields{"name": name, "slug": slug, "status": model.CategoryStatusActive}
	if parentID != "" {
		fields["parent_id"] = parentID
	}
	e, err := db.Store.Create(context.Background(), model.ResourceCategories, model.Payload{Fields: fields})
	if err != nil {
		t.Fatalf("failed to seed category %s: %v", slug, err)
	}
	return e
}

// SeedUser inserts a user with two addresses, the first one default.
func SeedUser(t *testing.T, db *TestDB, username string) model.Entity {
	t.Helper()

	address := func(street string, isDefault bool) model.Fields {
		return model.Fields{
			"full_name": "Alice Nguyen", "phone": "0901234567", "address": street,
			"ward": "Ben Nghe", "district": "1", "city": "HCMC", "is_default": isDefault,
		}
	}
	e, err := db.Store.Create(context.Background(), model.ResourceUsers, model.Payload{
		Fields: model.Fields{"username": username, "full_name": "Alice Nguyen", "gender": model.GenderFemale},
		Collections: map[string][]model.Fields{
			"addresses": {address("1 Le Loi", true), address("9 Tran Phu", false)},
		},
	})
	if err != nil {
		t.Fatalf("failed to seed user %s: %v", username, err)
	}
	return e
}

// CleanupDB removes every entity. Children go with their parent.
func CleanupDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	if _, err := pool.Exec(context.Background(), "DELETE FROM entities"); err != nil {
		t.Logf("failed to clean entities: %v", err)
	}
}

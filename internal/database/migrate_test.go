package database

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrations_Embedded(t *testing.T) {
	files, err := fs.Glob(Migrations(), "migrations/*.sql")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"migrations/00001_create_entities.sql",
		"migrations/00002_create_entity_children.sql",
		"migrations/00003_create_unique_keys.sql",
	}, files)
}

func TestMigrations_HaveUpAndDown(t *testing.T) {
	files, err := fs.Glob(Migrations(), "migrations/*.sql")
	require.NoError(t, err)

	for _, name := range files {
		t.Run(name, func(t *testing.T) {
			content, err := fs.ReadFile(Migrations(), name)
			require.NoError(t, err)
			text := string(content)

			assert.Contains(t, text, "-- +goose Up")
			assert.Contains(t, text, "-- +goose Down")
			assert.Equal(t, strings.Count(text, "-- +goose StatementBegin"), strings.Count(text, "-- +goose StatementEnd"))
		})
	}
}

package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"kart-admin/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// searchColumns are the JSON keys matched by a list search, besides the id.
var searchColumns = []string{"name", "username", "full_name", "account_name", "slug"}

// auditKeys are managed by the repository and never stored inside fields.
var auditKeys = []string{"id", "created_at", "created_by", "updated_at"}

// entityRepository implements EntityRepository using PostgreSQL.
type entityRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
	now    func() time.Time
}

// NewEntityRepository creates a new PostgreSQL-backed entity repository.
func NewEntityRepository(pool *pgxpool.Pool, logger zerolog.Logger) EntityRepository {
	return &entityRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "entity").Logger(),
		now:    func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

// List returns one page of entities matching filters, newest first.
func (r *entityRepository) List(ctx context.Context, resource model.ResourceType, filters model.Filters) (model.Page, error) {
	f := filters.Normalize()
	where, args := listConditions(resource, f)

	var total int
	countQuery := `SELECT COUNT(*) FROM entities WHERE ` + where
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		r.logger.Error().Err(err).Str("resource", string(resource)).Msg("failed to count entities")
		return model.Page{}, failure("list", resource, "", fmt.Errorf("failed to count entities: %w", err))
	}

	query := fmt.Sprintf(`
		SELECT id::text, fields, created_at, created_by, updated_at
		FROM entities
		WHERE %s
		ORDER BY created_at DESC, id
		LIMIT $%d OFFSET $%d
	`, where, len(args)+1, len(args)+2)
	args = append(args, f.Size, f.Offset())

	items, err := r.query(ctx, query, args...)
	if err != nil {
		r.logger.Error().Err(err).
			Str("resource", string(resource)).
			Int("page", f.Page).
			Int("size", f.Size).
			Msg("failed to query entities")
		return model.Page{}, failure("list", resource, "", err)
	}

	if err := r.loadChildren(ctx, items); err != nil {
		return model.Page{}, failure("list", resource, "", err)
	}

	return model.Page{
		Items:      items,
		Total:      total,
		Page:       f.Page,
		Size:       f.Size,
		TotalPages: model.TotalPages(total, f.Size),
	}, nil
}

// ListAll returns every entity of resource, oldest first.
func (r *entityRepository) ListAll(ctx context.Context, resource model.ResourceType) ([]model.Entity, error) {
	query := `
		SELECT id::text, fields, created_at, created_by, updated_at
		FROM entities
		WHERE resource_type = $1
		ORDER BY created_at, id
	`

	items, err := r.query(ctx, query, string(resource))
	if err != nil {
		r.logger.Error().Err(err).Str("resource", string(resource)).Msg("failed to query entities")
		return nil, failure("list", resource, "", err)
	}
	if err := r.loadChildren(ctx, items); err != nil {
		return nil, failure("list", resource, "", err)
	}
	return items, nil
}

// Get retrieves a single entity with its child collections.
func (r *entityRepository) Get(ctx context.Context, resource model.ResourceType, id string) (model.Entity, error) {
	if _, err := uuid.Parse(id); err != nil {
		return model.Entity{}, notFound("get", resource, id)
	}

	query := `
		SELECT id::text, fields, created_at, created_by, updated_at
		FROM entities
		WHERE id = $1::uuid AND resource_type = $2
	`

	items, err := r.query(ctx, query, id, string(resource))
	if err != nil {
		r.logger.Error().Err(err).Str("entity_id", id).Msg("failed to query entity")
		return model.Entity{}, failure("get", resource, id, err)
	}
	if len(items) == 0 {
		r.logger.Debug().Str("entity_id", id).Msg("entity not found")
		return model.Entity{}, notFound("get", resource, id)
	}
	if err := r.loadChildren(ctx, items); err != nil {
		return model.Entity{}, failure("get", resource, id, err)
	}
	return items[0], nil
}

// Create stores a new entity and returns it with its assigned id.
func (r *entityRepository) Create(ctx context.Context, resource model.ResourceType, payload model.Payload) (model.Entity, error) {
	entity := model.Entity{
		ID:        uuid.NewString(),
		Fields:    storedFields(payload.Fields),
		CreatedAt: r.now(),
		CreatedBy: model.ActorFrom(ctx),
	}
	entity.UpdatedAt = entity.CreatedAt

	body, err := json.Marshal(entity.Fields)
	if err != nil {
		return model.Entity{}, failure("create", resource, "", fmt.Errorf("failed to encode fields: %w", err))
	}

	err = pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		query := `
			INSERT INTO entities (id, resource_type, fields, created_at, created_by, updated_at)
			VALUES ($1::uuid, $2, $3::jsonb, $4, $5, $6)
		`
		if _, err := tx.Exec(ctx, query,
			entity.ID, string(resource), string(body), entity.CreatedAt, entity.CreatedBy, entity.UpdatedAt,
		); err != nil {
			return fmt.Errorf("failed to insert entity: %w", err)
		}

		children, err := r.insertChildren(ctx, tx, entity.ID, payload.Collections)
		if err != nil {
			return err
		}
		entity.Children = children
		return nil
	})
	if err != nil {
		r.logger.Error().Err(err).Str("resource", string(resource)).Msg("failed to create entity")
		return model.Entity{}, failure("create", resource, "", err)
	}

	r.logger.Debug().
		Str("resource", string(resource)).
		Str("entity_id", entity.ID).
		Str("created_by", entity.CreatedBy).
		Msg("entity created successfully")

	return entity, nil
}

// Update replaces the fields of an entity and every collection named in the
// payload. Collections absent from the payload are kept.
func (r *entityRepository) Update(ctx context.Context, resource model.ResourceType, id string, payload model.Payload) (model.Entity, error) {
	if _, err := uuid.Parse(id); err != nil {
		return model.Entity{}, notFound("update", resource, id)
	}

	entity := model.Entity{
		ID:        id,
		Fields:    storedFields(payload.Fields),
		UpdatedAt: r.now(),
	}
	body, err := json.Marshal(entity.Fields)
	if err != nil {
		return model.Entity{}, failure("update", resource, id, fmt.Errorf("failed to encode fields: %w", err))
	}

	missing := false
	err = pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		query := `
			UPDATE entities
			SET fields = $3::jsonb, updated_at = $4
			WHERE id = $1::uuid AND resource_type = $2
			RETURNING created_at, created_by
		`
		err := tx.QueryRow(ctx, query, id, string(resource), string(body), entity.UpdatedAt).
			Scan(&entity.CreatedAt, &entity.CreatedBy)
		if err == pgx.ErrNoRows {
			missing = true
			return err
		}
		if err != nil {
			return fmt.Errorf("failed to update entity: %w", err)
		}

		names := collectionNames(payload.Collections)
		if len(names) > 0 {
			if _, err := tx.Exec(ctx,
				`DELETE FROM entity_children WHERE entity_id = $1::uuid AND collection = ANY($2)`,
				id, names,
			); err != nil {
				return fmt.Errorf("failed to clear child records: %w", err)
			}
		}

		children, err := r.insertChildren(ctx, tx, id, payload.Collections)
		if err != nil {
			return err
		}
		entity.Children = children
		return nil
	})
	if missing {
		r.logger.Debug().Str("entity_id", id).Msg("entity not found")
		return model.Entity{}, notFound("update", resource, id)
	}
	if err != nil {
		r.logger.Error().Err(err).Str("entity_id", id).Msg("failed to update entity")
		return model.Entity{}, failure("update", resource, id, err)
	}

	// collections the payload left alone are still part of the entity
	current := []model.Entity{{ID: id}}
	if err := r.loadChildren(ctx, current); err != nil {
		r.logger.Warn().Err(err).Str("entity_id", id).Msg("failed to reload child records")
	}
	for name, records := range current[0].Children {
		if _, ok := entity.Children[name]; !ok {
			entity.Children[name] = records
		}
	}

	r.logger.Debug().Str("resource", string(resource)).Str("entity_id", id).Msg("entity updated successfully")

	return entity, nil
}

// Delete removes an entity and its children.
func (r *entityRepository) Delete(ctx context.Context, resource model.ResourceType, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return notFound("delete", resource, id)
	}

	tag, err := r.pool.Exec(ctx, `DELETE FROM entities WHERE id = $1::uuid AND resource_type = $2`, id, string(resource))
	if err != nil {
		r.logger.Error().Err(err).Str("entity_id", id).Msg("failed to delete entity")
		return failure("delete", resource, id, err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("delete", resource, id)
	}

	r.logger.Debug().Str("resource", string(resource)).Str("entity_id", id).Msg("entity deleted successfully")
	return nil
}

func (r *entityRepository) query(ctx context.Context, query string, args ...any) ([]model.Entity, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entities: %w", err)
	}
	defer rows.Close()

	items := []model.Entity{}
	for rows.Next() {
		var (
			e    model.Entity
			body []byte
		)
		if err := rows.Scan(&e.ID, &body, &e.CreatedAt, &e.CreatedBy, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan entity: %w", err)
		}
		if err := json.Unmarshal(body, &e.Fields); err != nil {
			return nil, fmt.Errorf("failed to decode entity %s: %w", e.ID, err)
		}
		items = append(items, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating entities: %w", err)
	}
	return items, nil
}

// loadChildren fills the child collections of items with one query.
func (r *entityRepository) loadChildren(ctx context.Context, items []model.Entity) error {
	if len(items) == 0 {
		return nil
	}

	ids := make([]string, len(items))
	index := make(map[string]int, len(items))
	for i, e := range items {
		ids[i] = e.ID
		index[e.ID] = i
	}

	query := `
		SELECT entity_id::text, collection, id::text, fields
		FROM entity_children
		WHERE entity_id = ANY($1::uuid[])
		ORDER BY entity_id, collection, position
	`
	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		r.logger.Error().Err(err).Int("count", len(ids)).Msg("failed to query child records")
		return fmt.Errorf("failed to query child records: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			entityID, collection, childID string
			body                          []byte
		)
		if err := rows.Scan(&entityID, &collection, &childID, &body); err != nil {
			return fmt.Errorf("failed to scan child record: %w", err)
		}
		var fields model.Fields
		if err := json.Unmarshal(body, &fields); err != nil {
			return fmt.Errorf("failed to decode child record %s: %w", childID, err)
		}
		if fields == nil {
			fields = model.Fields{}
		}
		fields["id"] = childID

		e := &items[index[entityID]]
		if e.Children == nil {
			e.Children = map[string][]model.Fields{}
		}
		e.Children[collection] = append(e.Children[collection], fields)
	}
	return rows.Err()
}

// insertChildren stores every record of collections under entityID with
// fresh ids and returns the stored records.
func (r *entityRepository) insertChildren(ctx context.Context, tx pgx.Tx, entityID string, collections map[string][]model.Fields) (map[string][]model.Fields, error) {
	out := make(map[string][]model.Fields, len(collections))
	batch := &pgx.Batch{}
	query := `
		INSERT INTO entity_children (id, entity_id, collection, position, fields)
		VALUES ($1::uuid, $2::uuid, $3, $4, $5::jsonb)
	`

	for _, name := range collectionNames(collections) {
		records := collections[name]
		stored := make([]model.Fields, 0, len(records))
		for pos, rec := range records {
			fields := storedFields(rec)
			body, err := json.Marshal(fields)
			if err != nil {
				return nil, fmt.Errorf("failed to encode %s record: %w", name, err)
			}
			childID := uuid.NewString()
			batch.Queue(query, childID, entityID, name, pos, string(body))

			fields["id"] = childID
			stored = append(stored, fields)
		}
		out[name] = stored
	}

	if batch.Len() == 0 {
		return out, nil
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			return nil, fmt.Errorf("failed to insert child record: %w", err)
		}
	}

	r.logger.Debug().Str("entity_id", entityID).Int("count", batch.Len()).Msg("child records stored")
	return out, nil
}

func listConditions(resource model.ResourceType, f model.Filters) (string, []any) {
	conds := []string{"resource_type = $1"}
	args := []any{string(resource)}

	keys := make([]string, 0, len(f.Match))
	for k := range f.Match {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := strings.TrimSpace(f.Match[k])
		if v == "" {
			continue
		}
		args = append(args, k, v)
		conds = append(conds, fmt.Sprintf("fields->>$%d::text = $%d", len(args)-1, len(args)))
	}

	if term := strings.TrimSpace(f.Search); term != "" {
		args = append(args, "%"+escapeLike(term)+"%")
		n := len(args)
		match := []string{fmt.Sprintf("id::text ILIKE $%d", n)}
		for _, col := range searchColumns {
			match = append(match, fmt.Sprintf("fields->>'%s' ILIKE $%d", col, n))
		}
		conds = append(conds, "("+strings.Join(match, " OR ")+")")
	}

	return strings.Join(conds, " AND "), args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func storedFields(f model.Fields) model.Fields {
	out := f.Clone()
	if out == nil {
		out = model.Fields{}
	}
	for _, k := range auditKeys {
		delete(out, k)
	}
	return out
}

func collectionNames(collections map[string][]model.Fields) []string {
	names := make([]string, 0, len(collections))
	for name := range collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

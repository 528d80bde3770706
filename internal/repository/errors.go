package repository

import (
	"context"
	"errors"
	"net"
	"strings"

	"kart-admin/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// uniqueFields maps unique index names to the field they guard.
var uniqueFields = map[string]string{
	"uq_entities_product_slug":  "slug",
	"uq_entities_category_slug": "slug",
	"uq_entities_username":      "username",
}

// failure wraps err into a categorised persistence failure.
func failure(op string, resource model.ResourceType, id string, err error) *model.PersistenceFailure {
	kind, fields := classify(err)
	return &model.PersistenceFailure{
		Kind:     kind,
		Op:       op,
		Resource: resource,
		ID:       id,
		Fields:   fields,
		Err:      err,
	}
}

func notFound(op string, resource model.ResourceType, id string) *model.PersistenceFailure {
	return &model.PersistenceFailure{
		Kind:     model.FailureNotFound,
		Op:       op,
		Resource: resource,
		ID:       id,
		Err:      &model.NotFoundError{Resource: string(resource), ID: id},
	}
}

func classify(err error) (model.FailureKind, []model.FieldError) {
	if errors.Is(err, pgx.ErrNoRows) {
		return model.FailureNotFound, nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err) {
		return model.FailureNetwork, nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "23505":
			if field, ok := uniqueFields[pgErr.ConstraintName]; ok {
				return model.FailureConflict, []model.FieldError{{Field: field, Message: "is already taken"}}
			}
			return model.FailureConflict, nil
		case strings.HasPrefix(pgErr.Code, "23"), strings.HasPrefix(pgErr.Code, "22"):
			field := pgErr.ColumnName
			if field == "" {
				field = pgErr.ConstraintName
			}
			return model.FailureRejected, []model.FieldError{{Field: field, Message: pgErr.Message}}
		case strings.HasPrefix(pgErr.Code, "08"), pgErr.Code == "57P01", pgErr.Code == "57P03":
			return model.FailureNetwork, nil
		}
		return model.FailureInternal, nil
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return model.FailureNetwork, nil
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return model.FailureNetwork, nil
	}
	return model.FailureInternal, nil
}

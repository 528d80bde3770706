package handler

import (
	"net/http"

	"kart-admin/internal/service"

	"github.com/rs/zerolog"
)

// CategoryHandler serves the category hierarchy.
type CategoryHandler struct {
	categories *service.CategoryPage
	logger     zerolog.Logger
}

// NewCategoryHandler creates a new category handler.
func NewCategoryHandler(categories *service.CategoryPage, logger zerolog.Logger) *CategoryHandler {
	return &CategoryHandler{
		categories: categories,
		logger:     logger.With().Str("handler", "category").Logger(),
	}
}

// Tree handles GET /api/categories/tree.
func (h *CategoryHandler) Tree(w http.ResponseWriter, r *http.Request) {
	nodes, err := h.categories.Tree(r.Context())
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, nodes)
}

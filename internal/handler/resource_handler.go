package handler

import (
	"net/http"
	"strconv"
	"strings"

	"kart-admin/internal/model"
	"kart-admin/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// ResourceHandler serves the list screens of every resource.
type ResourceHandler struct {
	pages  *service.Pages
	logger zerolog.Logger
}

// NewResourceHandler creates a new resource handler.
func NewResourceHandler(pages *service.Pages, logger zerolog.Logger) *ResourceHandler {
	return &ResourceHandler{
		pages:  pages,
		logger: logger.With().Str("handler", "resource").Logger(),
	}
}

// List handles GET /api/{resource}?search=&status=&sort=&order=&page=&size=.
func (h *ResourceHandler) List(w http.ResponseWriter, r *http.Request) {
	p, err := page(h.pages, r)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	q, err := parseListQuery(r)
	if err != nil {
		writeRequestError(w, r, err, h.logger)
		return
	}

	result, err := p.List(r.Context(), q)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Delete handles DELETE /api/{resource}/{id}.
func (h *ResourceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p, err := page(h.pages, r)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	if err := p.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// listParams are the query parameters that are not field filters. Any other
// parameter, except those starting with "_", filters on the field it names.
var listParams = map[string]bool{"search": true, "sort": true, "order": true, "page": true, "size": true}

func parseListQuery(r *http.Request) (service.ListQuery, error) {
	values := r.URL.Query()
	q := service.ListQuery{
		Filters: model.Filters{
			Search: strings.TrimSpace(values.Get("search")),
		},
		Sort: strings.TrimSpace(values.Get("sort")),
	}
	for key := range values {
		if listParams[key] || strings.HasPrefix(key, "_") {
			continue
		}
		if v := strings.TrimSpace(values.Get(key)); v != "" {
			if q.Match == nil {
				q.Match = map[string]string{}
			}
			q.Match[key] = v
		}
	}

	var err error
	if q.Page, err = intParam(values.Get("page"), "page"); err != nil {
		return q, err
	}
	if q.Size, err = intParam(values.Get("size"), "size"); err != nil {
		return q, err
	}

	switch strings.ToLower(values.Get("order")) {
	case "", "asc", "ascend":
	case "desc", "descend":
		q.Desc = true
	default:
		return q, errBadRequest("invalid order parameter")
	}
	return q, nil
}

func intParam(s, name string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, errBadRequest("invalid " + name + " parameter")
	}
	return n, nil
}

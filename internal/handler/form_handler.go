package handler

import (
	"errors"
	"io"
	"net/http"

	"kart-admin/internal/form"
	"kart-admin/internal/model"
	"kart-admin/internal/service"
	"kart-admin/internal/upload"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// FormHandler drives the form session of every resource page.
type FormHandler struct {
	pages  *service.Pages
	logger zerolog.Logger
}

// NewFormHandler creates a new form handler.
func NewFormHandler(pages *service.Pages, logger zerolog.Logger) *FormHandler {
	return &FormHandler{
		pages:  pages,
		logger: logger.With().Str("handler", "form").Logger(),
	}
}

// OpenRequest opens the form. ID is required in edit and view mode.
type OpenRequest struct {
	Mode string `json:"mode"`
	ID   string `json:"id,omitempty"`
}

// FieldRequest sets one draft field.
type FieldRequest struct {
	Value any `json:"value"`
}

// RecordResponse carries the id given to a new sub-record.
type RecordResponse struct {
	ID string `json:"id"`
}

// ImageResponse carries the URL of an uploaded image.
type ImageResponse struct {
	URL string `json:"url"`
}

// Open handles POST /api/{resource}/form.
func (h *FormHandler) Open(w http.ResponseWriter, r *http.Request) {
	p, ok := h.page(w, r)
	if !ok {
		return
	}

	var req OpenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeRequestError(w, r, err, h.logger)
		return
	}

	mode, err := form.ParseMode(req.Mode)
	if err != nil {
		writeRequestError(w, r, errBadRequest(err.Error()), h.logger)
		return
	}

	switch mode {
	case form.ModeAdd:
		err = p.OpenAdd()
	case form.ModeEdit:
		err = p.OpenEdit(r.Context(), req.ID)
	case form.ModeView:
		err = p.OpenView(r.Context(), req.ID)
	}
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, p.Form().Snapshot())
}

// Get handles GET /api/{resource}/form.
func (h *FormHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, ok := h.page(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, p.Form().Snapshot())
}

// Cancel handles DELETE /api/{resource}/form.
func (h *FormHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	p, ok := h.page(w, r)
	if !ok {
		return
	}
	if err := p.Form().Cancel(); err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetField handles PUT /api/{resource}/form/fields/{field}.
func (h *FormHandler) SetField(w http.ResponseWriter, r *http.Request) {
	p, ok := h.page(w, r)
	if !ok {
		return
	}

	var req FieldRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeRequestError(w, r, err, h.logger)
		return
	}

	if err := p.Form().SetField(chi.URLParam(r, "field"), req.Value); err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, p.Form().Snapshot())
}

// AddRecord handles POST /api/{resource}/form/collections/{name}.
func (h *FormHandler) AddRecord(w http.ResponseWriter, r *http.Request) {
	p, ok := h.page(w, r)
	if !ok {
		return
	}

	var fields model.Fields
	if err := decodeJSON(w, r, &fields); err != nil {
		writeRequestError(w, r, err, h.logger)
		return
	}

	id, err := p.Form().AddRecord(chi.URLParam(r, "name"), fields)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusCreated, RecordResponse{ID: id})
}

// RemoveRecord handles DELETE /api/{resource}/form/collections/{name}/{id}.
func (h *FormHandler) RemoveRecord(w http.ResponseWriter, r *http.Request) {
	p, ok := h.page(w, r)
	if !ok {
		return
	}
	if err := p.Form().RemoveRecord(chi.URLParam(r, "name"), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetDefault handles POST /api/{resource}/form/collections/{name}/{id}/default.
func (h *FormHandler) SetDefault(w http.ResponseWriter, r *http.Request) {
	p, ok := h.page(w, r)
	if !ok {
		return
	}

	name := chi.URLParam(r, "name")
	if err := p.Form().SetDefault(name, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	records, err := p.Form().Records(name)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// UploadImage handles POST /api/{resource}/form/images/{field} with a
// multipart "image" part.
func (h *FormHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	p, ok := h.page(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, upload.MaxImageSize+(1<<20))
	file, header, err := r.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, upload.ErrImageTooLarge, h.logger)
			return
		}
		writeRequestError(w, r, errBadRequest("multipart field \"image\" is required"), h.logger)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, upload.MaxImageSize+1))
	if err != nil {
		writeRequestError(w, r, errBadRequest("failed to read image"), h.logger)
		return
	}

	img := upload.Image{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}
	url, err := p.Form().UploadImage(r.Context(), chi.URLParam(r, "field"), img)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusCreated, ImageResponse{URL: url})
}

// RemoveImage handles DELETE /api/{resource}/form/images/{field}?url=.
func (h *FormHandler) RemoveImage(w http.ResponseWriter, r *http.Request) {
	p, ok := h.page(w, r)
	if !ok {
		return
	}

	url := r.URL.Query().Get("url")
	if url == "" {
		writeRequestError(w, r, errBadRequest("url parameter is required"), h.logger)
		return
	}
	if err := p.Form().RemoveImage(chi.URLParam(r, "field"), url); err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Submit handles POST /api/{resource}/form/submit. A created entity answers
// 201, an updated one 200.
func (h *FormHandler) Submit(w http.ResponseWriter, r *http.Request) {
	p, ok := h.page(w, r)
	if !ok {
		return
	}

	saved, err := p.Form().Submit(r.Context())
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	status := http.StatusOK
	if saved.Mode == form.ModeAdd {
		status = http.StatusCreated
	}
	writeJSON(w, status, saved.Entity)
}

func (h *FormHandler) page(w http.ResponseWriter, r *http.Request) (*service.Page, bool) {
	p, err := page(h.pages, r)
	if err != nil {
		writeError(w, r, err, h.logger)
		return nil, false
	}
	return p, true
}

package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"kart-admin/internal/model"
	"kart-admin/internal/service"
	"kart-admin/internal/upload"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// ErrCodeInvalidImage is returned for uploads that are not an accepted image.
const ErrCodeInvalidImage = "INVALID_IMAGE"

// maxJSONBody bounds request bodies other than image uploads.
const maxJSONBody = 1 << 20

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		return
	}
}

// writeError maps err onto an HTTP status and a standard error body.
func writeError(w http.ResponseWriter, r *http.Request, err error, logger zerolog.Logger) {
	status, resp := errorResponse(err)
	resp.CorrelationID = chimw.GetReqID(r.Context())

	event := logger.Warn()
	if status >= http.StatusInternalServerError {
		event = logger.Error()
	}
	event.Err(err).Int("status", status).Str("code", resp.Error).Msg("request failed")

	writeJSON(w, status, resp)
}

func errorResponse(err error) (int, model.ErrorResponse) {
	resp := model.ErrorResponse{Error: model.ErrorCode(err), Message: err.Error()}

	var failure *model.PersistenceFailure
	if errors.As(err, &failure) {
		resp.Fields = failure.Fields
		switch failure.Kind {
		case model.FailureRejected:
			return http.StatusUnprocessableEntity, resp
		case model.FailureNotFound:
			return http.StatusNotFound, resp
		case model.FailureConflict:
			return http.StatusConflict, resp
		case model.FailureNetwork:
			return http.StatusServiceUnavailable, resp
		}
		resp.Message = "internal server error"
		return http.StatusInternalServerError, resp
	}

	var verr *model.ValidationError
	if errors.As(err, &verr) {
		resp.Fields = verr.Fields
		return http.StatusUnprocessableEntity, resp
	}

	switch {
	case errors.Is(err, upload.ErrImageTooLarge):
		resp.Error = ErrCodeInvalidImage
		return http.StatusRequestEntityTooLarge, resp
	case errors.Is(err, upload.ErrUnsupportedImage):
		resp.Error = ErrCodeInvalidImage
		return http.StatusUnsupportedMediaType, resp
	case errors.Is(err, upload.ErrEmptyImage):
		resp.Error = ErrCodeInvalidImage
		return http.StatusBadRequest, resp
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound, resp
	case errors.Is(err, model.ErrInvalidOperation):
		return http.StatusConflict, resp
	case errors.Is(err, model.ErrCyclicHierarchy):
		return http.StatusUnprocessableEntity, resp
	}

	resp.Error = model.ErrCodeInternalError
	resp.Message = "internal server error"
	return http.StatusInternalServerError, resp
}

// decodeJSON reads a JSON request body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	body := http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errBadRequest("request body is empty")
		}
		return errBadRequest(fmt.Sprintf("invalid JSON: %v", err))
	}
	return nil
}

// badRequest reports a malformed request.
type badRequest struct {
	msg string
}

func errBadRequest(msg string) error { return &badRequest{msg: msg} }

func (e *badRequest) Error() string { return e.msg }

func (e *badRequest) Code() string { return model.ErrCodeInvalidJSON }

// writeRequestError writes a 400 for malformed input and defers to
// writeError for everything else.
func writeRequestError(w http.ResponseWriter, r *http.Request, err error, logger zerolog.Logger) {
	var br *badRequest
	if errors.As(err, &br) {
		logger.Warn().Err(err).Msg("bad request")
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{
			Error:         br.Code(),
			Message:       br.msg,
			CorrelationID: chimw.GetReqID(r.Context()),
		})
		return
	}
	writeError(w, r, err, logger)
}

// page resolves the {resource} URL parameter.
func page(pages *service.Pages, r *http.Request) (*service.Page, error) {
	name := chi.URLParam(r, "resource")
	p, ok := pages.Page(model.ResourceType(name))
	if !ok {
		return nil, &model.NotFoundError{Resource: "resource", ID: name}
	}
	return p, nil
}

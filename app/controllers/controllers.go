// Package controllers translates HTTP requests into service calls and
// service results into the JSON envelope.
package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sesamoshop/tienda/app/services"
	"github.com/sesamoshop/tienda/internal/uploads"
	"github.com/sesamoshop/tienda/pkg/logger"
	"github.com/sesamoshop/tienda/pkg/response"
)

// idParam reads the {id} route parameter as an int. Zero means malformed.
func idParam(r *http.Request) int {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id < 1 {
		return 0
	}
	return id
}

// pageParams reads ?page= and ?limit= with the defaults the storefront
// always used.
func pageParams(r *http.Request) (page, limit int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}
	return page, limit
}

// writeServiceError maps service errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	var inUse *services.CategoryInUseError
	switch {
	case errors.Is(err, services.ErrNotFound):
		response.Error(w, http.StatusNotFound, "No encontrado")
	case errors.Is(err, services.ErrDuplicateCategory):
		response.Conflict(w, err.Error(), nil)
	case errors.As(err, &inUse):
		response.Conflict(w, err.Error(), map[string]int{"products": inUse.Count})
	case errors.Is(err, services.ErrFeaturedLimit):
		response.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, uploads.ErrNotAnImage):
		response.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, uploads.ErrTooLarge):
		response.Error(w, http.StatusRequestEntityTooLarge, err.Error())
	default:
		logger.Error("controller: unhandled service error", "error", err)
		response.Error(w, http.StatusInternalServerError, "Error interno del servidor")
	}
}

package httpkit

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	perr "pursue/internal/platform/errors"
)

// Param returns a chi path parameter
func Param(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}

// ParamUUID parses a path parameter as a UUID.
// Malformed ids read as NotFound so resource existence is never leaked
func ParamUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, perr.NotFoundf("resource not found")
	}
	return id, nil
}

// QueryInt parses an integer query param, returning def when absent or junk
func QueryInt(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// Query returns a query param or def when absent
func Query(r *http.Request, name, def string) string {
	if v := r.URL.Query().Get(name); v != "" {
		return v
	}
	return def
}

package httpkit

import (
	"io"
	"net/http"
	"strings"

	perrs "pursue/internal/platform/errors"
)

// ReadImage pulls an uploaded image out of a request. Multipart bodies read
// the named file field; every other content type is treated as a raw image
// body. maxBytes caps the upload either way
func ReadImage(r *http.Request, field string, maxBytes int64) ([]byte, error) {
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(ct)), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxBytes); err != nil {
			return nil, perrs.Newf(perrs.ErrorCodeValidation, "multipart body is malformed")
		}
		f, _, err := r.FormFile(field)
		if err != nil {
			return nil, perrs.WithField(
				perrs.Newf(perrs.ErrorCodeValidation, "missing file field %q", field), field)
		}
		defer f.Close()
		return readCapped(f, maxBytes)
	}
	defer r.Body.Close()
	return readCapped(r.Body, maxBytes)
}

// readCapped reads at most maxBytes and rejects anything longer. Reading one
// byte past the cap tells an oversized body apart from an exact fit
func readCapped(src io.Reader, maxBytes int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(src, maxBytes+1))
	if err != nil {
		return nil, perrs.Newf(perrs.ErrorCodeValidation, "could not read image body")
	}
	if int64(len(data)) > maxBytes {
		return nil, perrs.Reasonedf(perrs.ErrorCodeValidation, "IMAGE_TOO_LARGE",
			"image exceeds the %d byte limit", maxBytes)
	}
	if len(data) == 0 {
		return nil, perrs.Newf(perrs.ErrorCodeValidation, "image body is empty")
	}
	return data, nil
}

package api

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/cinelog/cinelog/pkg/httputil"
	"github.com/cinelog/cinelog/pkg/storage"
)

// allowedImageTypes are the accepted content types for poster and avatar
// uploads.
var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// readImageUpload extracts and validates an image file from a multipart
// form. On failure it writes the error response and returns ok=false.
func (s *Server) readImageUpload(w http.ResponseWriter, r *http.Request, field string) (multipart.File, string, bool) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		httputil.WriteBadRequest(w, "invalid multipart form")
		return nil, "", false
	}

	file, header, err := r.FormFile(field)
	if err != nil {
		httputil.WriteBadRequest(w, field+" file is required")
		return nil, "", false
	}

	if header.Size > maxUploadBytes {
		file.Close()
		httputil.WriteBadRequest(w, "image exceeds the 5MB limit")
		return nil, "", false
	}

	mime := header.Header.Get("Content-Type")
	if !allowedImageTypes[mime] {
		file.Close()
		httputil.WriteBadRequest(w, "image must be jpeg, png or webp")
		return nil, "", false
	}

	return file, mime, true
}

// streamBlob writes a stored object to the response with its content type.
func (s *Server) streamBlob(w http.ResponseWriter, r *http.Request, key, mime string) {
	data, storedMime, err := s.blobs.Get(r.Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			httputil.WriteNotFoundError(w, "Image not found")
			return
		}
		s.logger.WithRequestID(r.Context()).WithError(err).Error("failed to read blob")
		httputil.WriteInternalError(w, errors.New("internal server error"))
		return
	}

	if storedMime != "" {
		mime = storedMime
	}
	if mime == "" {
		mime = "application/octet-stream"
	}
	w.Header().Set("Content-Type", mime)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

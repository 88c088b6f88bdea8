package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/cinelog/cinelog/pkg/httputil"
	"github.com/cinelog/cinelog/pkg/storage"
	"github.com/cinelog/cinelog/pkg/storage/s3"
)

// createContent handles POST /contents. The body is a multipart form so the
// poster image can ride along with the metadata fields.
func (s *Server) createContent(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		httputil.WriteBadRequest(w, "invalid multipart form")
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	if !httputil.RequireNonEmpty(w, title, "title") {
		return
	}

	contentType := storage.ContentType(r.FormValue("type"))
	if contentType != storage.ContentTypeMovie && contentType != storage.ContentTypeSeries {
		httputil.WriteBadRequest(w, "type must be movie or series")
		return
	}

	nc := storage.NewContent{
		Title:      title,
		Type:       contentType,
		Synopsis:   r.FormValue("synopsis"),
		TrailerURL: r.FormValue("trailer_url"),
		Genres:     splitCSV(r.FormValue("genre")),
		Keywords:   splitCSV(r.FormValue("keywords")),
	}

	if v := r.FormValue("release_date"); v != "" {
		date, err := parseDate(v)
		if err != nil {
			httputil.WriteBadRequest(w, err.Error())
			return
		}
		nc.ReleaseDate = date
	}
	if v := r.FormValue("duration"); v != "" {
		duration, err := strconv.Atoi(v)
		if err != nil || duration < 0 {
			httputil.WriteBadRequest(w, "duration must be a non-negative integer")
			return
		}
		nc.Duration = duration
	}

	// The poster is optional; when present it is stored before the catalog
	// row so the row never references a missing object.
	if file, _, err := r.FormFile("poster"); err == nil {
		file.Close()
		poster, mime, ok := s.readImageUpload(w, r, "poster")
		if !ok {
			return
		}
		defer poster.Close()

		key := s3.NewPosterKey()
		if err := s.blobs.Put(r.Context(), key, poster, mime); err != nil {
			s.logger.WithRequestID(r.Context()).WithError(err).Error("failed to store poster")
			httputil.WriteInternalError(w, errors.New("internal server error"))
			return
		}
		nc.PosterKey = key
		nc.PosterMime = mime
	}

	content, err := s.store.CreateContent(r.Context(), nc)
	if err != nil {
		if nc.PosterKey != "" {
			// The catalog row was not created; drop the orphaned poster.
			if delErr := s.blobs.Delete(r.Context(), nc.PosterKey); delErr != nil {
				s.logger.WithRequestID(r.Context()).WithError(delErr).Warn("failed to delete orphaned poster")
			}
		}
		if errors.Is(err, storage.ErrConflict) {
			httputil.WriteConflict(w, "Content title already in use")
			return
		}
		s.logger.WithRequestID(r.Context()).WithError(err).Error("failed to create content")
		httputil.WriteInternalError(w, errors.New("internal server error"))
		return
	}

	httputil.WriteCreated(w, content)
}

// searchContents handles GET /contents/searchByTitle?title=.
func (s *Server) searchContents(w http.ResponseWriter, r *http.Request) {
	title := r.URL.Query().Get("title")
	if !httputil.RequireNonEmpty(w, title, "title") {
		return
	}

	contents, err := s.store.SearchByTitle(r.Context(), title)
	if err != nil {
		s.logger.WithRequestID(r.Context()).WithError(err).Error("failed to search contents")
		httputil.WriteInternalError(w, errors.New("internal server error"))
		return
	}
	if len(contents) == 0 {
		httputil.WriteNotFoundError(w, "No content found")
		return
	}
	httputil.WriteSuccess(w, contents)
}

// getPosterByTitle handles GET /contents/posterByTitle?title=. It streams
// the poster of the first title match.
func (s *Server) getPosterByTitle(w http.ResponseWriter, r *http.Request) {
	title := r.URL.Query().Get("title")
	if !httputil.RequireNonEmpty(w, title, "title") {
		return
	}

	content, err := s.store.FirstByTitle(r.Context(), title)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			httputil.WriteNotFoundError(w, "No content found")
			return
		}
		s.logger.WithRequestID(r.Context()).WithError(err).Error("failed to look up content")
		httputil.WriteInternalError(w, errors.New("internal server error"))
		return
	}
	if content.PosterKey == "" {
		httputil.WriteNotFoundError(w, "Content has no poster")
		return
	}

	s.streamBlob(w, r, content.PosterKey, content.PosterMime)
}

// splitCSV turns a comma-separated form value into a trimmed slice.
func splitCSV(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// loadContent fetches a content by id, writing 404 when absent.
func (s *Server) loadContent(w http.ResponseWriter, r *http.Request, contentID int64) (*storage.Content, bool) {
	content, err := s.store.GetContentByID(r.Context(), contentID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			httputil.WriteNotFoundError(w, "Content not found")
			return nil, false
		}
		s.logger.WithRequestID(r.Context()).WithError(err).Error("failed to load content")
		httputil.WriteInternalError(w, errors.New("internal server error"))
		return nil, false
	}
	return content, true
}

package api

import (
	"errors"
	"net/http"

	"github.com/cinelog/cinelog/pkg/httputil"
	"github.com/cinelog/cinelog/pkg/middleware"
	"github.com/cinelog/cinelog/pkg/storage"
)

// associateContent handles POST /contents_user: it starts tracking a
// content for the authenticated user, defaulting to the to-watch status.
func (s *Server) associateContent(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetPrincipal(r)

	var req associateContentRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.ContentID <= 0 {
		httputil.WriteBadRequest(w, "id_content is required")
		return
	}

	if _, ok := s.loadContent(w, r, req.ContentID); !ok {
		return
	}

	cu, err := s.store.Associate(r.Context(), user.ID, req.ContentID)
	if err != nil {
		if errors.Is(err, storage.ErrConflict) {
			httputil.WriteBadRequest(w, "Content already associated")
			return
		}
		s.logger.WithRequestID(r.Context()).WithError(err).Error("failed to associate content")
		httputil.WriteInternalError(w, errors.New("internal server error"))
		return
	}
	httputil.WriteCreated(w, cu)
}

// listTrackedContents handles GET /contents_user.
func (s *Server) listTrackedContents(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetPrincipal(r)

	contents, err := s.store.ContentsForUser(r.Context(), user.ID)
	if err != nil {
		s.logger.WithRequestID(r.Context()).WithError(err).Error("failed to list tracked contents")
		httputil.WriteInternalError(w, errors.New("internal server error"))
		return
	}
	httputil.WriteSuccess(w, contents)
}

// getTrackedContent handles GET /contents_user/{id}. Only the owner of the
// association can read it.
func (s *Server) getTrackedContent(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetPrincipal(r)
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	cu, err := s.store.GetAssociation(r.Context(), id, user.ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			httputil.WriteNotFoundError(w, "Association not found")
			return
		}
		s.logger.WithRequestID(r.Context()).WithError(err).Error("failed to load association")
		httputil.WriteInternalError(w, errors.New("internal server error"))
		return
	}
	httputil.WriteSuccess(w, cu)
}

// updateWatchStatus handles PATCH /contents_user/{contentId}.
func (s *Server) updateWatchStatus(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetPrincipal(r)
	contentID, ok := httputil.ParsePathInt64OrError(w, r, "contentId")
	if !ok {
		return
	}

	var req updateStatusRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	status := storage.WatchStatus(req.Status)
	if status != storage.WatchStatusWatched && status != storage.WatchStatusToWatch {
		httputil.WriteBadRequest(w, "status must be watched or to_watch")
		return
	}

	cu, err := s.store.UpdateStatus(r.Context(), user.ID, contentID, status)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			httputil.WriteNotFoundError(w, "Association not found")
			return
		}
		s.logger.WithRequestID(r.Context()).WithError(err).Error("failed to update watch status")
		httputil.WriteInternalError(w, errors.New("internal server error"))
		return
	}
	httputil.WriteSuccess(w, cu)
}

// dissociateContent handles DELETE /contents_user/{contentId}.
func (s *Server) dissociateContent(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetPrincipal(r)
	contentID, ok := httputil.ParsePathInt64OrError(w, r, "contentId")
	if !ok {
		return
	}

	if err := s.store.Dissociate(r.Context(), user.ID, contentID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			httputil.WriteNotFoundError(w, "Association not found")
			return
		}
		s.logger.WithRequestID(r.Context()).WithError(err).Error("failed to dissociate content")
		httputil.WriteInternalError(w, errors.New("internal server error"))
		return
	}
	httputil.WriteNoContent(w)
}

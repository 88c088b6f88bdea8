package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/cinelog/cinelog/pkg/httputil"
	"github.com/cinelog/cinelog/pkg/middleware"
	"github.com/cinelog/cinelog/pkg/storage"
)

// createComment handles POST /comments.
func (s *Server) createComment(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetPrincipal(r)

	var req createCommentRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.ContentID <= 0 {
		httputil.WriteBadRequest(w, "content_id is required")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		httputil.WriteBadRequest(w, "text is required")
		return
	}

	if _, ok := s.loadContent(w, r, req.ContentID); !ok {
		return
	}

	comment, err := s.store.CreateComment(r.Context(), user.ID, req.ContentID, req.Text)
	if err != nil {
		s.logger.WithRequestID(r.Context()).WithError(err).Error("failed to create comment")
		httputil.WriteInternalError(w, errors.New("internal server error"))
		return
	}
	httputil.WriteCreated(w, comment)
}

// getComment handles GET /comments/{id}. Comments are publicly readable.
func (s *Server) getComment(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	comment, err := s.store.GetCommentByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			httputil.WriteNotFoundError(w, "Comment not found")
			return
		}
		s.logger.WithRequestID(r.Context()).WithError(err).Error("failed to load comment")
		httputil.WriteInternalError(w, errors.New("internal server error"))
		return
	}
	httputil.WriteSuccess(w, comment)
}

// getCommentsForContent handles GET /comments/content/{contentId}, newest
// first.
func (s *Server) getCommentsForContent(w http.ResponseWriter, r *http.Request) {
	contentID, ok := httputil.ParsePathInt64OrError(w, r, "contentId")
	if !ok {
		return
	}

	comments, err := s.store.CommentsForContent(r.Context(), contentID)
	if err != nil {
		s.logger.WithRequestID(r.Context()).WithError(err).Error("failed to list comments")
		httputil.WriteInternalError(w, errors.New("internal server error"))
		return
	}
	if len(comments) == 0 {
		httputil.WriteNotFoundError(w, "No comments found")
		return
	}
	httputil.WriteSuccess(w, comments)
}

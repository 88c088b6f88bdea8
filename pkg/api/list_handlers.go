package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/cinelog/cinelog/pkg/httputil"
	"github.com/cinelog/cinelog/pkg/middleware"
	"github.com/cinelog/cinelog/pkg/storage"
)

// createList handles POST /lists. A list starts with one content; the row
// and the membership are created atomically.
func (s *Server) createList(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetPrincipal(r)

	var req createListRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		httputil.WriteBadRequest(w, "name is required")
		return
	}
	if req.ContentID <= 0 {
		httputil.WriteBadRequest(w, "content_id is required")
		return
	}

	if _, ok := s.loadContent(w, r, req.ContentID); !ok {
		return
	}

	list, err := s.store.CreateList(r.Context(), user.ID, req.Name, req.Description, req.ContentID)
	if err != nil {
		s.logger.WithRequestID(r.Context()).WithError(err).Error("failed to create list")
		httputil.WriteInternalError(w, errors.New("internal server error"))
		return
	}
	httputil.WriteCreated(w, list)
}

// listLists handles GET /lists: the user's lists with their contents.
func (s *Server) listLists(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetPrincipal(r)

	lists, err := s.store.ListsForUser(r.Context(), user.ID)
	if err != nil {
		s.logger.WithRequestID(r.Context()).WithError(err).Error("failed to list lists")
		httputil.WriteInternalError(w, errors.New("internal server error"))
		return
	}
	httputil.WriteSuccess(w, lists)
}

// getList handles GET /lists/{id}. Only the owner can read a list.
func (s *Server) getList(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetPrincipal(r)
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	list, err := s.store.GetList(r.Context(), id, user.ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			httputil.WriteNotFoundError(w, "List not found")
			return
		}
		s.logger.WithRequestID(r.Context()).WithError(err).Error("failed to load list")
		httputil.WriteInternalError(w, errors.New("internal server error"))
		return
	}
	httputil.WriteSuccess(w, list)
}

// updateList handles PATCH /lists/{id}: name and description only.
func (s *Server) updateList(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetPrincipal(r)
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var req updateListRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Name == nil && req.Description == nil {
		httputil.WriteBadRequest(w, "nothing to update")
		return
	}

	list, err := s.store.UpdateList(r.Context(), id, user.ID, req.Name, req.Description)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			httputil.WriteNotFoundError(w, "List not found")
			return
		}
		s.logger.WithRequestID(r.Context()).WithError(err).Error("failed to update list")
		httputil.WriteInternalError(w, errors.New("internal server error"))
		return
	}
	httputil.WriteSuccess(w, list)
}

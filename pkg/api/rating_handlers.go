package api

import (
	"errors"
	"net/http"

	"github.com/cinelog/cinelog/pkg/httputil"
	"github.com/cinelog/cinelog/pkg/middleware"
	"github.com/cinelog/cinelog/pkg/storage"
)

func validRating(rating float64) bool {
	return rating >= 0 && rating <= 10
}

// createRating handles POST /ratings.
func (s *Server) createRating(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetPrincipal(r)

	var req createRatingRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.ContentID <= 0 {
		httputil.WriteBadRequest(w, "content_id is required")
		return
	}
	if !validRating(req.Rating) {
		httputil.WriteBadRequest(w, "rating must be between 0 and 10")
		return
	}

	if _, ok := s.loadContent(w, r, req.ContentID); !ok {
		return
	}

	rating, err := s.store.CreateRating(r.Context(), user.ID, req.ContentID, req.Rating)
	if err != nil {
		if errors.Is(err, storage.ErrConflict) {
			httputil.WriteBadRequest(w, "User has already rated this content")
			return
		}
		s.logger.WithRequestID(r.Context()).WithError(err).Error("failed to create rating")
		httputil.WriteInternalError(w, errors.New("internal server error"))
		return
	}
	httputil.WriteCreated(w, rating)
}

// listRatings handles GET /ratings.
func (s *Server) listRatings(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetPrincipal(r)

	ratings, err := s.store.RatingsForUser(r.Context(), user.ID)
	if err != nil {
		s.logger.WithRequestID(r.Context()).WithError(err).Error("failed to list ratings")
		httputil.WriteInternalError(w, errors.New("internal server error"))
		return
	}
	httputil.WriteSuccess(w, ratings)
}

// getRating handles GET /ratings/{contentId}.
func (s *Server) getRating(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetPrincipal(r)
	contentID, ok := httputil.ParsePathInt64OrError(w, r, "contentId")
	if !ok {
		return
	}

	rating, err := s.store.GetRating(r.Context(), user.ID, contentID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			httputil.WriteNotFoundError(w, "User has not rated this content")
			return
		}
		s.logger.WithRequestID(r.Context()).WithError(err).Error("failed to load rating")
		httputil.WriteInternalError(w, errors.New("internal server error"))
		return
	}
	httputil.WriteSuccess(w, rating)
}

// updateRating handles PATCH /ratings/{contentId}. Only the score can
// change; the rating date is refreshed.
func (s *Server) updateRating(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetPrincipal(r)
	contentID, ok := httputil.ParsePathInt64OrError(w, r, "contentId")
	if !ok {
		return
	}

	var req updateRatingRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !validRating(req.Rating) {
		httputil.WriteBadRequest(w, "rating must be between 0 and 10")
		return
	}

	rating, err := s.store.UpdateRating(r.Context(), user.ID, contentID, req.Rating)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			httputil.WriteNotFoundError(w, "User has not rated this content")
			return
		}
		s.logger.WithRequestID(r.Context()).WithError(err).Error("failed to update rating")
		httputil.WriteInternalError(w, errors.New("internal server error"))
		return
	}
	httputil.WriteSuccess(w, rating)
}

// deleteRating handles DELETE /ratings/{contentId}.
func (s *Server) deleteRating(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetPrincipal(r)
	contentID, ok := httputil.ParsePathInt64OrError(w, r, "contentId")
	if !ok {
		return
	}

	if err := s.store.DeleteRating(r.Context(), user.ID, contentID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			httputil.WriteNotFoundError(w, "User has not rated this content")
			return
		}
		s.logger.WithRequestID(r.Context()).WithError(err).Error("failed to delete rating")
		httputil.WriteInternalError(w, errors.New("internal server error"))
		return
	}
	httputil.WriteNoContent(w)
}

package api

import "github.com/cinelog/cinelog/pkg/storage"

// registerRequest is the body of POST /users.
type registerRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Name      string `json:"name,omitempty"`
	Birthdate string `json:"birthdate,omitempty"` // YYYY-MM-DD
}

// loginRequest is the body of POST /login.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// googleLoginRequest is the body of POST /users/google.
type googleLoginRequest struct {
	IDToken string `json:"id_token"`
}

// authResponse is returned by register, login and google login.
type authResponse struct {
	User  storage.RedactedUser `json:"user"`
	Token string               `json:"token"`
}

// updateProfileRequest is the body of PATCH /users/me. Absent fields are
// left unchanged.
type updateProfileRequest struct {
	Name      *string `json:"name,omitempty"`
	Birthdate *string `json:"birthdate,omitempty"` // YYYY-MM-DD
}

// associateContentRequest is the body of POST /contents_user.
type associateContentRequest struct {
	ContentID int64 `json:"id_content"`
}

// updateStatusRequest is the body of PATCH /contents_user/{contentId}.
type updateStatusRequest struct {
	Status string `json:"status"`
}

// createRatingRequest is the body of POST /ratings.
type createRatingRequest struct {
	ContentID int64   `json:"content_id"`
	Rating    float64 `json:"rating"`
}

// updateRatingRequest is the body of PATCH /ratings/{contentId}.
type updateRatingRequest struct {
	Rating float64 `json:"rating"`
}

// createCommentRequest is the body of POST /comments.
type createCommentRequest struct {
	ContentID int64  `json:"content_id"`
	Text      string `json:"text"`
}

// createListRequest is the body of POST /lists.
type createListRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	ContentID   int64  `json:"content_id"`
}

// updateListRequest is the body of PATCH /lists/{id}.
type updateListRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// messageResponse is a generic informational response body.
type messageResponse struct {
	Message string `json:"message"`
}

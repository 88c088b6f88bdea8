package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cinelog/cinelog/pkg/auth"
	"github.com/cinelog/cinelog/pkg/observability"
	"github.com/cinelog/cinelog/pkg/storage"
)

// fakeStore is an in-memory storage.Store for handler tests.
type fakeStore struct {
	mu       sync.Mutex
	nextID   int64
	users    map[int64]*storage.User
	contents map[int64]*storage.Content
	assocs   map[int64]*storage.ContentUser
	ratings  map[int64]*storage.Rating
	comments map[int64]*storage.Comment
	lists    map[int64]*storage.List
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		nextID:   1,
		users:    map[int64]*storage.User{},
		contents: map[int64]*storage.Content{},
		assocs:   map[int64]*storage.ContentUser{},
		ratings:  map[int64]*storage.Rating{},
		comments: map[int64]*storage.Comment{},
		lists:    map[int64]*storage.List{},
	}
}

func (s *fakeStore) id() int64 {
	id := s.nextID
	s.nextID++
	return id
}

func (s *fakeStore) CreateUser(_ context.Context, nu storage.NewUser) (*storage.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == nu.Username || u.Email == nu.Email {
			return nil, storage.ErrConflict
		}
	}
	u := &storage.User{
		ID:           s.id(),
		Username:     nu.Username,
		Email:        nu.Email,
		PasswordHash: nu.PasswordHash,
		Name:         nu.Name,
		Birthdate:    nu.Birthdate,
		GoogleSub:    nu.GoogleSub,
		AvatarKey:    nu.AvatarKey,
		AvatarMime:   nu.AvatarMime,
		RegisterDate: time.Now(),
	}
	s.users[u.ID] = u
	return u, nil
}

func (s *fakeStore) GetUserByID(_ context.Context, id int64) (*storage.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, storage.ErrNotFound
}

func (s *fakeStore) GetUserByUsername(_ context.Context, username string) (*storage.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *fakeStore) GetUserByEmail(_ context.Context, email string) (*storage.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *fakeStore) UpdateProfile(_ context.Context, id int64, name *string, birthdate *time.Time) (*storage.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	if name != nil {
		u.Name = *name
	}
	if birthdate != nil {
		u.Birthdate = birthdate
	}
	return u, nil
}

func (s *fakeStore) UpdateAvatar(_ context.Context, id int64, key, mime string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return storage.ErrNotFound
	}
	u.AvatarKey, u.AvatarMime = key, mime
	return nil
}

func (s *fakeStore) UpdatePasswordHash(_ context.Context, id int64, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return storage.ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (s *fakeStore) AddToken(_ context.Context, userID int64, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return storage.ErrNotFound
	}
	u.Tokens = append(u.Tokens, token)
	return nil
}

func (s *fakeStore) RemoveToken(_ context.Context, userID int64, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return storage.ErrNotFound
	}
	kept := u.Tokens[:0]
	for _, t := range u.Tokens {
		if t != token {
			kept = append(kept, t)
		}
	}
	u.Tokens = kept
	return nil
}

func (s *fakeStore) ClearTokens(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return storage.ErrNotFound
	}
	u.Tokens = nil
	return nil
}

func (s *fakeStore) HasToken(_ context.Context, userID int64, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return false, storage.ErrNotFound
	}
	for _, t := range u.Tokens {
		if t == token {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeStore) UsersWithTokens(context.Context) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []int64
	for id, u := range s.users {
		if len(u.Tokens) > 0 {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (s *fakeStore) CreateContent(_ context.Context, nc storage.NewContent) (*storage.Content, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.contents {
		if c.Title == nc.Title {
			return nil, storage.ErrConflict
		}
	}
	c := &storage.Content{
		ID:           s.id(),
		Title:        nc.Title,
		Type:         nc.Type,
		Synopsis:     nc.Synopsis,
		PosterKey:    nc.PosterKey,
		PosterMime:   nc.PosterMime,
		TrailerURL:   nc.TrailerURL,
		ReleaseDate:  nc.ReleaseDate,
		Duration:     nc.Duration,
		Genres:       nc.Genres,
		Keywords:     nc.Keywords,
		CreationDate: time.Now(),
	}
	s.contents[c.ID] = c
	return c, nil
}

func (s *fakeStore) GetContentByID(_ context.Context, id int64) (*storage.Content, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.contents[id]; ok {
		return c, nil
	}
	return nil, storage.ErrNotFound
}

func (s *fakeStore) SearchByTitle(_ context.Context, title string) ([]storage.Content, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []storage.Content
	for _, c := range s.contents {
		if strings.Contains(strings.ToLower(c.Title), strings.ToLower(title)) {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

func (s *fakeStore) FirstByTitle(ctx context.Context, title string) (*storage.Content, error) {
	matches, err := s.SearchByTitle(ctx, title)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, storage.ErrNotFound
	}
	return &matches[0], nil
}

func (s *fakeStore) Associate(_ context.Context, userID, contentID int64) (*storage.ContentUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cu := range s.assocs {
		if cu.UserID == userID && cu.ContentID == contentID {
			return nil, storage.ErrConflict
		}
	}
	cu := &storage.ContentUser{
		ID:        s.id(),
		UserID:    userID,
		ContentID: contentID,
		Status:    storage.WatchStatusToWatch,
	}
	s.assocs[cu.ID] = cu
	return cu, nil
}

func (s *fakeStore) ContentsForUser(_ context.Context, userID int64) ([]storage.Content, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []storage.Content
	for _, cu := range s.assocs {
		if cu.UserID == userID {
			if c, ok := s.contents[cu.ContentID]; ok {
				out = append(out, *c)
			}
		}
	}
	return out, nil
}

func (s *fakeStore) GetAssociation(_ context.Context, id, userID int64) (*storage.ContentUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cu, ok := s.assocs[id]; ok && cu.UserID == userID {
		return cu, nil
	}
	return nil, storage.ErrNotFound
}

func (s *fakeStore) GetByContent(_ context.Context, userID, contentID int64) (*storage.ContentUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cu := range s.assocs {
		if cu.UserID == userID && cu.ContentID == contentID {
			return cu, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *fakeStore) UpdateStatus(_ context.Context, userID, contentID int64, status storage.WatchStatus) (*storage.ContentUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cu := range s.assocs {
		if cu.UserID == userID && cu.ContentID == contentID {
			cu.Status = status
			return cu, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *fakeStore) Dissociate(_ context.Context, userID, contentID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, cu := range s.assocs {
		if cu.UserID == userID && cu.ContentID == contentID {
			delete(s.assocs, id)
			return nil
		}
	}
	return storage.ErrNotFound
}

func (s *fakeStore) CreateRating(_ context.Context, userID, contentID int64, rating float64) (*storage.Rating, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rt := range s.ratings {
		if rt.UserID == userID && rt.ContentID == contentID {
			return nil, storage.ErrConflict
		}
	}
	rt := &storage.Rating{
		ID:         s.id(),
		UserID:     userID,
		ContentID:  contentID,
		Rating:     rating,
		RatingDate: time.Now(),
	}
	s.ratings[rt.ID] = rt
	return rt, nil
}

func (s *fakeStore) RatingsForUser(_ context.Context, userID int64) ([]storage.Rating, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []storage.Rating
	for _, rt := range s.ratings {
		if rt.UserID == userID {
			out = append(out, *rt)
		}
	}
	return out, nil
}

func (s *fakeStore) GetRating(_ context.Context, userID, contentID int64) (*storage.Rating, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rt := range s.ratings {
		if rt.UserID == userID && rt.ContentID == contentID {
			return rt, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *fakeStore) UpdateRating(_ context.Context, userID, contentID int64, rating float64) (*storage.Rating, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rt := range s.ratings {
		if rt.UserID == userID && rt.ContentID == contentID {
			rt.Rating = rating
			rt.RatingDate = time.Now()
			return rt, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *fakeStore) DeleteRating(_ context.Context, userID, contentID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, rt := range s.ratings {
		if rt.UserID == userID && rt.ContentID == contentID {
			delete(s.ratings, id)
			return nil
		}
	}
	return storage.ErrNotFound
}

func (s *fakeStore) CreateComment(_ context.Context, userID, contentID int64, text string) (*storage.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := &storage.Comment{
		ID:          s.id(),
		UserID:      userID,
		ContentID:   contentID,
		Text:        text,
		CommentDate: time.Now(),
	}
	s.comments[c.ID] = c
	return c, nil
}

func (s *fakeStore) GetCommentByID(_ context.Context, id int64) (*storage.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.comments[id]; ok {
		return c, nil
	}
	return nil, storage.ErrNotFound
}

func (s *fakeStore) CommentsForContent(_ context.Context, contentID int64) ([]storage.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []storage.Comment
	for _, c := range s.comments {
		if c.ContentID == contentID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CommentDate.After(out[j].CommentDate) })
	return out, nil
}

func (s *fakeStore) CreateList(_ context.Context, userID int64, name, description string, contentID int64) (*storage.List, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := &storage.List{
		ID:           s.id(),
		UserID:       userID,
		Name:         name,
		Description:  description,
		CreationDate: time.Now(),
	}
	if c, ok := s.contents[contentID]; ok {
		l.Contents = []storage.Content{*c}
	}
	s.lists[l.ID] = l
	return l, nil
}

func (s *fakeStore) ListsForUser(_ context.Context, userID int64) ([]storage.List, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []storage.List
	for _, l := range s.lists {
		if l.UserID == userID {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (s *fakeStore) GetList(_ context.Context, id, userID int64) (*storage.List, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.lists[id]; ok && l.UserID == userID {
		return l, nil
	}
	return nil, storage.ErrNotFound
}

func (s *fakeStore) UpdateList(_ context.Context, id, userID int64, name, description *string) (*storage.List, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lists[id]
	if !ok || l.UserID != userID {
		return nil, storage.ErrNotFound
	}
	if name != nil {
		l.Name = *name
	}
	if description != nil {
		l.Description = *description
	}
	return l, nil
}

// fakeBlobs is an in-memory storage.BlobStore.
type fakeBlobs struct {
	mu      sync.Mutex
	objects map[string][]byte
	mimes   map[string]string
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{objects: map[string][]byte{}, mimes: map[string]string{}}
}

func (b *fakeBlobs) Put(_ context.Context, key string, content io.Reader, contentType string) error {
	data, err := io.ReadAll(content)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = data
	b.mimes[key] = contentType
	return nil
}

func (b *fakeBlobs) Get(_ context.Context, key string) ([]byte, string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.objects[key]
	if !ok {
		return nil, "", storage.ErrNotFound
	}
	return data, b.mimes[key], nil
}

func (b *fakeBlobs) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, key)
	delete(b.mimes, key)
	return nil
}

func testServer(t *testing.T) (*Server, *fakeStore, *fakeBlobs) {
	t.Helper()
	store := newFakeStore()
	blobs := newFakeBlobs()
	s := NewServer(Deps{
		Store:  store,
		Blobs:  blobs,
		Issuer: auth.NewTokenIssuer("test-secret", time.Hour),
		Hasher: auth.NewPasswordHasher(4),
		Logger: observability.NewLogger(observability.ErrorLevel, io.Discard),
	})
	return s, store, blobs
}

// registerUser creates an account through the API and returns its token.
func registerUser(t *testing.T, s *Server, username string) (int64, string) {
	t.Helper()
	rec := doJSON(t, s, http.MethodPost, "/users", "", registerRequest{
		Username: username,
		Email:    username + "@example.com",
		Password: "password123",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp authResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.User.ID, resp.Token
}

func doJSON(t *testing.T, s *Server, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func errMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

// createTestContent inserts a content directly through the store.
func createTestContent(t *testing.T, store *fakeStore, title string) *storage.Content {
	t.Helper()
	c, err := store.CreateContent(context.Background(), storage.NewContent{
		Title: title,
		Type:  storage.ContentTypeMovie,
	})
	require.NoError(t, err)
	return c
}

// multipartBody builds a multipart form with the given fields and an
// optional file part.
func multipartBody(t *testing.T, fields map[string]string, fileField, fileName, fileMime string, fileData []byte) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if fileField != "" {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", `form-data; name="`+fileField+`"; filename="`+fileName+`"`)
		h.Set("Content-Type", fileMime)
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(fileData)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return buf, mw.FormDataContentType()
}

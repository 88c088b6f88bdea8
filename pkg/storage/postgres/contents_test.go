package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinelog/cinelog/pkg/storage"
)

func contentRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "title", "type", "synopsis", "poster_key", "poster_mime",
		"trailer_url", "release_date", "duration", "genres", "keywords",
		"creation_date",
	})
}

func TestCreateContent(t *testing.T) {
	store, mock := newTestStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery("INSERT INTO contents").
		WillReturnRows(contentRows().AddRow(
			int64(1), "Inception", "movie", "A thief who steals secrets.",
			"posters/abc", "image/jpeg", "", nil, 148,
			pq.StringArray{"sci-fi", "thriller"}, pq.StringArray{"dreams"}, now))

	c, err := store.CreateContent(context.Background(), storage.NewContent{
		Title:      "Inception",
		Type:       storage.ContentTypeMovie,
		Synopsis:   "A thief who steals secrets.",
		PosterKey:  "posters/abc",
		PosterMime: "image/jpeg",
		Duration:   148,
		Genres:     []string{"sci-fi", "thriller"},
		Keywords:   []string{"dreams"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Inception", c.Title)
	assert.Equal(t, []string{"sci-fi", "thriller"}, c.Genres)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateContent_DuplicateTitle(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectQuery("INSERT INTO contents").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "contents_title_key"})

	_, err := store.CreateContent(context.Background(), storage.NewContent{Title: "Inception"})
	assert.ErrorIs(t, err, storage.ErrConflict)
}

func TestSearchByTitle(t *testing.T) {
	store, mock := newTestStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT (.+) FROM contents WHERE title ILIKE").
		WithArgs("incep").
		WillReturnRows(contentRows().AddRow(
			int64(1), "Inception", "movie", "synopsis", "posters/abc",
			"image/jpeg", "", nil, 148, pq.StringArray{}, pq.StringArray{}, now))

	results, err := store.SearchByTitle(context.Background(), "incep")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Inception", results[0].Title)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchByTitle_NoMatches(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectQuery("SELECT (.+) FROM contents WHERE title ILIKE").
		WithArgs("nothing").
		WillReturnRows(contentRows())

	results, err := store.SearchByTitle(context.Background(), "nothing")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestFirstByTitle_NotFound(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectQuery("SELECT (.+) FROM contents WHERE title ILIKE").
		WithArgs("ghost").
		WillReturnRows(contentRows())

	_, err := store.FirstByTitle(context.Background(), "ghost")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestAssociate_Duplicate(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectQuery("INSERT INTO content_user").
		WithArgs(int64(1), int64(2)).
		WillReturnError(&pq.Error{Code: "23505"})

	_, err := store.Associate(context.Background(), 1, 2)
	assert.ErrorIs(t, err, storage.ErrConflict)
}

func TestUpdateStatus(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectQuery("UPDATE content_user SET status").
		WithArgs(int64(1), int64(2), "watched").
		WillReturnRows(sqlmock.NewRows([]string{"id_content_user", "id_user", "id_content", "status"}).
			AddRow(int64(10), int64(1), int64(2), "watched"))

	cu, err := store.UpdateStatus(context.Background(), 1, 2, storage.WatchStatusWatched)
	require.NoError(t, err)
	assert.Equal(t, storage.WatchStatusWatched, cu.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDissociate_NotTracked(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectExec("DELETE FROM content_user").
		WithArgs(int64(1), int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Dissociate(context.Background(), 1, 2)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCreateRating_SecondRatingConflicts(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectQuery("INSERT INTO ratings").
		WithArgs(int64(1), int64(2), 8.5).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "ratings_user_id_content_id_key"})

	_, err := store.CreateRating(context.Background(), 1, 2, 8.5)
	assert.ErrorIs(t, err, storage.ErrConflict)
}

func TestCommentsForContent_NewestFirst(t *testing.T) {
	store, mock := newTestStore(t)
	newer := time.Now().UTC()
	older := newer.Add(-time.Hour)

	mock.ExpectQuery("SELECT (.+) FROM comments WHERE content_id (.+) ORDER BY comment_date DESC").
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "content_id", "text", "comment_date"}).
			AddRow(int64(2), int64(1), int64(2), "second", newer).
			AddRow(int64(1), int64(1), int64(2), "first", older))

	comments, err := store.CommentsForContent(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "second", comments[0].Text)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateList_RollsBackOnBadContent(t *testing.T) {
	store, mock := newTestStore(t)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO lists").
		WithArgs(int64(1), "Favorites", "").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "name", "description", "creation_date"}).
			AddRow(int64(5), int64(1), "Favorites", "", now))
	mock.ExpectExec("INSERT INTO content_list").
		WithArgs(int64(5), int64(999)).
		WillReturnError(&pq.Error{Code: "23503"})
	mock.ExpectRollback()

	_, err := store.CreateList(context.Background(), 1, "Favorites", "", 999)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

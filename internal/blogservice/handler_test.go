package blogservice

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/sushihentaime/bloglist/internal/common"
	"github.com/sushihentaime/bloglist/internal/userservice"
)

type MockProducer struct {
	mock.Mock
}

func (m *MockProducer) Publish(ctx context.Context, msg []byte, key common.BindingKey, exchange common.Exchange) error {
	args := m.Called(ctx, msg, key, exchange)
	return args.Error(0)
}

func intptr(i int) *int {
	return &i
}

func setupTestUser(t *testing.T, db *sql.DB, username string) *userservice.Principal {
	t.Helper()

	var id uuid.UUID
	err := db.QueryRow(`INSERT INTO users (username, name, password) VALUES ($1, $2, $3) RETURNING id`,
		username, "Test User", []byte("not-a-real-hash")).Scan(&id)
	require.NoError(t, err)

	return &userservice.Principal{UserID: id, Username: username}
}

func setupTestEnvironment(t *testing.T) (*BlogService, *sql.DB, *MockProducer) {
	t.Helper()

	db := common.TestDB("file://../../migrations", t)
	cache := common.NewCache(5*time.Minute, 10*time.Minute)
	mb := new(MockProducer)
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	return NewBlogService(db, cache, mb, logger), db, mb
}

func cleanup(t *testing.T, s *BlogService, db *sql.DB) {
	t.Helper()

	_, err := db.Exec("DELETE FROM blogs")
	require.NoError(t, err)
	_, err = db.Exec("DELETE FROM users")
	require.NoError(t, err)
	s.c.Flush()
}

func countBlogs(t *testing.T, db *sql.DB) int {
	t.Helper()

	var n int
	require.NoError(t, db.QueryRow("SELECT count(*) FROM blogs").Scan(&n))
	return n
}

func blogIDsOf(t *testing.T, db *sql.DB, userID uuid.UUID) []string {
	t.Helper()

	var ids []string
	rows, err := db.Query("SELECT unnest(blog_ids)::text FROM users WHERE id = $1", userID)
	require.NoError(t, err)
	defer rows.Close()

	for rows.Next() {
		var id string
		require.NoError(t, rows.Scan(&id))
		ids = append(ids, id)
	}
	require.NoError(t, rows.Err())

	return ids
}

func TestCreateBlog(t *testing.T) {
	s, db, mb := setupTestEnvironment(t)
	ctx := context.Background()
	mb.On("Publish", mock.Anything, mock.Anything, common.BlogCreatedKey, common.BlogExchange).Return(nil)

	t.Run("validation", func(t *testing.T) {
		t.Cleanup(func() { cleanup(t, s, db) })
		p := setupTestUser(t, db, "root")

		testCases := []struct {
			name  string
			req   *CreateBlogRequest
			field string
		}{
			{name: "missing title", req: &CreateBlogRequest{URL: "https://example.com"}, field: "title"},
			{name: "missing url", req: &CreateBlogRequest{Title: "T"}, field: "url"},
			{name: "blank title", req: &CreateBlogRequest{Title: "  ", URL: "https://example.com"}, field: "title"},
			{name: "negative likes", req: &CreateBlogRequest{Title: "T", URL: "U", Likes: intptr(-1)}, field: "likes"},
		}

		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				_, err := s.CreateBlog(ctx, tc.req, p)

				var verr common.ValidationError
				require.ErrorAs(t, err, &verr)
				assert.Contains(t, verr.Errors, tc.field)
				assert.Equal(t, 0, countBlogs(t, db))
			})
		}
	})

	t.Run("defaults and ownership", func(t *testing.T) {
		t.Cleanup(func() { cleanup(t, s, db) })
		p := setupTestUser(t, db, "root")

		b, err := s.CreateBlog(ctx, &CreateBlogRequest{Title: "T", URL: "U"}, p)
		require.NoError(t, err)

		assert.Equal(t, 0, b.Likes)
		assert.Equal(t, Comments{}, b.Comments)
		require.NotNil(t, b.OwnerID)
		assert.Equal(t, p.UserID, *b.OwnerID)
		assert.Equal(t, []string{b.ID.String()}, blogIDsOf(t, db, p.UserID))

		withLikes, err := s.CreateBlog(ctx, &CreateBlogRequest{Title: "T2", URL: "U2", Author: "A", Likes: intptr(7)}, p)
		require.NoError(t, err)
		assert.Equal(t, 7, withLikes.Likes)
		assert.Equal(t, []string{b.ID.String(), withLikes.ID.String()}, blogIDsOf(t, db, p.UserID))

		mb.AssertCalled(t, "Publish", mock.Anything, mock.Anything, common.BlogCreatedKey, common.BlogExchange)
	})

	t.Run("requires principal", func(t *testing.T) {
		_, err := s.CreateBlog(ctx, &CreateBlogRequest{Title: "T", URL: "U"}, nil)
		assert.Equal(t, common.KindAuthMissing, common.Translate(err).Kind)
	})

	t.Run("owner that does not exist rolls back", func(t *testing.T) {
		t.Cleanup(func() { cleanup(t, s, db) })
		ghost := &userservice.Principal{UserID: uuid.New(), Username: "ghost"}

		_, err := s.CreateBlog(ctx, &CreateBlogRequest{Title: "T", URL: "U"}, ghost)
		assert.Error(t, err)
		assert.Equal(t, 0, countBlogs(t, db))
	})
}

func TestCreateBlog_PublishFailureIsNotFatal(t *testing.T) {
	s, db, mb := setupTestEnvironment(t)
	mb.On("Publish", mock.Anything, mock.Anything, common.BlogCreatedKey, common.BlogExchange).Return(errors.New("broker down"))

	p := setupTestUser(t, db, "root")

	b, err := s.CreateBlog(context.Background(), &CreateBlogRequest{Title: "T", URL: "U"}, p)
	require.NoError(t, err)

	call := mb.Calls[0]
	var event BlogCreatedEvent
	require.NoError(t, json.Unmarshal(call.Arguments.Get(1).([]byte), &event))
	assert.Equal(t, b.ID, event.ID)
	assert.Equal(t, "root", event.OwnerUsername)
}

func TestListBlogs_FillRacingDelete(t *testing.T) {
	s, db, mb := setupTestEnvironment(t)
	ctx := context.Background()
	mb.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	owner := setupTestUser(t, db, "owner")
	b, err := s.CreateBlog(ctx, &CreateBlogRequest{Title: "T", URL: "U"}, owner)
	require.NoError(t, err)

	// a reader takes its snapshot, then a delete commits before the reader fills the cache
	gen := s.gen.Load()
	snapshot, err := s.m.listBlogs(ctx)
	require.NoError(t, err)
	require.Len(t, snapshot, 1)

	require.NoError(t, s.DeleteBlog(ctx, b.ID.String(), owner))
	s.fillListing(gen, snapshot)

	blogs, err := s.ListBlogs(ctx)
	require.NoError(t, err)
	assert.Empty(t, blogs)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Count)
}

func TestBlogLifecycle(t *testing.T) {
	s, db, mb := setupTestEnvironment(t)
	ctx := context.Background()
	mb.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	owner := setupTestUser(t, db, "owner")
	other := setupTestUser(t, db, "other")

	b, err := s.CreateBlog(ctx, &CreateBlogRequest{Title: "Type wars", URL: "http://blog.cleancoder.com", Author: "Robert C. Martin"}, owner)
	require.NoError(t, err)
	id := b.ID.String()

	t.Run("list includes owner projection", func(t *testing.T) {
		blogs, err := s.ListBlogs(ctx)
		require.NoError(t, err)
		require.Len(t, blogs, 1)
		assert.Equal(t, &Owner{Username: "owner", Name: "Test User"}, blogs[0].Owner)
	})

	t.Run("update likes", func(t *testing.T) {
		updated, err := s.UpdateLikes(ctx, id, intptr(3))
		require.NoError(t, err)
		assert.Equal(t, 3, updated.Likes)
		assert.Equal(t, "Type wars", updated.Title)

		// the cached listing is invalidated
		blogs, err := s.ListBlogs(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, blogs[0].Likes)

		testCases := []struct {
			name  string
			id    string
			likes *int
			kind  common.Kind
		}{
			{name: "missing likes", id: id, likes: nil, kind: common.KindValidation},
			{name: "negative likes", id: id, likes: intptr(-5), kind: common.KindValidation},
			{name: "malformed id", id: "5a422a851b54a676234d17f7x", likes: intptr(1), kind: common.KindMalformedID},
			{name: "unknown id", id: uuid.NewString(), likes: intptr(1), kind: common.KindNotFound},
		}

		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				_, err := s.UpdateLikes(ctx, tc.id, tc.likes)
				assert.Equal(t, tc.kind, common.Translate(err).Kind)
			})
		}
	})

	t.Run("append comment", func(t *testing.T) {
		updated, err := s.AppendComment(ctx, id, "nice <script>alert(1)</script>", other)
		require.NoError(t, err)
		assert.Equal(t, Comments{{Text: "nice"}}, updated.Comments)

		updated, err = s.AppendComment(ctx, id, "second", owner)
		require.NoError(t, err)
		assert.Equal(t, Comments{{Text: "nice"}, {Text: "second"}}, updated.Comments)

		_, err = s.AppendComment(ctx, id, "<script></script>", other)
		assert.Equal(t, common.KindValidation, common.Translate(err).Kind)

		_, err = s.AppendComment(ctx, id, "hello", nil)
		assert.Equal(t, common.KindAuthMissing, common.Translate(err).Kind)

		_, err = s.AppendComment(ctx, uuid.NewString(), "hello", other)
		assert.Equal(t, common.KindNotFound, common.Translate(err).Kind)
	})

	t.Run("delete by other user is forbidden", func(t *testing.T) {
		err := s.DeleteBlog(ctx, id, other)

		var forbidden common.AuthorizationError
		require.ErrorAs(t, err, &forbidden)
		assert.Equal(t, id, forbidden.ResourceID)

		still, err := s.GetBlog(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 3, still.Likes)
		assert.Len(t, still.Comments, 2)
	})

	t.Run("delete without principal", func(t *testing.T) {
		err := s.DeleteBlog(ctx, id, nil)
		assert.Equal(t, common.KindAuthMissing, common.Translate(err).Kind)
	})

	t.Run("delete by owner", func(t *testing.T) {
		require.NoError(t, s.DeleteBlog(ctx, id, owner))

		_, err := s.GetBlog(ctx, id)
		assert.Equal(t, common.KindNotFound, common.Translate(err).Kind)

		err = s.DeleteBlog(ctx, id, owner)
		assert.Equal(t, common.KindNotFound, common.Translate(err).Kind)

		_, err = s.UpdateLikes(ctx, id, intptr(1))
		assert.Equal(t, common.KindNotFound, common.Translate(err).Kind)

		// the back reference is not retracted
		assert.Equal(t, []string{id}, blogIDsOf(t, db, owner.UserID))
	})

	t.Run("unowned blog cannot be deleted", func(t *testing.T) {
		var legacy uuid.UUID
		require.NoError(t, db.QueryRow(`INSERT INTO blogs (title, url) VALUES ('legacy', 'http://legacy') RETURNING id`).Scan(&legacy))

		err := s.DeleteBlog(ctx, legacy.String(), owner)

		var forbidden common.AuthorizationError
		require.ErrorAs(t, err, &forbidden)
		assert.Equal(t, string(ReasonNoOwner), forbidden.Reason)
	})

	t.Run("stats", func(t *testing.T) {
		_, err := s.CreateBlog(ctx, &CreateBlogRequest{Title: "a", URL: "a", Author: "X", Likes: intptr(10)}, owner)
		require.NoError(t, err)

		stats, err := s.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, stats.Count)
		assert.Equal(t, 10, stats.TotalLikes)
		assert.Equal(t, "a", stats.FavoriteBlog.Title)
	})
}

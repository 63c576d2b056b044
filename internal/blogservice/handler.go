package blogservice

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sushihentaime/bloglist/internal/common"
	"github.com/sushihentaime/bloglist/internal/userservice"
)

const publishTimeout = 5 * time.Second

// NewBlogService wires the blog facade. mb may be nil, in which case no events are published.
func NewBlogService(db *sql.DB, c *common.Cache, mb common.MessageProducer, logger *slog.Logger) *BlogService {
	if logger == nil {
		logger = slog.Default()
	}

	return &BlogService{
		m:      newBlogModel(db),
		c:      c,
		mb:     mb,
		logger: logger,
	}
}

type CreateBlogRequest struct {
	Title  string `json:"title"`
	URL    string `json:"url"`
	Author string `json:"author"`
	Likes  *int   `json:"likes"`
}

func parseID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, common.MalformedIDError{RawID: raw}
	}
	return id, nil
}

func notFound(err error, id uuid.UUID) error {
	if errors.Is(err, common.ErrRecordNotFound) {
		return common.NotFoundError{ID: id.String()}
	}
	return err
}

// ListBlogs returns every blog with its owner projection, in insertion order.
func (s *BlogService) ListBlogs(ctx context.Context) ([]Blog, error) {
	if blogs, ok := s.cachedListing(); ok {
		return copyBlogs(blogs), nil
	}

	// the generation must be read before the query so a write committed while
	// the query runs leaves the result unservable
	gen := s.gen.Load()

	blogs, err := s.m.listBlogs(ctx)
	if err != nil {
		return nil, err
	}

	s.fillListing(gen, blogs)

	return copyBlogs(blogs), nil
}

func (s *BlogService) cachedListing() ([]Blog, bool) {
	cached, ok := s.c.Get(common.CacheKeyBlogs)
	if !ok {
		return nil, false
	}

	l, ok := cached.(listing)
	if !ok || l.gen != s.gen.Load() {
		return nil, false
	}

	return l.blogs, true
}

func (s *BlogService) fillListing(gen uint64, blogs []Blog) {
	if gen != s.gen.Load() {
		return
	}
	s.c.Set(common.CacheKeyBlogs, listing{gen: gen, blogs: blogs})
}

// invalidate must run after the mutation has committed.
func (s *BlogService) invalidate() {
	s.gen.Add(1)
	s.c.Delete(common.CacheKeyBlogs)
}

// copyBlogs deep copies blogs so callers cannot reach into the cached listing.
func copyBlogs(blogs []Blog) []Blog {
	out := make([]Blog, len(blogs))
	for i, b := range blogs {
		b.Comments = append(Comments{}, b.Comments...)
		if b.OwnerID != nil {
			id := *b.OwnerID
			b.OwnerID = &id
		}
		if b.Owner != nil {
			owner := *b.Owner
			b.Owner = &owner
		}
		out[i] = b
	}
	return out
}

func (s *BlogService) GetBlog(ctx context.Context, rawID string) (*Blog, error) {
	id, err := parseID(rawID)
	if err != nil {
		return nil, err
	}

	b, err := s.m.getBlog(ctx, id)
	if err != nil {
		return nil, notFound(err, id)
	}

	return b, nil
}

// CreateBlog stores a blog owned by p and appends it to p's blog list. Both
// writes share one transaction.
func (s *BlogService) CreateBlog(ctx context.Context, req *CreateBlogRequest, p *userservice.Principal) (*Blog, error) {
	if p == nil {
		return nil, common.AuthError{Reason: common.AuthMissing}
	}

	v := common.NewValidator()
	validateBlog(v, req)
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	owner := p.UserID
	b := &Blog{
		Title:   req.Title,
		URL:     req.URL,
		Author:  req.Author,
		OwnerID: &owner,
	}
	if req.Likes != nil {
		b.Likes = *req.Likes
	}

	tx, err := s.m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	if err := s.m.insert(ctx, tx, b); err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	if err := userservice.AppendBlogRef(ctx, tx, owner, b.ID); err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("could not record blog on owner: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.invalidate()
	s.publishCreated(b, p.Username)

	return b, nil
}

// UpdateLikes replaces the like count and nothing else.
func (s *BlogService) UpdateLikes(ctx context.Context, rawID string, likes *int) (*Blog, error) {
	id, err := parseID(rawID)
	if err != nil {
		return nil, err
	}

	v := common.NewValidator()
	validateLikes(v, likes, true)
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	b, err := s.m.updateLikes(ctx, id, *likes)
	if err != nil {
		return nil, notFound(err, id)
	}

	s.invalidate()

	return b, nil
}

// AppendComment adds a comment to any blog. Any authenticated user may comment.
func (s *BlogService) AppendComment(ctx context.Context, rawID, text string, p *userservice.Principal) (*Blog, error) {
	id, err := parseID(rawID)
	if err != nil {
		return nil, err
	}

	if p == nil {
		return nil, common.AuthError{Reason: common.AuthMissing}
	}

	text = sanitizeText(text)

	v := common.NewValidator()
	v.Required(text, "comment")
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	b, err := s.m.appendComment(ctx, id, text)
	if err != nil {
		return nil, notFound(err, id)
	}

	s.invalidate()

	return b, nil
}

// DeleteBlog removes a blog owned by p. The id stays on the owner's blog list.
func (s *BlogService) DeleteBlog(ctx context.Context, rawID string, p *userservice.Principal) error {
	id, err := parseID(rawID)
	if err != nil {
		return err
	}

	b, err := s.m.getBlog(ctx, id)
	if err != nil {
		return notFound(err, id)
	}

	if err := Authorize(p, b).Err(b); err != nil {
		return err
	}

	if err := s.m.deleteBlog(ctx, id); err != nil {
		return err
	}

	s.invalidate()

	return nil
}

// Stats computes the analytics digest over the current listing.
func (s *BlogService) Stats(ctx context.Context) (Stats, error) {
	blogs, err := s.ListBlogs(ctx)
	if err != nil {
		return Stats{}, err
	}

	return ComputeStats(blogs), nil
}

// publishCreated is best effort: the blog is already committed, so a broker
// failure is logged and otherwise ignored.
func (s *BlogService) publishCreated(b *Blog, ownerUsername string) {
	if s.mb == nil {
		return
	}

	msg, err := json.Marshal(BlogCreatedEvent{
		ID:            b.ID,
		Title:         b.Title,
		URL:           b.URL,
		Author:        b.Author,
		OwnerUsername: ownerUsername,
	})
	if err != nil {
		s.logger.Error("could not encode blog.created event", "blog_id", b.ID, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := s.mb.Publish(ctx, msg, common.BlogCreatedKey, common.BlogExchange); err != nil {
		s.logger.Error("could not publish blog.created event", "blog_id", b.ID, "error", err)
	}
}

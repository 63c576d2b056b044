package blogservice

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sushihentaime/bloglist/internal/common"
)

type Blog struct {
	ID        uuid.UUID  `json:"id"`
	Title     string     `json:"title"`
	URL       string     `json:"url"`
	Author    string     `json:"author"`
	Likes     int        `json:"likes"`
	Comments  Comments   `json:"comments"`
	OwnerID   *uuid.UUID `json:"owner_id"`
	Owner     *Owner     `json:"owner,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"-"`
	Version   int        `json:"-"`
}

// Owner is the public projection of the user that created a blog.
type Owner struct {
	Username string `json:"username"`
	Name     string `json:"name"`
}

type Comment struct {
	Text string `json:"text"`
}

// Comments is stored as a jsonb array on the blog row.
type Comments []Comment

func (c Comments) Value() (driver.Value, error) {
	if c == nil {
		return "[]", nil
	}

	data, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (c *Comments) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*c = Comments{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("comments: unsupported source type")
	}

	var out Comments
	if err := json.Unmarshal(data, &out); err != nil {
		return err
	}
	if out == nil {
		out = Comments{}
	}

	*c = out
	return nil
}

// BlogCreatedEvent is published on the broker after a blog is committed.
type BlogCreatedEvent struct {
	ID            uuid.UUID `json:"id"`
	Title         string    `json:"title"`
	URL           string    `json:"url"`
	Author        string    `json:"author"`
	OwnerUsername string    `json:"owner_username"`
}

type BlogModel struct {
	db *sql.DB
}

type BlogService struct {
	m      *BlogModel
	c      *common.Cache
	mb     common.MessageProducer
	logger *slog.Logger

	// gen is bumped after every committed blog mutation. A cached listing is only
	// served while it carries the current generation.
	gen atomic.Uint64
}

// listing is the cached form of ListBlogs.
type listing struct {
	gen   uint64
	blogs []Blog
}

package blogservice

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/sushihentaime/bloglist/internal/common"
)

const blogColumns = `b.id, b.title, b.url, b.author, b.likes, b.comments, b.user_id, b.created_at, b.updated_at, b.version`

type rowScanner interface {
	Scan(dest ...any) error
}

func newBlogModel(db *sql.DB) *BlogModel {
	return &BlogModel{db: db}
}

func scanBlog(row rowScanner, withOwner bool) (*Blog, error) {
	var (
		b        Blog
		ownerID  uuid.NullUUID
		username sql.NullString
		name     sql.NullString
	)

	dest := []any{&b.ID, &b.Title, &b.URL, &b.Author, &b.Likes, &b.Comments, &ownerID, &b.CreatedAt, &b.UpdatedAt, &b.Version}
	if withOwner {
		dest = append(dest, &username, &name)
	}

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	if ownerID.Valid {
		id := ownerID.UUID
		b.OwnerID = &id
	}
	if username.Valid {
		b.Owner = &Owner{Username: username.String, Name: name.String}
	}

	return &b, nil
}

// insert runs inside tx so the owner's back reference can be written atomically with it.
func (m *BlogModel) insert(ctx context.Context, tx *sql.Tx, b *Blog) error {
	query := `
		INSERT INTO blogs AS b (title, url, author, likes, user_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + blogColumns

	created, err := scanBlog(tx.QueryRowContext(ctx, query, b.Title, b.URL, b.Author, b.Likes, b.OwnerID), false)
	if err != nil {
		return common.StoreError(err)
	}

	*b = *created
	return nil
}

func (m *BlogModel) getBlog(ctx context.Context, id uuid.UUID) (*Blog, error) {
	query := `
		SELECT ` + blogColumns + `, u.username, u.name
		FROM blogs b
		LEFT JOIN users u ON b.user_id = u.id
		WHERE b.id = $1`

	b, err := scanBlog(m.db.QueryRowContext(ctx, query, id), true)
	if err != nil {
		return nil, common.StoreError(err)
	}

	return b, nil
}

// listBlogs returns every blog in insertion order with the owner projection attached.
func (m *BlogModel) listBlogs(ctx context.Context) ([]Blog, error) {
	query := `
		SELECT ` + blogColumns + `, u.username, u.name
		FROM blogs b
		LEFT JOIN users u ON b.user_id = u.id
		ORDER BY b.created_at, b.id`

	rows, err := m.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	blogs := []Blog{}
	for rows.Next() {
		b, err := scanBlog(rows, true)
		if err != nil {
			return nil, err
		}
		blogs = append(blogs, *b)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return blogs, nil
}

func (m *BlogModel) updateLikes(ctx context.Context, id uuid.UUID, likes int) (*Blog, error) {
	query := `
		UPDATE blogs AS b
		SET likes = $1, updated_at = NOW(), version = version + 1
		WHERE b.id = $2
		RETURNING ` + blogColumns

	b, err := scanBlog(m.db.QueryRowContext(ctx, query, likes, id), false)
	if err != nil {
		return nil, common.StoreError(err)
	}

	return b, nil
}

func (m *BlogModel) appendComment(ctx context.Context, id uuid.UUID, text string) (*Blog, error) {
	query := `
		UPDATE blogs AS b
		SET comments = comments || jsonb_build_array(jsonb_build_object('text', $1::text)),
			updated_at = NOW(), version = version + 1
		WHERE b.id = $2
		RETURNING ` + blogColumns

	b, err := scanBlog(m.db.QueryRowContext(ctx, query, text, id), false)
	if err != nil {
		return nil, common.StoreError(err)
	}

	return b, nil
}

func (m *BlogModel) deleteBlog(ctx context.Context, id uuid.UUID) error {
	res, err := m.db.ExecContext(ctx, `DELETE FROM blogs WHERE id = $1`, id)
	if err != nil {
		return common.StoreError(err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}

	switch {
	case rows == 0:
		return common.NotFoundError{ID: id.String()}
	case rows > 1:
		return fmt.Errorf("expected 1 row to be affected, got %d", rows)
	}

	return nil
}

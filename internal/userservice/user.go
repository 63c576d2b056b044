package userservice

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sushihentaime/bloglist/internal/common"
)

func newUserModel(db *sql.DB) *DBModel {
	return &DBModel{db: db}
}

func (m *DBModel) insertUser(ctx context.Context, u *User) error {
	query := `
		INSERT INTO users (username, name, password)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, version`

	err := m.db.QueryRowContext(ctx, query, u.Username, u.Name, u.Password.hash).Scan(&u.ID, &u.CreatedAt, &u.Version)
	if err != nil {
		return common.StoreError(err)
	}

	u.BlogIDs = []uuid.UUID{}
	u.Blogs = []BlogRef{}

	return nil
}

func (m *DBModel) getUserByUsername(ctx context.Context, username string) (*User, error) {
	query := `
		SELECT id, username, name, password, blog_ids, created_at, version
		FROM users
		WHERE username = $1`

	var u User

	err := m.db.QueryRowContext(ctx, query, username).Scan(&u.ID, &u.Username, &u.Name, &u.Password.hash, pq.Array(&u.BlogIDs), &u.CreatedAt, &u.Version)
	if err != nil {
		return nil, common.StoreError(err)
	}

	return &u, nil
}

func (m *DBModel) listUsers(ctx context.Context) ([]*User, error) {
	query := `
		SELECT id, username, name, blog_ids, created_at, version
		FROM users
		ORDER BY created_at, id`

	rows, err := m.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []*User{}
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Username, &u.Name, pq.Array(&u.BlogIDs), &u.CreatedAt, &u.Version); err != nil {
			return nil, err
		}
		users = append(users, &u)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return users, nil
}

func (m *DBModel) getBlogRefs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]BlogRef, error) {
	refs := make(map[uuid.UUID]BlogRef, len(ids))
	if len(ids) == 0 {
		return refs, nil
	}

	query := `
		SELECT id, title, url, author
		FROM blogs
		WHERE id = ANY($1::uuid[])`

	rows, err := m.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var ref BlogRef
		if err := rows.Scan(&ref.ID, &ref.Title, &ref.URL, &ref.Author); err != nil {
			return nil, err
		}
		refs[ref.ID] = ref
	}

	return refs, rows.Err()
}

// AppendBlogRef records blogID on the owner's blog list inside tx. Appending an
// id that is already present is a no-op.
func AppendBlogRef(ctx context.Context, tx *sql.Tx, userID, blogID uuid.UUID) error {
	query := `
		UPDATE users
		SET blog_ids = array_append(blog_ids, $1), version = version + 1
		WHERE id = $2 AND NOT ($1 = ANY(blog_ids))`

	_, err := tx.ExecContext(ctx, query, blogID, userID)
	return common.StoreError(err)
}

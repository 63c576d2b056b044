package userservice

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultTokenTTL   = 24 * time.Hour
	DefaultBcryptCost = 10

	minPasswordLength = 3
	// bcrypt refuses to hash anything longer
	maxPasswordBytes  = 72
	minUsernameLength = 3
)

type UserService struct {
	m      *DBModel
	tokens *TokenService
	cost   int
}

type DBModel struct {
	db *sql.DB
}

// Principal is the identity recovered from a verified token. It lives for one request.
type Principal struct {
	UserID   uuid.UUID
	Username string
}

type User struct {
	ID        uuid.UUID   `json:"id"`
	Username  string      `json:"username"`
	Name      string      `json:"name"`
	Password  Password    `json:"-"`
	BlogIDs   []uuid.UUID `json:"-"`
	Blogs     []BlogRef   `json:"blogs"`
	CreatedAt time.Time   `json:"-"`
	Version   int         `json:"-"`
}

// BlogRef is the projection of a blog shown inside a user listing.
type BlogRef struct {
	ID     uuid.UUID `json:"id"`
	Title  string    `json:"title"`
	URL    string    `json:"url"`
	Author string    `json:"author"`
}

type Password struct {
	Plain *string
	hash  []byte
}

type LoginResult struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

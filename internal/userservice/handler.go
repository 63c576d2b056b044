package userservice

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/sushihentaime/bloglist/internal/common"
)

var ErrInvalidCredentials = common.AuthError{Reason: common.AuthInvalid, Message: "invalid username or password"}

func NewUserService(db *sql.DB, tokens *TokenService, cost int) *UserService {
	if cost == 0 {
		cost = DefaultBcryptCost
	}

	return &UserService{
		m:      newUserModel(db),
		tokens: tokens,
		cost:   cost,
	}
}

// RegisterUser creates a user with an empty blog list. The password length is
// checked before anything else.
func (s *UserService) RegisterUser(ctx context.Context, username, name, password string) (*User, error) {
	if err := checkPassword(password); err != nil {
		return nil, err
	}

	v := common.NewValidator()
	validateUsername(v, username)
	validatePassword(v, password)
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	u := User{
		Username: username,
		Name:     name,
	}

	if err := u.Password.set(password, s.cost); err != nil {
		return nil, err
	}

	if err := s.m.insertUser(ctx, &u); err != nil {
		return nil, err
	}

	return &u, nil
}

// LoginUser checks the credentials and issues a signed token for the user.
func (s *UserService) LoginUser(ctx context.Context, username, password string) (*LoginResult, error) {
	v := common.NewValidator()
	validateCredentials(v, username, password)
	if !v.Valid() {
		return nil, ErrInvalidCredentials
	}

	u, err := s.m.getUserByUsername(ctx, username)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrRecordNotFound):
			return nil, ErrInvalidCredentials
		default:
			return nil, err
		}
	}

	ok, err := u.Password.compare(password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(u)
	if err != nil {
		return nil, err
	}

	return &LoginResult{Token: token, Username: u.Username, Name: u.Name}, nil
}

// ListUsers returns every user with their blog list expanded. Ids of blogs that
// no longer exist are skipped.
func (s *UserService) ListUsers(ctx context.Context) ([]*User, error) {
	users, err := s.m.listUsers(ctx)
	if err != nil {
		return nil, err
	}

	refs, err := s.m.getBlogRefs(ctx, collectBlogIDs(users))
	if err != nil {
		return nil, err
	}

	for _, u := range users {
		u.Blogs = make([]BlogRef, 0, len(u.BlogIDs))
		for _, id := range u.BlogIDs {
			if ref, ok := refs[id]; ok {
				u.Blogs = append(u.Blogs, ref)
			}
		}
	}

	return users, nil
}

// Authenticate resolves an Authorization header into a principal.
func (s *UserService) Authenticate(header string) (*Principal, error) {
	return s.tokens.Verify(header)
}

func collectBlogIDs(users []*User) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{})
	ids := []uuid.UUID{}
	for _, u := range users {
		for _, id := range u.BlogIDs {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids
}

package users_test

import (
	"context"
	"database/sql"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	users "github.com/goliatone/go-users"
)

// stubConfig implements users.Config with plain fields.
type stubConfig struct {
	signingKey          string
	contextKey          string
	tokenLookup         string
	authScheme          string
	bootstrapAdminEmail string
}

func (c stubConfig) GetSigningKey() string    { return c.signingKey }
func (c stubConfig) GetSigningMethod() string { return "HS256" }
func (c stubConfig) GetContextKey() string    { return c.contextKey }
func (c stubConfig) GetTokenLookup() string   { return c.tokenLookup }
func (c stubConfig) GetAuthScheme() string    { return c.authScheme }
func (c stubConfig) GetBootstrapAdminEmail() string {
	return c.bootstrapAdminEmail
}

// stubUsers backs the authenticator and controller tests with an in-memory
// map. Methods not overridden panic via the embedded nil interface, which
// is exactly what we want: a test reaching an unexpected method should
// fail loudly.
type stubUsers struct {
	users.Users
	byEmail     map[string]*users.User
	byID        map[string]*users.User
	registerErr error
	listPage    *users.UserPage
	listErr     error
	deleted     []string
	deleteAlln  int64
}

func newStubUsers(records ...*users.User) *stubUsers {
	s := &stubUsers{
		byEmail: map[string]*users.User{},
		byID:    map[string]*users.User{},
	}
	for _, r := range records {
		s.add(r)
	}
	return s
}

func (s *stubUsers) add(r *users.User) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	s.byEmail[r.Email] = r
	s.byID[r.ID.String()] = r
}

func (s *stubUsers) GetByEmail(ctx context.Context, email string) (*users.User, error) {
	if user, ok := s.byEmail[email]; ok {
		return user, nil
	}
	return nil, repository.NewRecordNotFound()
}

func (s *stubUsers) GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (*users.User, error) {
	if user, ok := s.byID[id]; ok {
		return user, nil
	}
	return nil, repository.NewRecordNotFound()
}

func (s *stubUsers) Register(ctx context.Context, record *users.User) (*users.User, error) {
	if s.registerErr != nil {
		return nil, s.registerErr
	}
	s.add(record)
	return record, nil
}

func (s *stubUsers) Patch(ctx context.Context, id uuid.UUID, patch users.UserPatch) (*users.User, error) {
	user, ok := s.byID[id.String()]
	if !ok {
		return nil, repository.NewRecordNotFound()
	}
	if patch.Name != nil {
		user.Name = *patch.Name
	}
	if patch.Email != nil {
		delete(s.byEmail, user.Email)
		user.Email = *patch.Email
		s.byEmail[user.Email] = user
	}
	if patch.Role != nil {
		user.Role = *patch.Role
	}
	return user, nil
}

func (s *stubUsers) DeleteByID(ctx context.Context, id uuid.UUID) error {
	user, ok := s.byID[id.String()]
	if !ok {
		return repository.NewRecordNotFound()
	}
	delete(s.byID, id.String())
	delete(s.byEmail, user.Email)
	s.deleted = append(s.deleted, id.String())
	return nil
}

func (s *stubUsers) DeleteAll(ctx context.Context) (int64, error) {
	n := int64(len(s.byID))
	s.byID = map[string]*users.User{}
	s.byEmail = map[string]*users.User{}
	s.deleteAlln = n
	return n, nil
}

func (s *stubUsers) List(ctx context.Context, cursor string, pageSize int) (*users.UserPage, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	if s.listPage != nil {
		return s.listPage, nil
	}
	page := &users.UserPage{IsDone: true}
	for _, u := range s.byID {
		page.Users = append(page.Users, u)
	}
	return page, nil
}

func (s *stubUsers) CurrentTokenVersion(ctx context.Context, id uuid.UUID) (int64, error) {
	user, ok := s.byID[id.String()]
	if !ok {
		return 0, repository.NewRecordNotFound()
	}
	return user.TokenVersion, nil
}

func (s *stubUsers) RevokeTokens(ctx context.Context, id uuid.UUID) (int64, error) {
	user, ok := s.byID[id.String()]
	if !ok {
		return 0, repository.NewRecordNotFound()
	}
	user.TokenVersion++
	return user.TokenVersion, nil
}

// stubRepo implements users.RepositoryManager over a stubUsers.
type stubRepo struct {
	users users.Users
}

func (r stubRepo) Validate() error { return nil }

func (r stubRepo) MustValidate() {}

func (r stubRepo) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	return f(ctx, bun.Tx{})
}

func (r stubRepo) Users() users.Users { return r.users }

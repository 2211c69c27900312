package users

import (
	"context"
	"database/sql"
	"strings"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var revokeTokensSQL = `UPDATE "users" AS "usr"
SET
	"token_version" = "usr"."token_version" + 1,
	"updated_at" = CURRENT_TIMESTAMP
WHERE (
	"usr"."id" = ?
) RETURNING *;`

// Users is the persistence collaborator for user records. It also acts as
// the revocation ledger: token_version lives on the user row and is only
// mutated through RevokeTokens.
type Users interface {
	// The method set of repository.Repository[*User], except List, which
	// the concrete type shadows with the cursor-paginated variant below.
	// Go does not allow embedding repository.Repository[*User] here because
	// its List signature differs from ours.
	Raw(ctx context.Context, sql string, args ...any) ([]*User, error)
	RawTx(ctx context.Context, tx bun.IDB, sql string, args ...any) ([]*User, error)
	Get(ctx context.Context, criteria ...repository.SelectCriteria) (*User, error)
	GetTx(ctx context.Context, tx bun.IDB, criteria ...repository.SelectCriteria) (*User, error)
	GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (*User, error)
	GetByIDTx(ctx context.Context, tx bun.IDB, id string, criteria ...repository.SelectCriteria) (*User, error)
	ListTx(ctx context.Context, tx bun.IDB, criteria ...repository.SelectCriteria) ([]*User, int, error)
	Count(ctx context.Context, criteria ...repository.SelectCriteria) (int, error)
	CountTx(ctx context.Context, tx bun.IDB, criteria ...repository.SelectCriteria) (int, error)
	Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error)
	CreateMany(ctx context.Context, records []*User, criteria ...repository.InsertCriteria) ([]*User, error)
	CreateManyTx(ctx context.Context, tx bun.IDB, records []*User, criteria ...repository.InsertCriteria) ([]*User, error)
	GetOrCreate(ctx context.Context, record *User) (*User, error)
	GetOrCreateTx(ctx context.Context, tx bun.IDB, record *User) (*User, error)
	GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (*User, error)
	GetByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string, criteria ...repository.SelectCriteria) (*User, error)
	Update(ctx context.Context, record *User, criteria ...repository.UpdateCriteria) (*User, error)
	UpdateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.UpdateCriteria) (*User, error)
	UpdateMany(ctx context.Context, records []*User, criteria ...repository.UpdateCriteria) ([]*User, error)
	UpdateManyTx(ctx context.Context, tx bun.IDB, records []*User, criteria ...repository.UpdateCriteria) ([]*User, error)
	Upsert(ctx context.Context, record *User, criteria ...repository.UpdateCriteria) (*User, error)
	UpsertTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.UpdateCriteria) (*User, error)
	UpsertMany(ctx context.Context, records []*User, criteria ...repository.UpdateCriteria) ([]*User, error)
	UpsertManyTx(ctx context.Context, tx bun.IDB, records []*User, criteria ...repository.UpdateCriteria) ([]*User, error)
	Delete(ctx context.Context, record *User) error
	DeleteTx(ctx context.Context, tx bun.IDB, record *User) error
	DeleteMany(ctx context.Context, criteria ...repository.DeleteCriteria) error
	DeleteManyTx(ctx context.Context, tx bun.IDB, criteria ...repository.DeleteCriteria) error
	DeleteWhere(ctx context.Context, criteria ...repository.DeleteCriteria) error
	DeleteWhereTx(ctx context.Context, tx bun.IDB, criteria ...repository.DeleteCriteria) error
	ForceDelete(ctx context.Context, record *User) error
	ForceDeleteTx(ctx context.Context, tx bun.IDB, record *User) error
	Handlers() repository.ModelHandlers[*User]
	RegisterScope(name string, scope repository.ScopeDefinition)
	SetScopeDefaults(defaults repository.ScopeDefaults) error
	GetScopeDefaults() repository.ScopeDefaults

	Register(ctx context.Context, user *User) (*User, error)
	RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error)
	Patch(ctx context.Context, id uuid.UUID, patch UserPatch) (*User, error)
	PatchTx(ctx context.Context, tx bun.IDB, id uuid.UUID, patch UserPatch) (*User, error)
	DeleteByID(ctx context.Context, id uuid.UUID) error
	DeleteAll(ctx context.Context) (int64, error)
	List(ctx context.Context, cursor string, pageSize int) (*UserPage, error)

	CurrentTokenVersion(ctx context.Context, id uuid.UUID) (int64, error)
	RevokeTokens(ctx context.Context, id uuid.UUID) (int64, error)
	RevokeTokensTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (int64, error)
}

type users struct {
	repository.Repository[*User]
	db *bun.DB
}

var _ Users = (*users)(nil)

// NewUsersRepository wires the generic repository handlers for the User model.
func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &users{
		Repository: repo,
		db:         db,
	}
}

func (a *users) Register(ctx context.Context, user *User) (*User, error) {
	return a.RegisterTx(ctx, a.db, user)
}

// RegisterTx persists a new account. The unique index on email is the real
// duplicate arbiter; callers may pre-check with GetByEmail for a fast 409
// but must still handle IsDuplicateEmail from here.
func (a *users) RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error) {
	if user.Role == "" {
		user.Role = RoleUser
	}
	return a.Repository.CreateTx(ctx, tx, user)
}

func (a *users) GetByEmail(ctx context.Context, email string) (*User, error) {
	return a.GetByEmailTx(ctx, a.db, email)
}

func (a *users) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error) {
	record := &User{}

	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", email).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"email": email,
				})
		}
		return nil, err
	}

	return record, nil
}

func (a *users) Patch(ctx context.Context, id uuid.UUID, patch UserPatch) (*User, error) {
	return a.PatchTx(ctx, a.db, id, patch)
}

// PatchTx applies the non-nil fields of patch. It never touches
// password_hash or token_version; those have dedicated mutation paths.
func (a *users) PatchTx(ctx context.Context, tx bun.IDB, id uuid.UUID, patch UserPatch) (*User, error) {
	if patch.IsZero() {
		return nil, ErrEmptyUpdate
	}

	q := tx.NewUpdate().
		Model((*User)(nil)).
		Where("?TableAlias.id = ?", id)

	if patch.Name != nil {
		q = q.Set("name = ?", *patch.Name)
	}
	if patch.Email != nil {
		q = q.Set("email = ?", *patch.Email)
	}
	if patch.Role != nil {
		q = q.Set("user_role = ?", *patch.Role)
	}
	q = q.Set("updated_at = CURRENT_TIMESTAMP")

	res, err := q.Exec(ctx)
	if err != nil {
		return nil, err
	}

	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return nil, repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": id.String(),
			})
	}

	record := &User{}
	if err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx); err != nil {
		return nil, err
	}

	return record, nil
}

func (a *users) DeleteByID(ctx context.Context, id uuid.UUID) error {
	res, err := a.db.NewDelete().
		Model((*User)(nil)).
		Where("?TableAlias.id = ?", id).
		Exec(ctx)

	if err != nil {
		return err
	}

	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": id.String(),
			})
	}

	return nil
}

// DeleteAll removes every user record and reports how many went away.
func (a *users) DeleteAll(ctx context.Context) (int64, error) {
	res, err := a.db.NewDelete().
		Model((*User)(nil)).
		Where("TRUE").
		Exec(ctx)

	if err != nil {
		return 0, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}

	return affected, nil
}

// List pages through users ordered by id. The cursor is the id of the last
// record of the previous page; an empty cursor starts from the beginning.
func (a *users) List(ctx context.Context, cursor string, pageSize int) (*UserPage, error) {
	records := []*User{}

	// Fetch one extra row to learn whether another page exists.
	q := a.db.NewSelect().
		Model(&records).
		Order("usr.id ASC").
		Limit(pageSize + 1)

	if cursor != "" {
		after, err := uuid.Parse(cursor)
		if err != nil {
			return nil, errors.New("invalid pagination cursor", errors.CategoryBadInput).
				WithCode(errors.CodeBadRequest).
				WithMetadata(map[string]any{"cursor": cursor})
		}
		q = q.Where("?TableAlias.id > ?", after)
	}

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	page := &UserPage{IsDone: true}
	if len(records) > pageSize {
		records = records[:pageSize]
		page.IsDone = false
	}
	page.Users = records

	if len(records) > 0 {
		page.ContinueCursor = records[len(records)-1].ID.String()
	}

	return page, nil
}

func (a *users) CurrentTokenVersion(ctx context.Context, id uuid.UUID) (int64, error) {
	var version int64

	err := a.db.NewSelect().
		Model((*User)(nil)).
		Column("token_version").
		Where("?TableAlias.id = ?", id).
		Scan(ctx, &version)

	if err != nil {
		if repository.IsRecordNotFound(err) || errors.Is(err, sql.ErrNoRows) {
			return 0, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"id": id.String(),
				})
		}
		return 0, err
	}

	return version, nil
}

func (a *users) RevokeTokens(ctx context.Context, id uuid.UUID) (int64, error) {
	return a.RevokeTokensTx(ctx, a.db, id)
}

// RevokeTokensTx bumps token_version in a single UPDATE so concurrent
// revokes each take effect. Deliberately not idempotent: every call
// invalidates whatever was issued before it.
func (a *users) RevokeTokensTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (int64, error) {
	res, err := a.Repository.RawTx(ctx, tx, revokeTokensSQL, id.String())
	if err != nil {
		return 0, err
	}

	if len(res) == 0 {
		return 0, repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": id.String(),
			})
	}

	return res[0].TokenVersion, nil
}

// IsDuplicateEmail reports whether err is the unique-constraint violation
// raised by the email index. Matched by message because the dialects in
// play (sqlite, postgres) surface it through different driver types.
func IsDuplicateEmail(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed: users.email") ||
		strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "users_email_key")
}

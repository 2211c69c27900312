package users

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

// Authenticator holds the account flows the HTTP layer orchestrates.
type Authenticator interface {
	Signup(ctx context.Context, name, email, password string) (*User, error)
	Login(ctx context.Context, email, password string) (*User, TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	Revoke(ctx context.Context, id uuid.UUID) (int64, error)
}

type Auther struct {
	repo                RepositoryManager
	tokens              TokenService
	issuer              *TokenIssuer
	bootstrapAdminEmail string
	logger              Logger
}

var _ Authenticator = (*Auther)(nil)

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(repo RepositoryManager, tokens TokenService, cfg Config) *Auther {
	return &Auther{
		repo:                repo,
		tokens:              tokens,
		issuer:              NewTokenIssuer(tokens),
		bootstrapAdminEmail: cfg.GetBootstrapAdminEmail(),
		logger:              defLogger{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	s.logger = logger
	return s
}

// TokenIssuer returns the issuer used by this Authenticator.
func (s *Auther) TokenIssuer() *TokenIssuer {
	return s.issuer
}

// Signup creates an account. The email pre-check is a fast path for a clean
// 409; the unique index arbitrates the race when two signups collide.
func (s *Auther) Signup(ctx context.Context, name, email, password string) (*User, error) {
	if _, err := s.repo.Users().GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !repository.IsRecordNotFound(err) {
		s.logger.Error("Signup email lookup error", "error", err)
		return nil, err
	}

	hash, err := HashPassword(password)
	if err != nil {
		s.logger.Error("Signup hash error", "error", err)
		return nil, err
	}

	record := &User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         s.roleFor(email),
		TokenVersion: 0,
	}

	created, err := s.repo.Users().Register(ctx, record)
	if err != nil {
		if IsDuplicateEmail(err) {
			return nil, ErrEmailTaken
		}
		s.logger.Error("Signup register error", "error", err)
		return nil, err
	}

	return created, nil
}

// Login verifies the credentials and issues a fresh token pair carrying the
// user's current token version.
func (s *Auther) Login(ctx context.Context, email, password string) (*User, TokenPair, error) {
	user, err := s.repo.Users().GetByEmail(ctx, email)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, TokenPair{}, ErrUserNotFound
		}
		s.logger.Error("Login user lookup error", "error", err)
		return nil, TokenPair{}, err
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		if errors.Is(err, ErrCorruptCredential) {
			s.logger.Error("Login stored hash is corrupt", "user_id", user.ID.String())
		}
		return nil, TokenPair{}, err
	}

	pair, err := s.issuer.Issue(user, time.Now())
	if err != nil {
		s.logger.Error("Login token issuance error", "error", err)
		return nil, TokenPair{}, err
	}

	return user, pair, nil
}

// Refresh validates a refresh token and mints a new access token. The
// version snapshot is checked against the ledger so a revoked refresh token
// cannot resurrect a session. No rotation: the refresh token stays as is.
func (s *Auther) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.tokens.ValidateRefresh(refreshToken)
	if err != nil {
		return "", err
	}

	id, err := uuid.Parse(claims.Subject())
	if err != nil {
		return "", ErrTokenMalformed
	}

	user, err := s.repo.Users().GetByID(ctx, id.String())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			// The account is gone; treat the token as revoked.
			return "", ErrTokenRevoked
		}
		s.logger.Error("Refresh user lookup error", "error", err)
		return "", err
	}

	if claims.Version != user.TokenVersion {
		return "", ErrTokenRevoked
	}

	pair, err := s.issuer.Issue(user, time.Now())
	if err != nil {
		s.logger.Error("Refresh token issuance error", "error", err)
		return "", err
	}

	return pair.AccessToken, nil
}

// Revoke bumps the user's token version, invalidating every outstanding
// token issued with a lower snapshot.
func (s *Auther) Revoke(ctx context.Context, id uuid.UUID) (int64, error) {
	version, err := s.repo.Users().RevokeTokens(ctx, id)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return 0, ErrUserNotFound
		}
		s.logger.Error("Revoke error", "error", err, "user_id", id.String())
		return 0, err
	}

	s.logger.Info("Tokens revoked", "user_id", id.String(), "token_version", version)
	return version, nil
}

func (s *Auther) roleFor(email string) UserRole {
	if s.bootstrapAdminEmail != "" && email == s.bootstrapAdminEmail {
		return RoleAdmin
	}
	return RoleUser
}

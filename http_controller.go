package users

import (
	"context"
	"fmt"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"

	"github.com/goliatone/go-users/middleware/jwtware"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// UserControllerRoutes are the mounted paths. Profile routes register
// before the parameterized admin routes so "profile" never binds as an :id.
type UserControllerRoutes struct {
	Signup  string
	Login   string
	Refresh string
	Revoke  string
	Profile string
	Users   string
	UserID  string
}

type UserController struct {
	Logger       Logger
	Auth         Authenticator
	Repo         RepositoryManager
	Tokens       TokenService
	Routes       *UserControllerRoutes
	ErrorHandler router.ErrorHandler
	contextKey   string
}

type UserControllerOption func(*UserController) *UserController

func WithControllerLogger(logger Logger) UserControllerOption {
	return func(c *UserController) *UserController {
		c.Logger = logger
		return c
	}
}

func WithControllerAuth(auth Authenticator) UserControllerOption {
	return func(c *UserController) *UserController {
		c.Auth = auth
		return c
	}
}

func WithControllerRepo(repo RepositoryManager) UserControllerOption {
	return func(c *UserController) *UserController {
		c.Repo = repo
		return c
	}
}

func WithControllerTokens(tokens TokenService) UserControllerOption {
	return func(c *UserController) *UserController {
		c.Tokens = tokens
		return c
	}
}

func WithControllerErrorHandler(handler router.ErrorHandler) UserControllerOption {
	return func(c *UserController) *UserController {
		c.ErrorHandler = handler
		return c
	}
}

func NewUserController(opts ...UserControllerOption) *UserController {
	c := &UserController{
		Logger:     defLogger{},
		contextKey: DefaultClaimsContextKey,
		Routes: &UserControllerRoutes{
			Signup:  "/api/v1/users",
			Login:   "/api/v1/auth/login",
			Refresh: "/api/v1/auth/refresh",
			Revoke:  "/api/v1/auth/revoke",
			Profile: "/api/v1/users/profile",
			Users:   "/api/v1/users/:id?",
			UserID:  "/api/v1/users/:id",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in users controller...")
	}

	if c.Auth == nil {
		panic("Missing Authenticator in users controller...")
	}

	if c.Tokens == nil {
		panic("Missing TokenService in users controller...")
	}

	if c.ErrorHandler == nil {
		c.ErrorHandler = JSONErrorHandler(c.Logger)
	}

	return c
}

// RegisterUserRoutes mounts the API. Every route behind `protected` went
// through token verification and the revocation check before its handler
// runs; admin routes additionally gate on RequireAdmin inside the handler.
// The profile routes register before the :id? routes so "profile" never
// matches as an id.
func RegisterUserRoutes[T any](app router.Router[T], cfg Config, opts ...UserControllerOption) *UserController {
	controller := NewUserController(opts...)
	protected := controller.ProtectedRoute(cfg)

	app.Post(controller.Routes.Signup, controller.Signup).
		SetName("users.signup")
	app.Post(controller.Routes.Login, controller.Login).
		SetName("auth.login")
	app.Post(controller.Routes.Refresh, controller.Refresh).
		SetName("auth.refresh")
	app.Post(controller.Routes.Revoke, controller.Revoke, protected).
		SetName("auth.revoke")

	app.Get(controller.Routes.Profile, controller.ProfileShow, protected).
		SetName("users.profile.get")
	app.Put(controller.Routes.Profile, controller.ProfileUpdate, protected).
		SetName("users.profile.put")
	app.Delete(controller.Routes.Profile, controller.ProfileDelete, protected).
		SetName("users.profile.delete")

	app.Get(controller.Routes.Users, controller.AdminShow, protected).
		SetName("users.admin.get")
	app.Put(controller.Routes.UserID, controller.AdminUpdate, protected).
		SetName("users.admin.put")
	app.Delete(controller.Routes.Users, controller.AdminDelete, protected).
		SetName("users.admin.delete")

	return controller
}

// ProtectedRoute builds the verifying middleware wired to this
// controller's codec and revocation ledger.
func (c *UserController) ProtectedRoute(cfg Config) router.MiddlewareFunc {
	contextKey := cfg.GetContextKey()
	if contextKey == "" {
		contextKey = DefaultClaimsContextKey
	}
	c.contextKey = contextKey

	return jwtware.New(jwtware.Config{
		ErrorHandler:   c.AuthErrorHandler(),
		TokenValidator: tokenValidatorAdapter{tokens: c.Tokens},
		VersionChecker: versionCheckerAdapter{users: c.Repo.Users()},
		ContextKey:     contextKey,
		TokenLookup:    cfg.GetTokenLookup(),
		AuthScheme:     cfg.GetAuthScheme(),
		ContextEnricher: func(stdCtx context.Context, claims jwtware.AuthClaims) context.Context {
			if ac, ok := claims.(AuthClaims); ok {
				return WithClaimsContext(stdCtx, ac)
			}
			return stdCtx
		},
	})
}

// AuthErrorHandler converts middleware failures into the rich errors the
// central translator understands.
func (c *UserController) AuthErrorHandler() router.ErrorHandler {
	return func(ctx router.Context, err error) error {
		var richErr *errors.Error
		switch {
		case errors.As(err, &richErr):
			// Already one of ours (expired, malformed, revoked user gone).
		case errors.Is(err, jwtware.ErrJWTMissingOrMalformed):
			richErr = ErrMissingToken
		case errors.Is(err, jwtware.ErrTokenRevoked):
			richErr = ErrTokenRevoked
		default:
			richErr = errors.Wrap(err, errors.CategoryAuth, "invalid authentication token").
				WithCode(errors.CodeUnauthorized)
		}

		return c.ErrorHandler(ctx, richErr)
	}
}

func (c *UserController) claims(ctx router.Context) (AuthClaims, error) {
	claims, ok := ClaimsFromRouter(ctx, c.contextKey)
	if !ok {
		return nil, ErrMissingToken
	}
	return claims, nil
}

// SignupRequest payload
type SignupRequest struct {
	Name     string `form:"name" json:"name"`
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r SignupRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Name,
			validation.Required,
			validation.Length(2, 35),
		),
		validation.Field(
			&r.Email,
			validation.Required,
			is.Email,
		),
		validation.Field(
			&r.Password,
			validation.Required,
			validation.Length(8, 25),
		),
	)
}

func (c *UserController) Signup(ctx router.Context) error {
	payload := new(SignupRequest)

	if err := ctx.Bind(payload); err != nil {
		return c.ErrorHandler(ctx, bindError(err))
	}

	if err := payload.Validate(); err != nil {
		return c.ErrorHandler(ctx, err)
	}

	created, err := c.Auth.Signup(ctx.Context(), payload.Name, payload.Email, payload.Password)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	return respond(ctx, router.StatusOK, "User account created successfully", map[string]any{
		"user": created.Sanitize(),
	})
}

// LoginRequest payload
type LoginRequest struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required,
			is.Email,
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

func (c *UserController) Login(ctx router.Context) error {
	payload := new(LoginRequest)

	if err := ctx.Bind(payload); err != nil {
		return c.ErrorHandler(ctx, bindError(err))
	}

	if err := payload.Validate(); err != nil {
		return c.ErrorHandler(ctx, err)
	}

	user, pair, err := c.Auth.Login(ctx.Context(), payload.Email, payload.Password)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	return respond(ctx, router.StatusOK, "Login successful", map[string]any{
		"user": map[string]any{
			"id":         user.ID,
			"email":      user.Email,
			"login_type": "email-password",
		},
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
	})
}

// RefreshRequest payload
type RefreshRequest struct {
	RefreshToken string `form:"refresh_token" json:"refresh_token"`
}

// Validate will run validation rules
func (r RefreshRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.RefreshToken,
			validation.Required,
		),
	)
}

func (c *UserController) Refresh(ctx router.Context) error {
	payload := new(RefreshRequest)

	if err := ctx.Bind(payload); err != nil {
		return c.ErrorHandler(ctx, bindError(err))
	}

	if err := payload.Validate(); err != nil {
		return c.ErrorHandler(ctx, err)
	}

	accessToken, err := c.Auth.Refresh(ctx.Context(), payload.RefreshToken)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	return respond(ctx, router.StatusOK, "Access token refreshed", map[string]any{
		"access_token": accessToken,
	})
}

// Revoke bumps the caller's token version; every previously issued token
// dies on its next verification.
func (c *UserController) Revoke(ctx router.Context) error {
	claims, err := c.claims(ctx)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	id, err := uuid.Parse(claims.Subject())
	if err != nil {
		return c.ErrorHandler(ctx, ErrTokenMalformed)
	}

	version, err := c.Auth.Revoke(ctx.Context(), id)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	return respond(ctx, router.StatusOK, "All sessions revoked", map[string]any{
		"token_version": version,
	})
}

// ProfileShow answers from the verified claims alone; no store round trip.
func (c *UserController) ProfileShow(ctx router.Context) error {
	claims, err := c.claims(ctx)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	return respond(ctx, router.StatusOK, "User profile retrieved successfully", map[string]any{
		"id":            claims.Subject(),
		"name":          claims.UserName(),
		"email":         claims.Email(),
		"role":          claims.Role(),
		"token_version": claims.TokenVersion(),
	})
}

// UpdateProfileRequest payload; nil fields stay unchanged.
type UpdateProfileRequest struct {
	Name  *string `form:"name" json:"name"`
	Email *string `form:"email" json:"email"`
}

// Validate will run validation rules
func (r UpdateProfileRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Name,
			validation.Length(2, 35),
		),
		validation.Field(
			&r.Email,
			is.Email,
		),
	)
}

func (r UpdateProfileRequest) patch() UserPatch {
	return UserPatch{Name: r.Name, Email: r.Email}
}

func (c *UserController) ProfileUpdate(ctx router.Context) error {
	claims, err := c.claims(ctx)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	payload := new(UpdateProfileRequest)
	if err := ctx.Bind(payload); err != nil {
		return c.ErrorHandler(ctx, bindError(err))
	}

	if err := payload.Validate(); err != nil {
		return c.ErrorHandler(ctx, err)
	}

	patch := payload.patch()
	if patch.IsZero() {
		return c.ErrorHandler(ctx, ErrEmptyUpdate)
	}

	id, err := uuid.Parse(claims.Subject())
	if err != nil {
		return c.ErrorHandler(ctx, ErrTokenMalformed)
	}

	updated, err := c.Repo.Users().Patch(ctx.Context(), id, patch)
	if err != nil {
		return c.ErrorHandler(ctx, c.userNotFoundOr(err, claims.Subject()))
	}

	return respond(ctx, router.StatusOK,
		fmt.Sprintf("User with ID %s updated successfully", claims.Subject()),
		map[string]any{"user": updated.Sanitize()},
	)
}

func (c *UserController) ProfileDelete(ctx router.Context) error {
	claims, err := c.claims(ctx)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	id, err := uuid.Parse(claims.Subject())
	if err != nil {
		return c.ErrorHandler(ctx, ErrTokenMalformed)
	}

	if err := c.Repo.Users().DeleteByID(ctx.Context(), id); err != nil {
		// A valid token for an already-deleted account is still a success
		// from the caller's point of view.
		if !repository.IsRecordNotFound(err) {
			return c.ErrorHandler(ctx, err)
		}
	}

	return respond(ctx, router.StatusOK, "User account deleted successfully", nil)
}

// AdminShow returns a single user when :id is present, or a cursor page of
// all users otherwise. Precondition: RequireAdmin.
func (c *UserController) AdminShow(ctx router.Context) error {
	claims, err := c.claims(ctx)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	if err := RequireAdmin(claims); err != nil {
		return c.ErrorHandler(ctx, err)
	}

	if id := ctx.Param("id", ""); id != "" {
		user, err := c.Repo.Users().GetByID(ctx.Context(), id)
		if err != nil {
			return c.ErrorHandler(ctx, c.userNotFoundOr(err, id))
		}

		return respond(ctx, router.StatusOK,
			fmt.Sprintf("User with ID %s retrieved successfully", id),
			map[string]any{"user": user.Sanitize()},
		)
	}

	pageSize := defaultPageSize
	if limit := ctx.Query("limit", ""); limit != "" {
		parsed, err := strconv.Atoi(limit)
		if err != nil || parsed < 1 || parsed > maxPageSize {
			return c.ErrorHandler(ctx, errors.New(
				fmt.Sprintf("limit should be between 1 and %d", maxPageSize),
				errors.CategoryBadInput,
			).WithCode(errors.CodeBadRequest))
		}
		pageSize = parsed
	}

	page, err := c.Repo.Users().List(ctx.Context(), ctx.Query("cursor", ""), pageSize)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	if len(page.Users) == 0 {
		return c.ErrorHandler(ctx, errors.New("no users found", errors.CategoryNotFound).
			WithCode(errors.CodeNotFound))
	}

	return respond(ctx, router.StatusOK, "Users data retrieved successfully", map[string]any{
		"users":           SanitizeAll(page.Users),
		"continue_cursor": page.ContinueCursor,
		"is_done":         page.IsDone,
	})
}

// AdminUpdateRequest payload; unlike self-service updates it may change the
// role.
type AdminUpdateRequest struct {
	Name  *string   `form:"name" json:"name"`
	Email *string   `form:"email" json:"email"`
	Role  *UserRole `form:"role" json:"role"`
}

// Validate will run validation rules
func (r AdminUpdateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Name,
			validation.Length(2, 35),
		),
		validation.Field(
			&r.Email,
			is.Email,
		),
		validation.Field(
			&r.Role,
			validation.In(RoleUser, RoleAdmin),
		),
	)
}

func (r AdminUpdateRequest) patch() UserPatch {
	return UserPatch{Name: r.Name, Email: r.Email, Role: r.Role}
}

// AdminUpdate patches any user record. Precondition: RequireAdmin.
func (c *UserController) AdminUpdate(ctx router.Context) error {
	claims, err := c.claims(ctx)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	if err := RequireAdmin(claims); err != nil {
		return c.ErrorHandler(ctx, err)
	}

	rawID := ctx.Param("id", "")
	id, err := uuid.Parse(rawID)
	if err != nil {
		return c.ErrorHandler(ctx, errors.New("user ID is required", errors.CategoryBadInput).
			WithCode(errors.CodeBadRequest))
	}

	payload := new(AdminUpdateRequest)
	if err := ctx.Bind(payload); err != nil {
		return c.ErrorHandler(ctx, bindError(err))
	}

	if err := payload.Validate(); err != nil {
		return c.ErrorHandler(ctx, err)
	}

	patch := payload.patch()
	if patch.IsZero() {
		return c.ErrorHandler(ctx, ErrEmptyUpdate)
	}

	updated, err := c.Repo.Users().Patch(ctx.Context(), id, patch)
	if err != nil {
		return c.ErrorHandler(ctx, c.userNotFoundOr(err, rawID))
	}

	return respond(ctx, router.StatusOK,
		fmt.Sprintf("User with ID %s updated successfully", rawID),
		map[string]any{"user": updated.Sanitize()},
	)
}

// AdminDelete removes one user when :id is present, or every user
// otherwise. Precondition: RequireAdmin.
func (c *UserController) AdminDelete(ctx router.Context) error {
	claims, err := c.claims(ctx)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	if err := RequireAdmin(claims); err != nil {
		return c.ErrorHandler(ctx, err)
	}

	if rawID := ctx.Param("id", ""); rawID != "" {
		id, err := uuid.Parse(rawID)
		if err != nil {
			return c.ErrorHandler(ctx, c.userNotFoundOr(repository.NewRecordNotFound(), rawID))
		}

		if err := c.Repo.Users().DeleteByID(ctx.Context(), id); err != nil {
			return c.ErrorHandler(ctx, c.userNotFoundOr(err, rawID))
		}

		return respond(ctx, router.StatusOK,
			fmt.Sprintf("User with ID %s deleted successfully", rawID), nil)
	}

	deleted, err := c.Repo.Users().DeleteAll(ctx.Context())
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	return respond(ctx, router.StatusOK, "All users deleted successfully", map[string]any{
		"deleted": deleted,
	})
}

func (c *UserController) userNotFoundOr(err error, id string) error {
	if repository.IsRecordNotFound(err) {
		return errors.Wrap(err, errors.CategoryNotFound,
			fmt.Sprintf("user with ID %s not found", id)).
			WithCode(errors.CodeNotFound).
			WithTextCode(TextCodeUserNotFound)
	}
	return err
}

func bindError(err error) error {
	return errors.Wrap(err, errors.CategoryBadInput, "unable to parse request body").
		WithCode(errors.CodeBadRequest)
}

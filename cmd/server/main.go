package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"

	users "github.com/goliatone/go-users"
)

// AppConfig is sourced from the environment. JWT_TOKEN_SECRET is the only
// required variable; everything else has a workable default.
type AppConfig struct {
	Addr                string `json:"addr"`
	DSN                 string `json:"dsn"`
	Debug               bool   `json:"debug"`
	SigningKey          string `json:"-"`
	SigningMethod       string `json:"signing_method"`
	ContextKey          string `json:"context_key"`
	TokenLookup         string `json:"token_lookup"`
	AuthScheme          string `json:"auth_scheme"`
	BootstrapAdminEmail string `json:"bootstrap_admin_email"`
}

func (c AppConfig) GetSigningKey() string          { return c.SigningKey }
func (c AppConfig) GetSigningMethod() string       { return c.SigningMethod }
func (c AppConfig) GetContextKey() string          { return c.ContextKey }
func (c AppConfig) GetTokenLookup() string         { return c.TokenLookup }
func (c AppConfig) GetAuthScheme() string          { return c.AuthScheme }
func (c AppConfig) GetBootstrapAdminEmail() string { return c.BootstrapAdminEmail }

func loadConfig() (AppConfig, error) {
	cfg := AppConfig{
		Addr:                envOr("SERVER_ADDR", ":3000"),
		DSN:                 envOr("DATABASE_DSN", "file:users.db?cache=shared&_pragma=foreign_keys(1)"),
		Debug:               os.Getenv("DEBUG") != "",
		SigningKey:          os.Getenv("JWT_TOKEN_SECRET"),
		SigningMethod:       "HS256",
		ContextKey:          envOr("JWT_CONTEXT_KEY", "claims"),
		TokenLookup:         envOr("JWT_TOKEN_LOOKUP", "header:Authorization"),
		AuthScheme:          envOr("JWT_AUTH_SCHEME", "Bearer"),
		BootstrapAdminEmail: os.Getenv("BOOTSTRAP_ADMIN_EMAIL"),
	}

	if cfg.SigningKey == "" {
		return cfg, errors.New("JWT_TOKEN_SECRET is required", errors.CategoryOperation)
	}

	return cfg, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	lgr := glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(glog.Trace),
		glog.WithName("users"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)

	cfg, err := loadConfig()
	if err != nil {
		lgr.Error("configuration error", "error", err)
		os.Exit(1)
	}

	if cfg.Debug {
		fmt.Println(print.MaybeHighlightJSON(cfg))
	}

	ctx := context.Background()

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		lgr.Error("database error", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	repo := users.NewRepositoryManager(db)
	if err := repo.Validate(); err != nil {
		lgr.Error("repository error", "error", err)
		os.Exit(1)
	}

	tokens := users.NewTokenService([]byte(cfg.GetSigningKey()), lgr.GetLogger("tokens"))

	auther := users.NewAuthenticator(repo, tokens, cfg)
	auther.WithLogger(lgr.GetLogger("auth"))

	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			UnescapePath:      true,
			EnablePrintRoutes: cfg.Debug,
			StrictRouting:     false,
		}))
	})

	srv.Router().WithLogger(lgr.GetLogger("router"))

	users.RegisterUserRoutes(srv.Router(), cfg,
		users.WithControllerAuth(auther),
		users.WithControllerRepo(repo),
		users.WithControllerTokens(tokens),
		users.WithControllerLogger(lgr.GetLogger("http")),
		users.WithControllerErrorHandler(users.JSONErrorHandler(lgr.GetLogger("http"))),
	)

	lgr.Info("listening", "addr", cfg.Addr)

	srv.Serve(cfg.Addr)

	WaitExitSignal()
}

func openDatabase(ctx context.Context, cfg AppConfig) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, cfg.DSN)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryOperation, "unable to open database")
	}

	db := bun.NewDB(sqldb, sqlitedialect.New())

	if cfg.Debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}

	if _, err := db.NewCreateTable().
		Model((*users.User)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return nil, errors.Wrap(err, errors.CategoryOperation, "unable to create users table")
	}

	return db, nil
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}

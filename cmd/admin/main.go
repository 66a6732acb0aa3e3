// Command admin runs maintenance tasks against the recipe database.
//
//	admin createsuperuser -email admin@example.com [-password secret]
//
// The password falls back to ADMIN_PASSWORD so it stays out of shell history.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/recipekeep/recipekeep-go/internal/config"
	"github.com/recipekeep/recipekeep-go/internal/crypto"
	"github.com/recipekeep/recipekeep-go/internal/repository"
	"github.com/recipekeep/recipekeep-go/internal/service"
)

const cmdCreateSuperuser = "createsuperuser"

var errUsage = errors.New("usage: admin createsuperuser -email EMAIL [-password PASSWORD]")

type superuserOptions struct {
	email    string
	password string
}

func main() {
	_ = godotenv.Load()

	opts, err := parseArgs(os.Args[1:], os.Getenv, os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if err := createSuperuser(opts); err != nil {
		slog.Error("creating superuser", "error", err)
		os.Exit(1)
	}
}

func parseArgs(args []string, getenv func(string) string, output io.Writer) (superuserOptions, error) {
	if len(args) == 0 || args[0] != cmdCreateSuperuser {
		return superuserOptions{}, errUsage
	}

	fs := flag.NewFlagSet(cmdCreateSuperuser, flag.ContinueOnError)
	fs.SetOutput(output)

	var opts superuserOptions
	fs.StringVar(&opts.email, "email", "", "superuser email address")
	fs.StringVar(&opts.password, "password", "", "superuser password (default $ADMIN_PASSWORD)")

	if err := fs.Parse(args[1:]); err != nil {
		return superuserOptions{}, err
	}
	if opts.password == "" {
		opts.password = getenv("ADMIN_PASSWORD")
	}
	if opts.email == "" || opts.password == "" {
		return superuserOptions{}, errUsage
	}
	return opts, nil
}

func createSuperuser(opts superuserOptions) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := repository.NewDB(ctx, cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := repository.Migrate(ctx, db); err != nil {
		return err
	}

	hasher, err := crypto.NewHasher(crypto.DefaultHashParams())
	if err != nil {
		return err
	}
	auth := service.NewAuthService(repository.NewUserRepository(db), hasher,
		crypto.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.JWTExpiry))

	user, err := auth.CreatePrivilegedAccount(ctx, opts.email, opts.password)
	if err != nil {
		return err
	}

	slog.Info("superuser created", "user_id", user.ID, "email", user.Email)
	return nil
}

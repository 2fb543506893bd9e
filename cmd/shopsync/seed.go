package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/docopt/docopt-go"
	"golang.org/x/crypto/bcrypt"

	"github.com/dukerupert/shopsync/internal/store"
)

const seedUsage = `Seed a fresh database.

Usage:
    shopsync seed --password=<password> [options]
    shopsync seed -h | --help

Options:
    -h --help              Show this screen.
    --password=<password>  User password.
    --email=<email>        User email [default: demo@example.com].
    --name=<name>          User display name [default: Demo].
    --channel=<channel>    Channel name [default: Home].
    --group=<group>        Group name [default: Groceries].`

// runSeed creates a user with a password, a channel they own and one group,
// so a fresh database can be used from a client straight away. argv starts
// with the subcommand name.
func runSeed(ctx context.Context, db *sql.DB, argv []string) error {
	parser := &docopt.Parser{HelpHandler: docopt.PrintHelpOnly}
	opts, err := parser.ParseArgs(seedUsage, argv, "")
	if err != nil {
		return fmt.Errorf("seed usage: %w", err)
	}
	if opts == nil {
		// help was printed
		return nil
	}
	password, _ := opts.String("--password")
	email, _ := opts.String("--email")
	name, _ := opts.String("--name")
	channel, _ := opts.String("--channel")
	group, _ := opts.String("--group")

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	users := store.NewUserStore(db)
	channels := store.NewChannelStore(db)

	user, err := users.Create(ctx, strings.ToLower(strings.TrimSpace(email)), name, string(hash))
	if err != nil {
		return err
	}
	ch, err := channels.CreateChannel(ctx, channel)
	if err != nil {
		return err
	}
	if err := channels.AddMember(ctx, ch.ID, user.ID, "owner"); err != nil {
		return err
	}
	g, err := channels.CreateGroup(ctx, ch.ID, group)
	if err != nil {
		return err
	}

	slog.Info("seeded", "user_id", user.ID, "email", user.Email, "channel_id", ch.ID, "group_id", g.ID)
	return nil
}

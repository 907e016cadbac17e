package cli

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/corpbank/corpbank/internal/auth"
)

// Accounts is the subset of the auth service driven from the command line.
type Accounts interface {
	CreateUser(ctx context.Context, email, password string) (*auth.User, error)
	TokenFor(ctx context.Context, userID int64) (*auth.Token, error)
	PurgeExpired(ctx context.Context) (int, error)
}

// AccountsCLI implements the createuser, issuetoken and purge-tokens commands.
type AccountsCLI struct {
	accounts Accounts
	stdout   io.Writer
	stderr   io.Writer
}

// NewAccountsCLI wires the commands. Nil writers default to the process streams.
func NewAccountsCLI(accounts Accounts, stdout, stderr io.Writer) *AccountsCLI {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	return &AccountsCLI{accounts: accounts, stdout: stdout, stderr: stderr}
}

// CreateUser handles `createuser --email x --password y [--token]`.
func (c *AccountsCLI) CreateUser(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("createuser", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	email := fs.String("email", "", "user email")
	password := fs.String("password", "", "user password")
	withToken := fs.Bool("token", false, "also issue an API token")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if strings.TrimSpace(*email) == "" || *password == "" {
		_, _ = fmt.Fprintln(c.stderr, "createuser: --email and --password are required")
		return 2
	}
	user, err := c.accounts.CreateUser(ctx, *email, *password)
	if err != nil {
		_, _ = fmt.Fprintf(c.stderr, "createuser: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintf(c.stdout, "created user %d (%s)\n", user.ID, user.Email)
	if !*withToken {
		return 0
	}
	return c.printToken(ctx, user.ID, false)
}

// IssueToken handles `issuetoken --user <id> [--json]`.
func (c *AccountsCLI) IssueToken(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("issuetoken", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	userID := fs.Int64("user", 0, "user id")
	asJSON := fs.Bool("json", false, "print the token as JSON")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *userID <= 0 {
		_, _ = fmt.Fprintln(c.stderr, "issuetoken: --user is required and must be positive")
		return 2
	}
	return c.printToken(ctx, *userID, *asJSON)
}

// PurgeTokens handles `purge-tokens`.
func (c *AccountsCLI) PurgeTokens(ctx context.Context, args []string) int {
	removed, err := c.accounts.PurgeExpired(ctx)
	if err != nil {
		_, _ = fmt.Fprintf(c.stderr, "purge-tokens: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintf(c.stdout, "removed %d expired tokens\n", removed)
	return 0
}

func (c *AccountsCLI) printToken(ctx context.Context, userID int64, asJSON bool) int {
	token, err := c.accounts.TokenFor(ctx, userID)
	if err != nil {
		_, _ = fmt.Fprintf(c.stderr, "issuetoken: %v\n", err)
		return 1
	}
	if asJSON {
		if err := json.NewEncoder(c.stdout).Encode(map[string]string{"token": token.Key}); err != nil {
			_, _ = fmt.Fprintf(c.stderr, "issuetoken: encode json: %v\n", err)
			return 1
		}
		return 0
	}
	_, _ = fmt.Fprintf(c.stdout, "token: %s\n", token.Key)
	return 0
}

// Package cli defines the librarian command tree.
package cli

import (
	"errors"
	"fmt"
	"os"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mrlokans/librarian/internal/config"
)

// ErrInventoryMismatch is returned by reconcile when any book disagrees
// with the borrow ledger.
var ErrInventoryMismatch = errors.New("inventory mismatch")

// Options carries the process-level dependencies of the commands.
type Options struct {
	Version      string
	LoadConfig   func() *config.Config
	ReadPassword func(prompt string) (string, error)
}

// NewRootCommand builds the command tree. Running the binary without a
// subcommand starts the server.
func NewRootCommand(opts Options) *cobra.Command {
	if opts.LoadConfig == nil {
		opts.LoadConfig = config.NewConfig
	}
	if opts.ReadPassword == nil {
		opts.ReadPassword = terminalPassword
	}

	serve := newServeCommand(opts)
	root := &cobra.Command{
		Use:           "librarian",
		Short:         "Library circulation service",
		Version:       opts.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve.RunE,
	}
	root.AddCommand(serve, newCreateAdminCommand(opts), newReconcileCommand(opts))
	return root
}

func newServeCommand(opts Options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(opts.LoadConfig(), opts.Version)
		},
	}
}

// terminalPassword reads a password without echoing it.
func terminalPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(password), nil
}

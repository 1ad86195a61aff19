// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-biostore.
//
// go-biostore is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.


package cli

import (
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-biostore/internal/platform/console"
)

var (
	// ErrNotInteractive is returned when enrollment is attempted without a terminal.
	ErrNotInteractive = errors.New("enroll requires an interactive terminal")

	// ErrPINMismatch is returned when the confirmation does not match.
	ErrPINMismatch = errors.New("PINs do not match")

	// ErrNoConsole is returned when the stack is not using the console platform.
	ErrNoConsole = errors.New("enrollment is only available for the console platform")
)

func newEnrollCmd(cfg *Config) *cobra.Command {
	var remove bool

	cmd := &cobra.Command{
		Use:   "enroll",
		Short: "Set, replace or remove the console PIN",
		Long: `Set or replace the PIN the console platform authenticates with.
Changing the PIN changes the enrollment, so existing keys are invalidated
and blobs sealed with them can no longer be opened.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			printer := cfg.Printer(cmd.OutOrStdout())

			c, err := cfg.Components()
			if err != nil {
				return err
			}
			defer c.Close()

			if c.Console == nil {
				return ErrNoConsole
			}

			enrolled, err := c.Console.Enrolled()
			if err != nil {
				return err
			}

			if remove {
				if err := c.Console.Unenroll(); err != nil {
					return err
				}
				if enrolled {
					_ = printer.PrintWarning("existing keys are invalidated")
				}
				return printer.PrintSuccess("PIN removed")
			}

			terminal := cfg.Options.Terminal
			if terminal == nil {
				terminal = console.NewStdTerminal()
			}
			pin, err := readNewPIN(terminal)
			if err != nil {
				return err
			}
			defer clear(pin)

			if err := c.Console.Enroll(pin); err != nil {
				return err
			}
			if enrolled {
				_ = printer.PrintWarning("existing keys are invalidated")
			}
			return printer.PrintSuccess("PIN enrolled")
		},
	}

	cmd.Flags().BoolVar(&remove, "remove", false, "remove the enrolled PIN")
	return cmd
}

// readNewPIN reads a PIN and its confirmation from terminal.
func readNewPIN(terminal console.Terminal) ([]byte, error) {
	if !terminal.IsTerminal() {
		return nil, ErrNotInteractive
	}

	pin, err := terminal.ReadSecret("New PIN: ")
	if err != nil {
		return nil, fmt.Errorf("failed to read PIN: %w", err)
	}
	confirm, err := terminal.ReadSecret("Confirm PIN: ")
	if err != nil {
		clear(pin)
		return nil, fmt.Errorf("failed to read PIN: %w", err)
	}
	defer clear(confirm)

	if subtle.ConstantTimeCompare(pin, confirm) != 1 {
		clear(pin)
		return nil, ErrPINMismatch
	}
	return pin, nil
}

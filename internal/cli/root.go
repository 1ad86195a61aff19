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
	"context"
	"errors"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jeremyhahn/go-biostore/internal/config"
	"github.com/jeremyhahn/go-biostore/internal/server"
)

// reportedError marks an error the command already printed.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

// NewRootCommand builds the biostore command tree. opts are passed through
// to the assembled stack and may be nil.
func NewRootCommand(opts *server.Options) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "biostore",
		Short: "biostore - Secrets gated by user authentication",
		Long: `biostore seals short secrets with named keys whose use is gated by
user authentication. Sealed blobs are base64 text safe to keep anywhere;
opening one requires the enrolled user to authenticate again.

Key variants:
  - symmetric:  AES-256-CBC, authentication required to seal and open
  - asymmetric: RSA-2048, sealing needs no authentication`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cfg := NewConfig(bindFlags(rootCmd), opts)

	rootCmd.AddCommand(
		newCanAuthenticateCmd(cfg),
		newInitCmd(cfg),
		newStoreCmd(cfg),
		newRetrieveCmd(cfg),
		newDeleteCmd(cfg),
		newEnrollCmd(cfg),
		newServeCmd(cfg),
		newVersionCmd(cfg),
	)
	return rootCmd
}

// bindFlags registers the persistent flags on cmd and binds them, with
// their BIOSTORE_ environment variables, into a new viper instance.
func bindFlags(cmd *cobra.Command) *viper.Viper {
	flags := cmd.PersistentFlags()
	flags.String(flagConfig, "", "config file (default: built-in defaults)")
	flags.StringP(flagOutput, "o", string(OutputFormatText), "output format (text, json)")
	flags.BoolP(flagVerbose, "v", false, "verbose output")
	flags.String(flagLogLevel, "", "log level (debug, info, warn, error)")
	flags.String(flagStorage, "", "storage backend (memory, file, keyring)")
	flags.String(flagDataDir, "", "data directory for the file backend")
	flags.String(flagVariant, "", "key variant (symmetric, asymmetric)")
	flags.String(flagKeyName, "", "default key name")

	v := viper.New()
	v.SetEnvPrefix(strings.TrimSuffix(config.EnvPrefix, "_"))
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	_ = v.BindPFlags(flags)
	return v
}

// Execute runs the root command with the process arguments until it
// completes or the process is interrupted.
func Execute() error {
	return ExecuteArgs(os.Args[1:])
}

// ExecuteArgs runs the root command with args.
func ExecuteArgs(args []string) error {
	ctx, cancel := server.SetupSignalHandler()
	defer cancel()

	rootCmd := NewRootCommand(nil)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return nil
	}

	var reported *reportedError
	if !errors.As(err, &reported) {
		format, _ := rootCmd.PersistentFlags().GetString(flagOutput)
		_ = NewPrinter(format, os.Stderr).PrintError(err)
	}
	return err
}

// contextOf returns the command context, or a background context for
// commands run without one.
func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

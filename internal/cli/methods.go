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
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-biostore/pkg/bridge"
	"github.com/jeremyhahn/go-biostore/pkg/types"
)

// promptFlags holds the prompt text for commands that authenticate.
type promptFlags struct {
	title                string
	subtitle             string
	description          string
	negativeButton       string
	confirmationRequired bool
}

func (p *promptFlags) register(cmd *cobra.Command) {
	def := types.DefaultPromptConfig()
	cmd.Flags().StringVar(&p.title, "title", def.Title, "prompt title")
	cmd.Flags().StringVar(&p.subtitle, "subtitle", "", "prompt subtitle")
	cmd.Flags().StringVar(&p.description, "description", "", "prompt description")
	cmd.Flags().StringVar(&p.negativeButton, "negative-button", def.NegativeButtonLabel, "prompt cancel label")
	cmd.Flags().BoolVar(&p.confirmationRequired, "confirmation-required", false, "require explicit confirmation")
}

// args returns the prompt in its boundary shape.
func (p *promptFlags) args() map[string]any {
	return map[string]any{
		"title":                p.title,
		"subtitle":             p.subtitle,
		"description":          p.description,
		"negativeButton":       p.negativeButton,
		"confirmationRequired": p.confirmationRequired,
	}
}

// call assembles the stack, dispatches one method and prints the response.
func call(cmd *cobra.Command, cfg *Config, method string, args map[string]any) error {
	printer := cfg.Printer(cmd.OutOrStdout())

	c, err := cfg.Components()
	if err != nil {
		return err
	}
	defer c.Close()

	resp := c.Dispatcher.Call(contextOf(cmd), method, args)
	if err := printer.PrintResponse(resp); err != nil {
		return err
	}
	if resp.Error != nil {
		return &reportedError{err: resp.Error}
	}
	return nil
}

func newCanAuthenticateCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "can-authenticate",
		Short: "Report whether the user can authenticate",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return call(cmd, cfg, bridge.MethodCanAuthenticate, nil)
		},
	}
}

func newInitCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "init NAME",
		Short: "Bind a key name and report whether authentication is possible",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return call(cmd, cfg, bridge.MethodInit, map[string]any{
				bridge.ArgName: args[0],
			})
		},
	}
}

func newStoreCmd(cfg *Config) *cobra.Command {
	var prompt promptFlags
	cmd := &cobra.Command{
		Use:   "store NAME [CONTENT]",
		Short: "Seal content with the named key",
		Long: `Seal content with the named key and print the base64 blob.
Content is read from stdin when omitted or given as "-".`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := argOrStdin(cmd, args, 1)
			if err != nil {
				return err
			}
			return call(cmd, cfg, bridge.MethodWrite, map[string]any{
				bridge.ArgName:       args[0],
				bridge.ArgContent:    content,
				bridge.ArgPromptInfo: prompt.args(),
			})
		},
	}
	prompt.register(cmd)
	return cmd
}

func newRetrieveCmd(cfg *Config) *cobra.Command {
	var prompt promptFlags
	cmd := &cobra.Command{
		Use:   "retrieve NAME [BLOB]",
		Short: "Open a sealed blob with the named key",
		Long: `Open a base64 blob produced by store and print the content.
The blob is read from stdin when omitted or given as "-".`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			blob, err := argOrStdin(cmd, args, 1)
			if err != nil {
				return err
			}
			return call(cmd, cfg, bridge.MethodRead, map[string]any{
				bridge.ArgName:       args[0],
				bridge.ArgContent:    strings.TrimSpace(blob),
				bridge.ArgPromptInfo: prompt.args(),
			})
		},
	}
	prompt.register(cmd)
	return cmd
}

func newDeleteCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "delete [NAME]",
		Short: "Delete the named key",
		Long: `Delete the named key. Blobs sealed with it can no longer be opened.
Without NAME the default key name is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var callArgs map[string]any
			if len(args) == 1 {
				callArgs = map[string]any{bridge.ArgName: args[0]}
			}
			return call(cmd, cfg, bridge.MethodDelete, callArgs)
		},
	}
}

// argOrStdin returns args[i], or stdin without its trailing newline when
// the argument is absent or "-".
func argOrStdin(cmd *cobra.Command, args []string, i int) (string, error) {
	if len(args) > i && args[i] != "-" {
		return args[i], nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return strings.TrimSuffix(strings.TrimSuffix(string(data), "\n"), "\r"), nil
}

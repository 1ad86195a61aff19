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

package console

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// Terminal reads a secret from the user.
type Terminal interface {
	// IsTerminal reports whether input is an interactive terminal.
	IsTerminal() bool

	// Println writes a line of prompt text.
	Println(text string)

	// ReadSecret shows label and reads one line without echo.
	ReadSecret(label string) ([]byte, error)
}

// stdTerminal reads from the process's standard input and writes prompt
// text to standard error.
type stdTerminal struct {
	in  *os.File
	out io.Writer
}

// NewStdTerminal returns a Terminal over os.Stdin and os.Stderr.
func NewStdTerminal() Terminal {
	return &stdTerminal{in: os.Stdin, out: os.Stderr}
}

func (t *stdTerminal) IsTerminal() bool {
	return term.IsTerminal(int(t.in.Fd()))
}

func (t *stdTerminal) Println(text string) {
	_, _ = fmt.Fprintln(t.out, text)
}

func (t *stdTerminal) ReadSecret(label string) ([]byte, error) {
	_, _ = fmt.Fprint(t.out, label)
	b, err := term.ReadPassword(int(t.in.Fd()))
	_, _ = fmt.Fprintln(t.out)
	return b, err
}

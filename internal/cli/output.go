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
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/jeremyhahn/go-biostore/pkg/bridge"
	"github.com/jeremyhahn/go-biostore/pkg/types"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	// OutputFormatText is human-readable text output
	OutputFormatText OutputFormat = "text"
	// OutputFormatJSON is JSON output
	OutputFormatJSON OutputFormat = "json"
)

var (
	successColor = color.New(color.FgGreen)
	warningColor = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed)
)

// Printer handles output formatting
type Printer struct {
	format OutputFormat
	writer io.Writer
}

// NewPrinter creates a new printer with the specified format
func NewPrinter(format string, writer io.Writer) *Printer {
	return &Printer{
		format: OutputFormat(format),
		writer: writer,
	}
}

// PrintSuccess prints a success message
func (p *Printer) PrintSuccess(message string) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]interface{}{
			"status":  "success",
			"message": message,
		})
	case OutputFormatText:
		successColor.Fprintln(p.writer, message)
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintWarning prints a warning message
func (p *Printer) PrintWarning(message string) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]interface{}{
			"status":  "warning",
			"message": message,
		})
	case OutputFormatText:
		warningColor.Fprintf(p.writer, "Warning: %s\n", message)
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintError prints an error message
func (p *Printer) PrintError(err error) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]interface{}{
			"status": "error",
			"error":  err.Error(),
		})
	case OutputFormatText:
		errorColor.Fprintf(p.writer, "Error: %v\n", err)
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintResponse prints a method response. JSON output is the response
// envelope as served over HTTP. Text output prints string values bare so
// sealed blobs can be captured by a shell.
func (p *Printer) PrintResponse(resp bridge.Response) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(resp)
	case OutputFormatText:
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}

	if resp.Error != nil {
		return p.PrintError(resp.Error)
	}

	switch v := resp.Value.(type) {
	case nil:
		warningColor.Fprintln(p.writer, "No result: the prompt was declined")
	case bool:
		if v {
			successColor.Fprintln(p.writer, "true")
		} else {
			warningColor.Fprintln(p.writer, "false")
		}
	case string:
		switch {
		case v == types.CapabilitySuccess.String():
			successColor.Fprintln(p.writer, v)
		case isCapabilityFailure(v):
			warningColor.Fprintln(p.writer, v)
		default:
			fmt.Fprintln(p.writer, v)
		}
	default:
		fmt.Fprintf(p.writer, "%v\n", v)
	}
	return nil
}

// isCapabilityFailure reports whether s names a non-success capability
// response.
func isCapabilityFailure(s string) bool {
	c := types.ParseCapabilityResponse(s)
	return c.String() == s && !c.OK()
}

func (p *Printer) printJSON(data interface{}) error {
	encoder := json.NewEncoder(p.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

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

package bridge

import (
	"fmt"

	"github.com/jeremyhahn/go-biostore/pkg/types"
)

// Method names accepted at the boundary.
const (
	MethodGetPlatformVersion = "getPlatformVersion"
	MethodCanAuthenticate    = "canAuthenticate"
	MethodInit               = "init"
	MethodWrite              = "write"
	MethodRead               = "read"
	MethodDelete             = "delete"
	MethodDispose            = "dispose"

	// Aliases
	MethodStore    = "store"
	MethodRetrieve = "retrieve"
)

// Argument names.
const (
	ArgName       = "name"
	ArgContent    = "content"
	ArgPromptInfo = "androidPromptInfo"
)

// Request is one of the typed boundary requests.
type Request interface {
	Method() string
	isRequest()
}

// PlatformVersionRequest asks for the host platform description.
type PlatformVersionRequest struct{}

// CanAuthenticateRequest asks for the device capability.
type CanAuthenticateRequest struct{}

// InitRequest binds the default key name.
type InitRequest struct {
	Name string
}

// StoreRequest seals Content under Name.
type StoreRequest struct {
	Name    string
	Content string
	Prompt  types.PromptConfig
}

// RetrieveRequest opens the base64 blob in Content with Name.
type RetrieveRequest struct {
	Name    string
	Content string
	Prompt  types.PromptConfig
}

// DeleteRequest removes the key called Name, or the bound default key
// when Name is empty.
type DeleteRequest struct {
	Name string
}

// DisposeRequest releases the session and closes any live prompt.
type DisposeRequest struct{}

func (PlatformVersionRequest) Method() string { return MethodGetPlatformVersion }
func (CanAuthenticateRequest) Method() string { return MethodCanAuthenticate }
func (InitRequest) Method() string            { return MethodInit }
func (StoreRequest) Method() string           { return MethodWrite }
func (RetrieveRequest) Method() string        { return MethodRead }
func (DeleteRequest) Method() string          { return MethodDelete }
func (DisposeRequest) Method() string         { return MethodDispose }

func (PlatformVersionRequest) isRequest() {}
func (CanAuthenticateRequest) isRequest() {}
func (InitRequest) isRequest()            {}
func (StoreRequest) isRequest()           {}
func (RetrieveRequest) isRequest()        {}
func (DeleteRequest) isRequest()          {}
func (DisposeRequest) isRequest()         {}

// Decode validates args for method and returns the typed request. It
// returns a *MethodError for unknown methods and bad arguments.
func Decode(method string, args map[string]any) (Request, error) {
	switch method {
	case MethodGetPlatformVersion:
		return PlatformVersionRequest{}, nil

	case MethodCanAuthenticate:
		return CanAuthenticateRequest{}, nil

	case MethodInit:
		name, err := requiredString(args, ArgName)
		if err != nil {
			return nil, err
		}
		return InitRequest{Name: name}, nil

	case MethodWrite, MethodStore:
		name, content, prompt, err := decodeTransform(args)
		if err != nil {
			return nil, err
		}
		return StoreRequest{Name: name, Content: content, Prompt: prompt}, nil

	case MethodRead, MethodRetrieve:
		name, content, prompt, err := decodeTransform(args)
		if err != nil {
			return nil, err
		}
		return RetrieveRequest{Name: name, Content: content, Prompt: prompt}, nil

	case MethodDelete:
		name, err := optionalString(args, ArgName)
		if err != nil {
			return nil, err
		}
		return DeleteRequest{Name: name}, nil

	case MethodDispose:
		return DisposeRequest{}, nil

	default:
		return nil, &MethodError{
			Code:    CodeNotImplemented,
			Message: fmt.Sprintf("Method '%s' is not implemented", method),
		}
	}
}

func decodeTransform(args map[string]any) (name, content string, prompt types.PromptConfig, err error) {
	if name, err = requiredString(args, ArgName); err != nil {
		return
	}
	if content, err = requiredString(args, ArgContent); err != nil {
		return
	}
	prompt, err = decodePrompt(args)
	return
}

func decodePrompt(args map[string]any) (types.PromptConfig, error) {
	raw, ok := args[ArgPromptInfo]
	if !ok || raw == nil {
		return types.PromptConfig{}, missing(ArgPromptInfo)
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return types.PromptConfig{}, invalid(ArgPromptInfo, "an object")
	}

	title, err := requiredString(m, "title")
	if err != nil {
		return types.PromptConfig{}, err
	}
	negative, err := requiredString(m, "negativeButton")
	if err != nil {
		return types.PromptConfig{}, err
	}
	subtitle, err := optionalString(m, "subtitle")
	if err != nil {
		return types.PromptConfig{}, err
	}
	description, err := optionalString(m, "description")
	if err != nil {
		return types.PromptConfig{}, err
	}

	confirm := false
	if v, ok := m["confirmationRequired"]; ok && v != nil {
		b, ok := v.(bool)
		if !ok {
			return types.PromptConfig{}, invalid("confirmationRequired", "a boolean")
		}
		confirm = b
	}

	return types.PromptConfig{
		Title:                title,
		Subtitle:             subtitle,
		Description:          description,
		NegativeButtonLabel:  negative,
		ConfirmationRequired: confirm,
	}, nil
}

func requiredString(args map[string]any, key string) (string, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return "", missing(key)
	}
	s, ok := v.(string)
	if !ok {
		return "", invalid(key, "a string")
	}
	return s, nil
}

func optionalString(args map[string]any, key string) (string, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", invalid(key, "a string")
	}
	return s, nil
}

func missing(key string) *MethodError {
	return &MethodError{
		Code:    CodeMissingArgument,
		Message: fmt.Sprintf("Missing required argument '%s'", key),
	}
}

func invalid(key, want string) *MethodError {
	return &MethodError{
		Code:    CodeInvalidArguments,
		Message: fmt.Sprintf("Argument '%s' must be %s", key, want),
	}
}

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

package cipher

import (
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"

	"github.com/jeremyhahn/go-biostore/pkg/keystore"
	"github.com/jeremyhahn/go-biostore/pkg/types"
)

type transform interface {
	seal(rand io.Reader, iv, plaintext []byte) ([]byte, error)
	open(rand io.Reader, iv, ciphertext []byte) ([]byte, error)
}

// Context is a single-use transform bound to one key, one intent and one IV.
type Context struct {
	id        string
	handle    keystore.Handle
	intent    types.Intent
	iv        []byte
	transform transform
	rand      io.Reader

	mu            sync.Mutex
	authenticated bool
	consumed      bool
}

func newContext(h keystore.Handle, intent types.Intent, iv []byte, t transform, rand io.Reader) *Context {
	return &Context{
		id:        uuid.New().String(),
		handle:    h,
		intent:    intent,
		iv:        iv,
		transform: t,
		rand:      rand,
	}
}

// ID returns the single-use ticket identifying this context.
func (c *Context) ID() string { return c.id }

// Intent returns the direction the context is bound to.
func (c *Context) Intent() types.Intent { return c.intent }

// KeyName returns the name of the bound key.
func (c *Context) KeyName() string { return c.handle.Name() }

// Variant returns the variant of the bound key.
func (c *Context) Variant() types.KeyVariant { return c.handle.Variant() }

// IV returns a copy of the bound IV.
func (c *Context) IV() []byte {
	iv := make([]byte, len(c.iv))
	copy(iv, c.iv)
	return iv
}

// RequiresAuth reports whether the context must be authenticated before use.
func (c *Context) RequiresAuth() bool {
	return c.handle.Capabilities().RequiresAuth(c.intent)
}

// Authenticate marks the context usable. ticket must be the context's ID.
func (c *Context) Authenticate(ticket string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.consumed {
		return ErrContextConsumed
	}
	if ticket != c.id {
		return ErrTicketMismatch
	}
	c.authenticated = true
	return nil
}

// Authenticated reports whether Authenticate succeeded.
func (c *Context) Authenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authenticated
}

// Consumed reports whether the context has been used.
func (c *Context) Consumed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.consumed
}

// Seal encrypts plaintext. The context is consumed whether or not the
// transform succeeds.
func (c *Context) Seal(plaintext []byte) ([]byte, error) {
	if err := c.consume(types.IntentSeal); err != nil {
		return nil, err
	}
	return c.transform.seal(c.rand, c.iv, plaintext)
}

// Open decrypts ciphertext. The context is consumed whether or not the
// transform succeeds.
func (c *Context) Open(ciphertext []byte) ([]byte, error) {
	if err := c.consume(types.IntentOpen); err != nil {
		return nil, err
	}
	return c.transform.open(c.rand, c.iv, ciphertext)
}

func (c *Context) consume(intent types.Intent) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.consumed {
		return ErrContextConsumed
	}
	if intent != c.intent {
		return fmt.Errorf("%w: context is bound for %s", ErrWrongIntent, c.intent)
	}
	if c.RequiresAuth() && !c.authenticated {
		return ErrNotAuthenticated
	}
	if c.handle.Invalidated() {
		c.consumed = true
		return keystore.ErrKeyInvalidated
	}
	c.consumed = true
	return nil
}

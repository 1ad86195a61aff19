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

// Package codec converts between UTF-8 secrets and sealed blobs.
//
// A sealed blob is IV(16) || ciphertext. Blobs from asymmetric keys carry
// an all-zero marker IV so every blob has the same shape. At the
// boundary blobs travel as standard base64 text.
package codec

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/jeremyhahn/go-biostore/pkg/cipher"
	"github.com/jeremyhahn/go-biostore/pkg/types"
)

// ErrDecode is returned for blobs that are malformed or cannot be opened.
var ErrDecode = errors.New("codec: decode error")

// SealedBlob is IV || ciphertext.
type SealedBlob []byte

// IV returns the IV prefix. The blob must be at least IVSize bytes.
func (b SealedBlob) IV() []byte {
	return b[:types.IVSize]
}

// Ciphertext returns the bytes after the IV.
func (b SealedBlob) Ciphertext() []byte {
	return b[types.IVSize:]
}

// Validate checks the minimum blob length.
func (b SealedBlob) Validate() error {
	if len(b) < types.IVSize {
		return fmt.Errorf("%w: blob is %d bytes, need at least %d", ErrDecode, len(b), types.IVSize)
	}
	return nil
}

// SplitIV validates blob and returns its IV and ciphertext.
func SplitIV(blob SealedBlob) (iv, ciphertext []byte, err error) {
	if err := blob.Validate(); err != nil {
		return nil, nil, err
	}
	return blob.IV(), blob.Ciphertext(), nil
}

// Seal encrypts plaintext with c and prepends the context's IV.
func Seal(plaintext string, c *cipher.Context) (SealedBlob, error) {
	ct, err := c.Seal([]byte(plaintext))
	if err != nil {
		return nil, err
	}
	iv := c.IV()
	blob := make(SealedBlob, 0, len(iv)+len(ct))
	blob = append(blob, iv...)
	blob = append(blob, ct...)
	return blob, nil
}

// Open decrypts blob with c and returns the UTF-8 text.
func Open(blob SealedBlob, c *cipher.Context) (string, error) {
	_, ct, err := SplitIV(blob)
	if err != nil {
		return "", err
	}
	pt, err := c.Open(ct)
	if err != nil {
		if errors.Is(err, cipher.ErrDecrypt) {
			return "", fmt.Errorf("%w: %v", ErrDecode, err)
		}
		return "", err
	}
	if !utf8.Valid(pt) {
		return "", fmt.Errorf("%w: plaintext is not valid UTF-8", ErrDecode)
	}
	return string(pt), nil
}

// Encode returns blob as standard base64 without line breaks.
func Encode(blob SealedBlob) string {
	return base64.StdEncoding.EncodeToString(blob)
}

// Decode parses base64 text, ignoring embedded whitespace and line breaks.
func Decode(text string) (SealedBlob, error) {
	compact := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, text)

	blob, err := base64.StdEncoding.DecodeString(compact)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if err := SealedBlob(blob).Validate(); err != nil {
		return nil, err
	}
	return blob, nil
}

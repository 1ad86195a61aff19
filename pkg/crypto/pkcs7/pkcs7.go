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

// Package pkcs7 implements PKCS#7 block padding (RFC 5652, section 6.3).
package pkcs7

import (
	"crypto/subtle"
	"errors"
)

var (
	// ErrInvalidBlockSize is returned for a block size outside 1..255.
	ErrInvalidBlockSize = errors.New("pkcs7: invalid block size")

	// ErrInvalidPadding is returned when unpadding finds malformed padding.
	ErrInvalidPadding = errors.New("pkcs7: invalid padding")
)

// Pad returns a copy of data padded to a multiple of blockSize. A full
// block of padding is appended when data is already aligned.
func Pad(data []byte, blockSize int) ([]byte, error) {
	if blockSize <= 0 || blockSize > 255 {
		return nil, ErrInvalidBlockSize
	}

	n := blockSize - len(data)%blockSize
	out := make([]byte, len(data)+n)
	copy(out, data)
	for i := len(data); i < len(out); i++ {
		out[i] = byte(n)
	}
	return out, nil
}

// Unpad strips PKCS#7 padding from data and returns the unpadded prefix.
// The returned slice aliases data.
func Unpad(data []byte, blockSize int) ([]byte, error) {
	if blockSize <= 0 || blockSize > 255 {
		return nil, ErrInvalidBlockSize
	}
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, ErrInvalidPadding
	}

	n := int(data[len(data)-1])
	if n == 0 || n > blockSize {
		return nil, ErrInvalidPadding
	}

	// Check every padding byte without early exit.
	var bad byte
	for _, b := range data[len(data)-n:] {
		bad |= b ^ byte(n)
	}
	if subtle.ConstantTimeByteEq(bad, 0) != 1 {
		return nil, ErrInvalidPadding
	}
	return data[:len(data)-n], nil
}

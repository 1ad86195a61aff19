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
	gocipher "crypto/cipher"
	"fmt"
	"io"

	"github.com/jeremyhahn/go-biostore/pkg/crypto/pkcs7"
)

// cbcTransform is AES-CBC with PKCS#7 padding.
type cbcTransform struct {
	block gocipher.Block
}

func (t *cbcTransform) seal(_ io.Reader, iv, plaintext []byte) ([]byte, error) {
	padded, err := pkcs7.Pad(plaintext, t.block.BlockSize())
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(padded))
	gocipher.NewCBCEncrypter(t.block, iv).CryptBlocks(out, padded)
	return out, nil
}

func (t *cbcTransform) open(_ io.Reader, iv, ciphertext []byte) ([]byte, error) {
	bs := t.block.BlockSize()
	if len(ciphertext) == 0 || len(ciphertext)%bs != 0 {
		return nil, fmt.Errorf("%w: ciphertext is not a multiple of the block size", ErrDecrypt)
	}
	out := make([]byte, len(ciphertext))
	gocipher.NewCBCDecrypter(t.block, iv).CryptBlocks(out, ciphertext)

	pt, err := pkcs7.Unpad(out, bs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	return pt, nil
}

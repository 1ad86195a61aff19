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

package storage

import (
	"strings"
)

const (
	keysPrefix       = "keys/"
	enrollmentPrefix = "enrollment/"
)

// KeyPath returns the storage path for key material with the given entry name.
// The path follows the convention: keys/{name}
func KeyPath(name string) string {
	return keysPrefix + name
}

// EnrollmentPath returns the storage path for an enrolled credential record.
// The path follows the convention: enrollment/{id}
func EnrollmentPath(id string) string {
	return enrollmentPrefix + id
}

// ListKeys retrieves all key entry names from the backend by listing the
// "keys/" prefix. It strips the prefix and returns just the names.
func ListKeys(backend Backend) ([]string, error) {
	keys, err := backend.List(keysPrefix)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(keys))
	for _, k := range keys {
		name := strings.TrimPrefix(k, keysPrefix)
		if name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

//go:build sqlite

package storage

import "fmt"

func DefaultStoreKind() string {
	return KindSQLite
}

func newSQLiteStore(path string) (Store, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	return NewSQLiteStore(path), nil
}

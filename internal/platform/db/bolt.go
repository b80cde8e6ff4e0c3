package db

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

// OpenBolt opens or creates the bbolt file at path, creating parent
// directories. A second process holding the file lock fails after 5s.
func OpenBolt(path string) (*bbolt.DB, error) {
	if path == "" {
		return nil, errors.New("bolt path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create bolt directory: %w", err)
	}
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt: %w", err)
	}
	return db, nil
}

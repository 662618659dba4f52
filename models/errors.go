package models

import "errors"

// ErrDuplicateKey is returned by repositories when a unique index rejects a write.
var ErrDuplicateKey = errors.New("duplicate key")

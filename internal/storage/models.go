package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// SliceRecord is one persisted key with its raw serialized value.
type SliceRecord struct {
	Key       string
	Value     string
	UpdatedAt time.Time
}

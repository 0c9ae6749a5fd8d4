package persistence

import "errors"

// Sentinel errors shared by every storage backend. Services translate
// them into their own error vocabulary.
var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

// IsNotFound reports whether err means the record does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicate reports whether err means a uniqueness constraint was hit.
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicate)
}

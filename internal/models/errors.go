package models

import "errors"

// ErrNotFound is returned by stores when the referenced record does not exist
var ErrNotFound = errors.New("not found")

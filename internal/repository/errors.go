package repository

import "errors"

// ErrNotFound возвращается и для чужих задач, и для кривых id:
// снаружи эти случаи не должны различаться
var ErrNotFound = errors.New("not found")

var ErrAlreadyExists = errors.New("already exists")

package repository

import (
	"errors"
	"fmt"
)

var (
	// ErrRoleNotFound means the seeded role table is missing an expected row.
	ErrRoleNotFound = errors.New("role not found")

	// ErrTagAlreadyExists is returned when a tag name is already taken.
	ErrTagAlreadyExists = errors.New("tag already exists")
)

// RoleError wraps a failed role lookup with the name and scope that was requested.
type RoleError struct {
	Name  string
	Scope string
	Err   error
}

func (e *RoleError) Error() string {
	return fmt.Sprintf("role %s/%s lookup failed: %v", e.Scope, e.Name, e.Err)
}

func (e *RoleError) Unwrap() error {
	return e.Err
}

func IsRoleNotFound(err error) bool {
	return errors.Is(err, ErrRoleNotFound)
}

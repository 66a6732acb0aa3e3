package service

import (
	"errors"

	"github.com/recipekeep/recipekeep-go/internal/repository"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidCredentials = errors.New("unable to authenticate with provided credentials")
)

const msgRequired = "this field is required"

// notFound translates the repository sentinel so handlers depend on the
// service package only.
func notFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

package service

import (
	"errors"

	"leadcrm/internal/domain"
)

func isConflict(err error) bool {
	return errors.Is(err, domain.ErrConflict)
}

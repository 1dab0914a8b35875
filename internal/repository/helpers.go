package repository

import (
	"errors"

	"github.com/alexanderramin/procflow/internal/domain"
)

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}

package repository

import (
	"errors"
	"fmt"

	"github.com/kursadbilgin/infobip-dispatch/internal/domain"
	"gorm.io/gorm"
)

// translateError maps gorm's translated driver errors onto domain sentinels.
func translateError(err error, entity string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %s already exists", domain.ErrConflict, entity)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%w: %s not found", domain.ErrNotFound, entity)
	default:
		return err
	}
}

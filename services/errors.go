package services

import (
	"errors"

	"github.com/bhumi3292/VaultLease-sub001/apperror"

	"gorm.io/gorm"
)

// notFoundAs 把 gorm 的 ErrRecordNotFound 换成带实体名的 NotFound
func notFoundAs(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.NotFound(what)
	}
	return err
}

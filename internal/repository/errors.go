package repository

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"bloghub.com/internal/domain"
)

// translate maps gorm errors onto the domain sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domain.ErrNotFound
	case isDuplicateKey(err):
		return errors.Join(domain.ErrAlreadyExists, err)
	default:
		return err
	}
}

// isDuplicateKey covers drivers that do not implement gorm's error translator.
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}

// containsExpr is a case-sensitive literal substring test on column.
// LIKE is avoided: sqlite's LIKE ignores case and both dialects treat % and _ as wildcards.
func containsExpr(db *gorm.DB, column string) string {
	if db.Dialector.Name() == "postgres" {
		return "strpos(" + column + ", ?) > 0"
	}
	return "instr(" + column + ", ?) > 0"
}

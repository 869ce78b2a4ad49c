package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/yoockh/yoointerview/internal/utils"
	"gorm.io/gorm"
)

const sqlStateForeignKeyViolation = "23503"

// translate maps driver errors to the storage contract: utils.ErrNotFound and
// *utils.ReferentialViolation. Other errors pass through.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return utils.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == sqlStateForeignKeyViolation {
		return &utils.ReferentialViolation{Constraint: pgErr.ConstraintName, Err: err}
	}
	// gorm's TranslateError replaces the pg error with its own sentinel.
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return &utils.ReferentialViolation{Err: err}
	}
	return err
}

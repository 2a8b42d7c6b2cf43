package db

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// uniqueViolation はPostgreSQLの一意制約違反のSQLSTATEです。
const uniqueViolation = "23505"

// IsDuplicateKey は一意制約違反のエラーかどうかを判定します。
// TranslateError有効時のgorm.ErrDuplicatedKeyと、pgconn.PgErrorの両方を扱います。
func IsDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

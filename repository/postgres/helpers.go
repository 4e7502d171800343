package postgres

import (
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// Cipher encrypts values that must not be stored in clear text.
type Cipher interface {
	EncryptString(s string) (string, error)
	DecryptString(encoded string) (string, error)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func isUniqueViolation(err error) bool {
	return pgErrorCode(err) == uniqueViolation
}

func isForeignKeyViolation(err error) bool {
	return pgErrorCode(err) == foreignKeyViolation
}

// validUUID guards uuid columns from text the driver would reject with a syntax error.
func validUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

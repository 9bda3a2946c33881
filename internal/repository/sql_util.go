package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"leadcrm/internal/domain"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// validID rejects ids postgres would refuse to cast to UUID.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func notFound(what string) error {
	return fmt.Errorf("%s not found: %w", what, domain.ErrNotFound)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds a LIKE pattern matching s literally anywhere in the value.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

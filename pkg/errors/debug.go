package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrorDump is the loggable shape of an error chain. Postgres driver details
// ride along when the chain reaches the database.
type ErrorDump struct {
	TopMessage string `json:"top_message"`
	Code       Code   `json:"code,omitempty"`

	Chain []string `json:"chain,omitempty"`

	PGCode       string `json:"pg_code,omitempty"`
	PGConstraint string `json:"pg_constraint,omitempty"`
	PGTable      string `json:"pg_table,omitempty"`
	PGColumn     string `json:"pg_column,omitempty"`
	PGDetail     string `json:"pg_detail,omitempty"`
	PGMessage    string `json:"pg_message,omitempty"`
}

// Dump flattens err into an ErrorDump for structured log output.
func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}

	dump := ErrorDump{
		TopMessage: err.Error(),
	}

	if typed := As(err); typed != nil {
		dump.Code = typed.Code()
	}

	for e := err; e != nil; e = errors.Unwrap(e) {
		dump.Chain = append(dump.Chain, fmt.Sprintf("%T: %v", e, e))
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		dump.PGCode = pgErr.Code
		dump.PGConstraint = pgErr.ConstraintName
		dump.PGTable = pgErr.TableName
		dump.PGColumn = pgErr.ColumnName
		dump.PGDetail = pgErr.Detail
		dump.PGMessage = pgErr.Message
	}

	return dump
}

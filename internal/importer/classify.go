package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vvka-141/pgjson/pkg/pgjson"
)

var malformedCodes = map[string]bool{
	"22P02": true, // invalid_text_representation (bad JSON)
	"22023": true, // invalid_parameter_value (jsonb_object_keys on a scalar)
	"22032": true, // invalid_json_text
	"22P05": true, // untranslatable_character (\u0000 in jsonb)
	"22021": true, // character_not_in_repertoire (bad UTF-8)
}

var identifierCodes = map[string]bool{
	"42P07": true, // duplicate_table
	"42701": true, // duplicate_column
	"42P06": true, // duplicate_schema
	"42622": true, // name_too_long
	"42602": true, // invalid_name
}

// classify maps an error to the pgjson sentinel describing its kind.
func classify(err error) error {
	var pgErr *pgconn.PgError
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgjson.ErrInvalidConfig), errors.Is(err, pgjson.ErrUnsupportedAuthMethod):
		return pgjson.ErrInvalidConfig
	case errors.Is(err, pgjson.ErrFileNotFound), errors.Is(err, fs.ErrNotExist), errors.Is(err, fs.ErrPermission):
		return pgjson.ErrFileNotFound
	case errors.Is(err, pgjson.ErrMalformedRecord):
		return pgjson.ErrMalformedRecord
	case errors.Is(err, pgjson.ErrIdentifierConflict):
		return pgjson.ErrIdentifierConflict
	case errors.Is(err, pgjson.ErrConnectionFailed):
		return pgjson.ErrConnectionFailed
	case errors.As(err, &pgErr):
		return classifyCode(pgErr.Code)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return pgjson.ErrExecutionFailed
	case isConnectionLoss(err):
		return pgjson.ErrConnectionFailed
	default:
		return pgjson.ErrExecutionFailed
	}
}

// withKind annotates err with its sentinel, keeping err reachable for errors.As.
func withKind(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", err, classify(err))
}

func classifyCode(code string) error {
	switch {
	case malformedCodes[code]:
		return pgjson.ErrMalformedRecord
	case identifierCodes[code]:
		return pgjson.ErrIdentifierConflict
	case strings.HasPrefix(code, "23"), strings.HasPrefix(code, "54"), code == "22001":
		return pgjson.ErrConstraintViolation
	case strings.HasPrefix(code, "08"), strings.HasPrefix(code, "57P"):
		return pgjson.ErrConnectionFailed
	default:
		return pgjson.ErrExecutionFailed
	}
}

func isConnectionLoss(err error) bool {
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) || pgconn.Timeout(err) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed) {
		return true
	}
	return strings.Contains(err.Error(), "conn closed")
}

// stepError wraps err for step with its classified kind. An error that
// already is a *pgjson.StepError is returned unchanged.
func stepError(step pgjson.Step, err error) error {
	var se *pgjson.StepError
	if errors.As(err, &se) {
		return err
	}
	return &pgjson.StepError{Step: step, Kind: classify(err), Err: err}
}

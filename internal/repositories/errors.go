package repositories

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"strings"
)

var transientMessages = []string{
	"connection closed",
	"conn closed",
	"connection reset",
	"too many connections",
	"database is locked",
	"sqlite_busy",
	"connection refused",
}

// IsTransient reports whether err is a pool or connection condition that is
// expected to clear up on retry rather than a permanent failure.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, transient := range transientMessages {
		if strings.Contains(msg, transient) {
			return true
		}
	}
	return false
}

// Package repository persists vehicles, holds, ledger entries and payment
// sessions.  Domain failures are reported with the sentinels of the model
// package; the values below cover storage-level conditions only.
package repository

import (
    "errors"

    "github.com/go-sql-driver/mysql"
)

// ErrConflict is returned when an insert collides with an existing row
// that is not a seat, such as a duplicate hold or session identifier.
var ErrConflict = errors.New("conflict")

// mysqlDuplicateEntry is the MySQL error number for a unique key violation.
const mysqlDuplicateEntry = 1062

// isDuplicate reports whether err is a MySQL duplicate key error.
func isDuplicate(err error) bool {
    var me *mysql.MySQLError
    return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}

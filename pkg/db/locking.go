package db

import "gorm.io/gorm"

// ForUpdate returns the row-locking suffix for the current dialect.
// SQLite serialises writers at the connection level and rejects the
// clause outright, so it gets none.
func ForUpdate(tx *gorm.DB) string {
	if tx.Dialector.Name() == "sqlite" {
		return ""
	}
	return " FOR UPDATE"
}

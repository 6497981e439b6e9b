package utils

import "database/sql"

// NullStr maps an empty string to NULL
func NullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// StrOf returns the value or an empty string for NULL
func StrOf(v sql.NullString) string {
	if v.Valid {
		return v.String
	}
	return ""
}

// NullInt maps a non positive value to NULL, diary scores start at 1
func NullInt(i int) sql.NullInt32 {
	return sql.NullInt32{Int32: int32(i), Valid: i > 0}
}

// IntOf returns the value or 0 for NULL
func IntOf(v sql.NullInt32) int {
	if v.Valid {
		return int(v.Int32)
	}
	return 0
}

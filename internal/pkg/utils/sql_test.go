package utils

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNullStr(t *testing.T) {
	assert.Equal(t, sql.NullString{String: "happy", Valid: true}, NullStr("happy"))
	assert.False(t, NullStr("").Valid)
	assert.Equal(t, "happy", StrOf(NullStr("happy")))
	assert.Equal(t, "", StrOf(sql.NullString{String: "olia"}))
}

func TestNullInt(t *testing.T) {
	tests := []struct {
		in    int
		valid bool
		out   int
	}{
		{in: 8, valid: true, out: 8},
		{in: 1, valid: true, out: 1},
		{in: 0, valid: false, out: 0},
		{in: -3, valid: false, out: 0},
	}
	for _, tt := range tests {
		v := NullInt(tt.in)
		assert.Equal(t, tt.valid, v.Valid, tt.in)
		assert.Equal(t, tt.out, IntOf(v), tt.in)
	}
}

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractMigrationID(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"20260115093000_create_auth_attempts.sql", "20260115093000_create_auth_attempts"},
		{"001_init.sql", "001_init"},
		{"no_extension", "no_extension"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, extractMigrationID(tt.filename))
	}
}

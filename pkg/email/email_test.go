package email

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeAndEqual(t *testing.T) {
	assert.Equal(t, "jane@example.com", Normalize("  Jane@Example.COM "))
	assert.True(t, Equal("Jane@Example.com", "jane@EXAMPLE.com"))
	assert.False(t, Equal("jane@example.com", "janet@example.com"))
}

func TestIsPlausible(t *testing.T) {
	valid := []string{"jane@example.com", "a@b.co", "first.last+tag@sub.example.org"}
	for _, addr := range valid {
		assert.True(t, IsPlausible(addr), addr)
	}

	invalid := []string{"", "jane", "@example.com", "jane@", "jane@nodot", "jane@@example.com", "jane@.com"}
	for _, addr := range invalid {
		assert.False(t, IsPlausible(addr), addr)
	}
}

func TestRewriteDisplayName(t *testing.T) {
	tests := []struct {
		name    string
		display string
		want    string
	}{
		{"plain swap", "Jane Doe", "Janet Smith"},
		{"decoration survives", "Ms Jane Doe", "Ms Janet Smith"},
		{"case-insensitive match", "JANE doe", "Janet Smith"},
		{"empty display built from new names", "", "Janet Smith"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RewriteDisplayName(tt.display, "Jane", "Doe", "Janet", "Smith")
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDeriveNameFromEmail(t *testing.T) {
	first, last := DeriveNameFromEmail("sam.smith@example.com")
	assert.Equal(t, "Sam", first)
	assert.Equal(t, "Smith", last)

	first, last = DeriveNameFromEmail("sam@example.com")
	assert.Equal(t, "Sam", first)
	assert.Equal(t, "User", last)

	first, last = DeriveNameFromEmail("sam_j_smith@example.com")
	assert.Equal(t, "Sam", first)
	assert.Equal(t, "Smith", last)
}

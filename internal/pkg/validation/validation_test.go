package validation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsValidCountryCode(t *testing.T) {
	assert.True(t, IsValidCountryCode("KE"))
	assert.True(t, IsValidCountryCode("KEN"))
	assert.True(t, IsValidCountryCode("ken"))
	assert.False(t, IsValidCountryCode("Kenya"))
	assert.False(t, IsValidCountryCode("K"))
	assert.False(t, IsValidCountryCode(""))
	assert.False(t, IsValidCountryCode("K3N"))
}

func TestIsValidVintage(t *testing.T) {
	assert.True(t, IsValidVintage(1990))
	assert.True(t, IsValidVintage(time.Now().Year()))
	assert.True(t, IsValidVintage(time.Now().Year()+1))
	assert.False(t, IsValidVintage(1989))
	assert.False(t, IsValidVintage(time.Now().Year()+2))
}

func TestParseDate(t *testing.T) {
	d, ok := ParseDate("2025-03-15")
	assert.True(t, ok)
	assert.Equal(t, 2025, d.Year())

	d, ok = ParseDate("2025-03-15T10:30:00Z")
	assert.True(t, ok)
	assert.Equal(t, time.March, d.Month())

	_, ok = ParseDate("15/03/2025")
	assert.False(t, ok)
	_, ok = ParseDate("")
	assert.False(t, ok)
}

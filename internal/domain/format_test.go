package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "$450,000", FormatPrice(450000))
	assert.Equal(t, "$1,250,000", FormatPrice(1250000))
	assert.Equal(t, "$0", FormatPrice(0))
	assert.Equal(t, "$999", FormatPrice(999))
}

func TestFormatSqft(t *testing.T) {
	assert.Equal(t, "1,800 sq ft", FormatSqft(1800))
	assert.Equal(t, "950 sq ft", FormatSqft(950))
}

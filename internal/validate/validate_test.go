package validate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name    string `json:"name" validate:"notblank"`
	Days    int    `json:"total_days" validate:"gte=1,lte=365"`
	Country string `json:"market_country_code" validate:"omitempty,iso3166_1_alpha2"`
	Secret  string `json:"-" validate:"omitempty,min=3"`
}

func TestStructReportsJSONFieldNames(t *testing.T) {
	err := Struct(sample{Name: "  ", Days: 0, Country: "XX"})
	require.Error(t, err)

	var verr *Error
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Fields, 3)
	assert.Equal(t, "name cannot be blank", verr.Fields["name"])
	assert.Contains(t, verr.Fields, "total_days")
	assert.Contains(t, verr.Fields, "market_country_code")
	assert.Contains(t, verr.Error(), "invalid input: ")
}

func TestStructAcceptsValidInput(t *testing.T) {
	require.NoError(t, Struct(sample{Name: "Class A", Days: 10, Country: "KR"}))
}

func TestField(t *testing.T) {
	err := Field("day", "day must be within the class")
	assert.Equal(t, map[string]string{"day": "day must be within the class"}, err.Fields)
}

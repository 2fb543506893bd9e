package validation_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/dukerupert/shopsync/internal/errors"
	"github.com/dukerupert/shopsync/internal/validation"
)

type itemRequest struct {
	Name     string `json:"name" validate:"required,min=1,max=200"`
	Quantity *int   `json:"quantity,omitempty" validate:"omitnil,gt=0"`
}

func intPtr(n int) *int { return &n }

func TestValidateSuccess(t *testing.T) {
	v := validation.New()
	assert.NoError(t, v.Validate(itemRequest{Name: "Milk"}))
	assert.NoError(t, v.Validate(itemRequest{Name: "Milk", Quantity: intPtr(2)}))
}

func TestValidateErrors(t *testing.T) {
	v := validation.New()

	tests := []struct {
		name      string
		req       itemRequest
		wantField string
	}{
		{"missing name", itemRequest{}, "name"},
		{"name too long", itemRequest{Name: strings.Repeat("a", 201)}, "name"},
		{"zero quantity", itemRequest{Name: "Milk", Quantity: intPtr(0)}, "quantity"},
		{"negative quantity", itemRequest{Name: "Milk", Quantity: intPtr(-3)}, "quantity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.req)
			require.Error(t, err)
			assert.True(t, domainerrors.Is(err, domainerrors.ErrValidation))

			var de *domainerrors.Error
			require.True(t, domainerrors.As(err, &de))
			details, ok := de.Details.(map[string]string)
			require.True(t, ok)
			assert.Contains(t, details, tt.wantField)
		})
	}
}

func TestValidateCountsRunes(t *testing.T) {
	v := validation.New()
	// 200 multi-byte runes is still within the limit.
	assert.NoError(t, v.Validate(itemRequest{Name: strings.Repeat("é", 200)}))
}

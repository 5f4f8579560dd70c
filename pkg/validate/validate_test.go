package validate

import (
	"testing"

	pkgerrors "github.com/angelmondragon/ticketcart/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type buyer struct {
	Name  string `json:"name" validate:"required,max=10"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone" validate:"omitempty,idphone"`
	Seats int    `json:"seats" validate:"gte=1"`
}

func TestIsPhone(t *testing.T) {
	for _, ok := range []string{"081234567890", "+62812345678", "0812-3456-7890", "0812 345 678"} {
		assert.True(t, IsPhone(ok), ok)
	}
	for _, bad := range []string{"", "12345", "+1555123456", "08123", "0812345678901234", "08abc4567890"} {
		assert.False(t, IsPhone(bad), bad)
	}
}

func TestStruct(t *testing.T) {
	require.NoError(t, Struct(buyer{Name: "Sari", Email: "sari@example.com", Seats: 1}))
	require.NoError(t, Struct(buyer{Name: "Sari", Email: "sari@example.com", Phone: "081234567890", Seats: 2}))

	err := Struct(buyer{Name: "A very long name", Email: "nope", Phone: "12", Seats: 0})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	assert.Equal(t, map[string]string{
		"name":  "must be at most 10",
		"email": "must be a valid email",
		"phone": "must be a valid phone number (08xx or +62xx)",
		"seats": "must be at least 1",
	}, typed.Details())
}

package validation_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/bookhavenapp/bookhaven-server/internal/errors"
	"github.com/bookhavenapp/bookhaven-server/internal/validation"
)

type TestRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=1024"`
	Name     string `json:"name" validate:"required"`
}

func fieldErrors(t *testing.T, err error) map[string]string {
	t.Helper()

	var domainErr *domainerrors.Error
	require.True(t, domainerrors.As(err, &domainErr))
	assert.Equal(t, http.StatusBadRequest, domainErr.HTTPStatus())

	fields, ok := domainErr.Details.(map[string]string)
	require.True(t, ok, "details should be a field error map")
	return fields
}

func TestValidator_ValidateSuccess(t *testing.T) {
	v := validation.New()

	req := TestRequest{
		Email:    "test@example.com",
		Password: "password123",
		Name:     "Test User",
	}

	err := v.Validate(req)
	assert.NoError(t, err)
}

func TestValidator_ValidateErrors(t *testing.T) {
	v := validation.New()

	//nolint:govet // fieldalignment: Minor memory optimization not worth the complexity in test code
	tests := []struct {
		name      string
		req       TestRequest
		wantField string
	}{
		{
			name: "missing required field",
			req: TestRequest{
				Email:    "test@example.com",
				Password: "password123",
				Name:     "", // Missing
			},
			wantField: "name",
		},
		{
			name: "invalid email",
			req: TestRequest{
				Email:    "not-an-email",
				Password: "password123",
				Name:     "Test",
			},
			wantField: "email",
		},
		{
			name: "password too short",
			req: TestRequest{
				Email:    "test@example.com",
				Password: "short",
				Name:     "Test",
			},
			wantField: "password",
		},
		{
			name: "password too long",
			req: TestRequest{
				Email:    "test@example.com",
				Password: string(make([]byte, 1025)),
				Name:     "Test",
			},
			wantField: "password",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.req)
			require.Error(t, err)

			fields := fieldErrors(t, err)
			assert.Contains(t, fields, tt.wantField)
		})
	}
}

func TestValidator_JSONFieldNames(t *testing.T) {
	v := validation.New()

	req := TestRequest{
		Email:    "",
		Password: "password123",
		Name:     "Test",
	}

	err := v.Validate(req)
	require.Error(t, err)

	// Should use JSON tag name "email", not struct field name "Email"
	fields := fieldErrors(t, err)
	assert.Contains(t, fields, "email")
	assert.NotContains(t, fields, "Email")
}

func TestValidator_PriceRule(t *testing.T) {
	v := validation.New()

	type priceForm struct {
		Price string `json:"price" validate:"required,price"`
	}

	assert.NoError(t, v.Validate(priceForm{Price: "12.99"}))
	assert.NoError(t, v.Validate(priceForm{Price: "0"}))

	for _, bad := range []string{"-1.00", "abc", "12.9.9"} {
		err := v.Validate(priceForm{Price: bad})
		require.Error(t, err, "price %q should fail", bad)
		fields := fieldErrors(t, err)
		assert.Contains(t, fields, "price")
	}
}

package screens

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"expense-wallet/internal/api"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatDOB(t *testing.T) {
	tests := map[string]string{
		"19900102":      "1990-01-02",
		"1990-01-02":    "1990-01-02",
		"1990/01/02":    "1990-01-02",
		"199":           "199",
		"19900":         "1990-0",
		"1990010299999": "1990-01-02",
		"":              "",
	}
	for in, want := range tests {
		assert.Equal(t, want, FormatDOB(in), in)
	}
}

func validRegisterForm() RegisterForm {
	return RegisterForm{
		Email:           "new@example.com",
		FullName:        "New User",
		DateOfBirth:     "19900102",
		Password:        "secret",
		ConfirmPassword: "secret",
	}
}

func TestRegisterValidation(t *testing.T) {
	missing := validRegisterForm()
	missing.FullName = " "
	mismatch := validRegisterForm()
	mismatch.ConfirmPassword = "other"
	badEmail := validRegisterForm()
	badEmail.Email = "not-an-email"

	tests := []struct {
		name string
		form RegisterForm
		want string
	}{
		{"missing field", missing, MsgAllFieldsRequired},
		{"password mismatch", mismatch, MsgPasswordMismatch},
		{"bad email", badEmail, MsgInvalidEmail},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &MockBackend{}
			c := NewRegister(backend, &MockUsers{}, zerolog.Nop())

			<-c.Submit(context.Background(), tt.form)

			assert.Equal(t, tt.want, c.View().State().Message)
			assert.Empty(t, backend.registers)
		})
	}
}

func TestRegisterSuccessStoresUserID(t *testing.T) {
	backend := &MockBackend{}
	users := &MockUsers{id: -1}
	c := NewRegister(backend, users, zerolog.Nop())

	<-c.Submit(context.Background(), validRegisterForm())

	st := c.View().State()
	require.Equal(t, StatusLoaded, st.Status, st.Message)
	assert.Equal(t, RouteLogin, st.Data.Route)
	assert.Equal(t, int64(41), users.id)
	require.Len(t, backend.registers, 1)
	assert.Equal(t, "1990-01-02", backend.registers[0].DateOfBirth)
}

func TestRegisterErrorMessage(t *testing.T) {
	e := &api.HTTPError{
		StatusCode: http.StatusBadRequest,
		Status:     "400 Bad Request",
		Fields: map[string][]string{
			"email":         {"user with this Email Address already exists."},
			"date_of_birth": {"Date has wrong format."},
		},
	}
	assert.Equal(t, "A user with this Email Address already exists.\nDate of Birth Error: Date has wrong format.", RegisterErrorMessage(e))

	e = &api.HTTPError{
		StatusCode: http.StatusBadRequest,
		Status:     "400 Bad Request",
		Fields: map[string][]string{
			"password":  {"This field may not be blank."},
			"full_name": {"Ensure this field has no more than 150 characters."},
		},
	}
	assert.Equal(t, "full_name: Ensure this field has no more than 150 characters.\npassword: This field may not be blank.", RegisterErrorMessage(e))

	e = &api.HTTPError{
		StatusCode: http.StatusBadRequest,
		Status:     "400 Bad Request",
		Message:    "Invalid JSON.",
		Fields:     map[string][]string{"non_field_errors": {"Invalid JSON."}},
	}
	assert.Equal(t, "Invalid JSON.", RegisterErrorMessage(e))

	e = &api.HTTPError{StatusCode: http.StatusBadRequest, Status: "400 Bad Request"}
	assert.Equal(t, "Registration failed: 400 Bad Request", RegisterErrorMessage(e))
}

func TestRegisterShowsFieldErrors(t *testing.T) {
	backend := &MockBackend{err: &api.HTTPError{
		StatusCode: http.StatusBadRequest,
		Status:     "400 Bad Request",
		Fields:     map[string][]string{"email": {"user with this Email Address already exists."}},
	}}
	c := NewRegister(backend, &MockUsers{}, zerolog.Nop())

	<-c.Submit(context.Background(), validRegisterForm())

	assert.Equal(t, "A user with this Email Address already exists.", c.View().State().Message)
}

func TestLoginMessages(t *testing.T) {
	httpWithBody := &api.HTTPError{StatusCode: http.StatusUnauthorized, Status: "401 Unauthorized", Message: "Invalid email or password"}
	httpBare := &api.HTTPError{StatusCode: http.StatusUnauthorized, Status: "401 Unauthorized"}

	assert.Equal(t, "Invalid email or password", LoginErrorMessage(httpWithBody))
	assert.Equal(t, MsgInvalidLogin, LoginErrorMessage(httpBare))
	assert.Equal(t, "Network error: connection refused", LoginErrorMessage(errNetwork))
	assert.Equal(t, "Failed to retrieve authentication token", LoginErrorMessage(errors.New("Failed to retrieve authentication token")))
}

func TestLoginSubmit(t *testing.T) {
	sessions := &MockSessions{}
	c := NewLogin(sessions)

	<-c.Submit(context.Background(), " test@example.com ", "password123")

	st := c.View().State()
	require.Equal(t, StatusLoaded, st.Status)
	assert.Equal(t, RouteMain, st.Data.Route)
	assert.Equal(t, 1, sessions.logins)
}

func TestHomeLogout(t *testing.T) {
	c := NewHome(&MockSessions{})
	<-c.Logout(context.Background())
	st := c.View().State()
	assert.Equal(t, MsgLoggedOut, st.Data.Message)
	assert.Equal(t, RouteLogin, st.Data.Route)

	c = NewHome(&MockSessions{err: errors.New("Logout failed: 500 Internal Server Error")})
	<-c.Logout(context.Background())
	assert.Equal(t, "Logout failed: 500 Internal Server Error", c.View().State().Message)
}

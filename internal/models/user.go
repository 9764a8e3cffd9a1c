package models

// User represents an account as sent to and returned by the registration endpoint.
type User struct {
	ID          *int64 `json:"id,omitempty"`
	Email       string `json:"email"`
	FullName    string `json:"full_name"`
	DateOfBirth string `json:"date_of_birth"`
	Password    string `json:"password,omitempty"`
}

// LoginRequest is the body of a login call.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is the flat JSON object returned by a successful login.
type LoginResponse map[string]any

// Token returns the authentication token carried in the Authorization field.
func (r LoginResponse) Token() string {
	s, _ := r["Authorization"].(string)
	return s
}

// Message returns the optional human-readable message.
func (r LoginResponse) Message() string {
	s, _ := r["message"].(string)
	return s
}

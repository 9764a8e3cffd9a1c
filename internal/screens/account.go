package screens

import (
	"context"
	"regexp"
	"strings"

	"expense-wallet/internal/api"
	"expense-wallet/internal/models"

	"github.com/badoux/checkmail"
	"github.com/rs/zerolog"
)

// Display texts of the account screens.
const (
	MsgAllFieldsRequired = "All fields are required"
	MsgPasswordMismatch  = "Passwords do not match"
	MsgInvalidEmail      = "Invalid email address"
	MsgInvalidLogin      = "Invalid email or password"
	MsgLoggedOut         = "Logged out"
	MsgRegistered        = "Account created. Please log in."
)

// RegisterForm is the input of the register screen.
type RegisterForm struct {
	Email           string
	FullName        string
	DateOfBirth     string
	Password        string
	ConfirmPassword string
}

var nonDigits = regexp.MustCompile(`\D`)

// FormatDOB keeps at most eight digits of input and inserts dashes to form YYYY-MM-DD.
func FormatDOB(input string) string {
	nums := nonDigits.ReplaceAllString(input, "")
	if len(nums) > 8 {
		nums = nums[:8]
	}
	var b strings.Builder
	for i, r := range nums {
		if i == 4 || i == 6 {
			b.WriteByte('-')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Validate checks the form and returns the user to register.
func (f RegisterForm) Validate() (models.User, error) {
	email := strings.TrimSpace(f.Email)
	fullName := strings.TrimSpace(f.FullName)
	if email == "" || strings.TrimSpace(f.Password) == "" || strings.TrimSpace(f.ConfirmPassword) == "" || fullName == "" {
		return models.User{}, NewValidationError(MsgAllFieldsRequired)
	}
	if f.Password != f.ConfirmPassword {
		return models.User{}, NewValidationError(MsgPasswordMismatch)
	}
	if err := checkmail.ValidateFormat(email); err != nil {
		return models.User{}, NewValidationError(MsgInvalidEmail)
	}
	return models.User{
		Email:       email,
		FullName:    fullName,
		DateOfBirth: FormatDOB(f.DateOfBirth),
		Password:    f.Password,
	}, nil
}

// RegisterErrorMessage renders registration field errors as the register screen shows them.
func RegisterErrorMessage(e *api.HTTPError) string {
	var msgs []string
	if m := e.FieldMessages("email"); len(m) > 0 {
		msgs = append(msgs, "A "+m[0])
	}
	if m := e.FieldMessages("date_of_birth"); len(m) > 0 {
		msgs = append(msgs, "Date of Birth Error: "+m[0])
	}
	if len(msgs) == 0 && e.Message != "" {
		return e.Message
	}
	if len(msgs) == 0 {
		for _, field := range e.FieldNames() {
			msgs = append(msgs, field+": "+strings.Join(e.FieldMessages(field), " "))
		}
	}
	if len(msgs) == 0 {
		return "Registration failed: " + e.Status
	}
	return strings.Join(msgs, "\n")
}

// Register submits the register form.
type Register struct {
	backend Backend
	users   UserStore
	log     zerolog.Logger
	view    View[Outcome]
}

// NewRegister returns the register controller.
func NewRegister(b Backend, users UserStore, log zerolog.Logger) *Register {
	return &Register{backend: b, users: users, log: log}
}

// View returns the submission state.
func (c *Register) View() *View[Outcome] { return &c.view }

// Submit validates the form and creates the account. On success the outcome routes to login.
func (c *Register) Submit(ctx context.Context, f RegisterForm) <-chan struct{} {
	user, err := f.Validate()
	if err != nil {
		return reject(&c.view, Describe(err, ""))
	}
	return run(ctx, &c.view, "Registration failed", func(ctx context.Context) (Outcome, error) {
		created, err := c.backend.RegisterUser(ctx, user)
		if err != nil {
			if httpErr, ok := api.IsHTTP(err); ok {
				return Outcome{}, &Error{Message: RegisterErrorMessage(httpErr), Err: err}
			}
			return Outcome{}, err
		}
		if created.ID != nil {
			if err := c.users.SetUserID(*created.ID); err != nil {
				c.log.Warn().Err(err).Msg("failed to store user id")
			}
		}
		return Outcome{Message: MsgRegistered, Route: RouteLogin}, nil
	})
}

// Login submits the login form.
type Login struct {
	sessions Sessions
	view     View[Outcome]
}

// NewLogin returns the login controller.
func NewLogin(s Sessions) *Login {
	return &Login{sessions: s}
}

// View returns the submission state.
func (c *Login) View() *View[Outcome] { return &c.view }

// Submit signs in. On success the outcome routes to the main screen.
func (c *Login) Submit(ctx context.Context, email, password string) <-chan struct{} {
	return run(ctx, &c.view, "Login failed", func(ctx context.Context) (Outcome, error) {
		if err := c.sessions.Login(ctx, strings.TrimSpace(email), password); err != nil {
			return Outcome{}, &Error{Message: LoginErrorMessage(err), Err: err}
		}
		return Outcome{Route: RouteMain}, nil
	})
}

// LoginErrorMessage renders a login failure as the login screen shows it.
func LoginErrorMessage(err error) string {
	if httpErr, ok := api.IsHTTP(err); ok {
		if httpErr.Message != "" {
			return httpErr.Message
		}
		return MsgInvalidLogin
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return MsgInvalidLogin
}

// Home is the main screen; it only offers logout besides navigation.
type Home struct {
	sessions Sessions
	view     View[Outcome]
}

// NewHome returns the home controller.
func NewHome(s Sessions) *Home {
	return &Home{sessions: s}
}

// View returns the logout state.
func (c *Home) View() *View[Outcome] { return &c.view }

// Logout signs out. On success the outcome routes to login.
func (c *Home) Logout(ctx context.Context) <-chan struct{} {
	return run(ctx, &c.view, "Logout failed", func(ctx context.Context) (Outcome, error) {
		if err := c.sessions.Logout(ctx); err != nil {
			return Outcome{}, &Error{Message: err.Error(), Err: err}
		}
		return Outcome{Message: MsgLoggedOut, Route: RouteLogin}, nil
	})
}

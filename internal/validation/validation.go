// Package validation checks request input before any store or network call.
package validation

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Dias221467/Chat_Manager/internal/apperrors"
)

const MinPasswordLength = 8

// Field error codes. Messages are translated by the i18n package.
const (
	CodeRequired         = "validation/required"
	CodeInvalidEmail     = "validation/invalid-email"
	CodeTooShort         = "validation/too-short"
	CodeInvalidUsername  = "validation/invalid-username"
	CodePasswordMismatch = "validation/password-mismatch"
	CodeAvatarRequired   = "validation/avatar-required"
)

var usernameRegex = regexp.MustCompile(`^[a-z0-9-]{3,20}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernameRegex.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Errors collects every failing field of one input.
type Errors []FieldError

func (e Errors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, fe := range e {
		msgs = append(msgs, fe.Field+": "+fe.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func (e Errors) Unwrap() error {
	return apperrors.ErrValidation
}

func (e *Errors) add(field, code, message string) {
	*e = append(*e, FieldError{Field: field, Code: code, Message: message})
}

func (e Errors) errOrNil() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// fromValidator maps validator failures to field codes. field overrides the
// reported name for single-value checks.
func fromValidator(err error, field string) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	var out Errors
	for _, fe := range verrs {
		name := fe.Field()
		if field != "" {
			name = field
		}
		switch {
		case name == "avatar":
			out.add(name, CodeAvatarRequired, "avatar is required")
		case fe.Tag() == "required":
			out.add(name, CodeRequired, name+" is required")
		case fe.Tag() == "email":
			out.add(name, CodeInvalidEmail, "invalid email format")
		case fe.Tag() == "min":
			out.add(name, CodeTooShort, "password must have at least 8 characters")
		case fe.Tag() == "username":
			out.add(name, CodeInvalidUsername, "username must be 3-20 lowercase letters, digits or hyphens")
		case fe.Tag() == "eqfield":
			out.add(name, CodePasswordMismatch, "passwords must match")
		default:
			out.add(name, CodeRequired, name+" is invalid")
		}
	}
	return out.errOrNil()
}

// SignUpInput is the raw sign-up form. HasAvatar reports whether an image
// was attached; the profile cannot be created without one.
type SignUpInput struct {
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8"`
	PasswordConfirm string `json:"password_confirm" validate:"required,min=8,eqfield=Password"`
	Username        string `json:"username" validate:"required,username"`
	DisplayName     string `json:"display_name" validate:"required"`
	HasAvatar       bool   `json:"avatar" validate:"required"`
}

// ValidateSignUp checks every sign-up field and reports all failures at once.
func ValidateSignUp(in SignUpInput) error {
	in.DisplayName = strings.TrimSpace(in.DisplayName)
	return fromValidator(validate.Struct(in), "")
}

func ValidateSignIn(email, password string) error {
	var errs Errors
	if err := ValidateEmail(email); err != nil {
		var emailErrs Errors
		if !errors.As(err, &emailErrs) {
			return err
		}
		errs = append(errs, emailErrs...)
	}
	if password == "" {
		errs.add("password", CodeRequired, "password is required")
	}
	return errs.errOrNil()
}

func ValidateEmail(email string) error {
	return fromValidator(validate.Var(email, "required,email"), "email")
}

func ValidatePassword(password string) error {
	return fromValidator(validate.Var(password, "required,min=8"), "password")
}

func ValidateUsername(username string) error {
	return fromValidator(validate.Var(username, "required,username"), "username")
}

// NormalizeUsername lowercases and trims a username typed by a user.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// Package validation wraps go-playground/validator with the account field
// rules. The username and email rules are registered as the "username" and
// "useremail" tags so every request shape carrying those fields shares them.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode/utf8"

	"yamdb/internal/apperrors"
	"yamdb/internal/config"

	"github.com/go-playground/validator/v10"
)

type Validator struct {
	validate *validator.Validate
	cfg      config.AuthConfig
	reserved map[string]struct{}
}

func New(cfg config.AuthConfig) *Validator {
	v := &Validator{
		validate: validator.New(validator.WithRequiredStructEnabled()),
		cfg:      cfg,
		reserved: make(map[string]struct{}, len(cfg.ReservedUsernames)),
	}
	for _, name := range cfg.ReservedUsernames {
		v.reserved[name] = struct{}{}
	}

	// report json names so error bodies match request bodies
	v.validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// registration only fails for empty tags or nil funcs
	_ = v.validate.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return v.CheckUsername(fl.Field().String()) == nil
	})
	_ = v.validate.RegisterValidation("useremail", func(fl validator.FieldLevel) bool {
		return v.CheckEmail(fl.Field().String()) == nil
	})
	return v
}

// CheckUsername applies the length, reserved-name and charset rules in that order.
func (v *Validator) CheckUsername(username string) error {
	if username == "" {
		return errors.New("this field may not be blank")
	}
	if n := utf8.RuneCountInString(username); n > v.cfg.UsernameMaxLength {
		return fmt.Errorf("ensure this field has no more than %d characters", v.cfg.UsernameMaxLength)
	}
	if _, ok := v.reserved[username]; ok {
		return fmt.Errorf("'%s' cannot be used as a username", username)
	}
	if !v.cfg.UsernamePattern.MatchString(username) {
		if invalid := v.invalidChars(username); invalid != "" {
			return fmt.Errorf("username may not contain the characters '%s'", invalid)
		}
		return errors.New("enter a valid username: letters, digits and @/./+/-/_ only")
	}
	return nil
}

// CheckEmail applies the length rule and email syntax.
func (v *Validator) CheckEmail(email string) error {
	if email == "" {
		return errors.New("this field may not be blank")
	}
	if n := utf8.RuneCountInString(email); n > v.cfg.EmailMaxLength {
		return fmt.Errorf("ensure this field has no more than %d characters", v.cfg.EmailMaxLength)
	}
	if err := v.validate.Var(email, "email"); err != nil {
		return errors.New("enter a valid email address")
	}
	return nil
}

// invalidChars lists, once each and in order of appearance, the characters the
// pattern rejects on their own.
func (v *Validator) invalidChars(s string) string {
	var b strings.Builder
	seen := map[rune]struct{}{}
	for _, r := range s {
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		if !v.cfg.UsernamePattern.MatchString(string(r)) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Struct validates s and converts failures into an *apperrors.ValidationError.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fmt.Errorf("failed to validate request: %w", err)
	}

	fields := make(map[string]string, len(validationErrors))
	for _, e := range validationErrors {
		if _, exists := fields[e.Field()]; exists {
			continue
		}
		fields[e.Field()] = v.message(e)
	}
	return &apperrors.ValidationError{Fields: fields}
}

func (v *Validator) message(e validator.FieldError) string {
	value := fmt.Sprint(e.Value())
	if rv := reflect.ValueOf(e.Value()); rv.Kind() == reflect.Ptr && !rv.IsNil() {
		value = fmt.Sprint(rv.Elem().Interface())
	}

	switch e.Tag() {
	case "required":
		return "this field is required"
	case "username":
		if err := v.CheckUsername(value); err != nil {
			return err.Error()
		}
	case "useremail":
		if err := v.CheckEmail(value); err != nil {
			return err.Error()
		}
	case "min", "gte":
		return fmt.Sprintf("ensure this value is greater than or equal to %s", e.Param())
	case "max", "lte":
		return fmt.Sprintf("ensure this value is less than or equal to %s", e.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", e.Param())
	}
	return fmt.Sprintf("failed on the '%s' rule", e.Tag())
}

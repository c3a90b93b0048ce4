package validation

import (
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	validatorv10 "github.com/go-playground/validator/v10"
)

// minNameLength is counted in characters after trimming.
const minNameLength = 2

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^\+?[1-9]\d{0,15}$`)
)

// Error is a failed validation naming every invalid field.
// Fields maps the JSON field name to a human readable message.
type Error struct {
	Fields map[string]string
}

func (e *Error) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Sprintf("validation failed: %s", strings.Join(names, ", "))
}

// Validator checks submissions. It is safe for concurrent use.
type Validator struct {
	v *validatorv10.Validate
}

// New returns a Validator with the RSVP rules registered.
func New() *Validator {
	v := validatorv10.New()

	// report errors under the JSON field names the client sent
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("rsvp_email", func(fl validatorv10.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("rsvp_phone", func(fl validatorv10.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})

	// name length and attendance presence depend on decoded state the
	// field tags cannot see.
	v.RegisterStructValidation(submitStructValidation, SubmitRequest{})

	return &Validator{v: v}
}

// Validate trims req in place and checks it. It returns nil or an *Error.
func (val *Validator) Validate(req *SubmitRequest) error {
	req.Trim()
	if err := val.v.Struct(req); err != nil {
		return toError(err)
	}
	return nil
}

func submitStructValidation(sl validatorv10.StructLevel) {
	req := sl.Current().Interface().(SubmitRequest)

	// an empty name is already reported by the required tag
	if req.Name != "" && utf8.RuneCountInString(req.Name) < minNameLength {
		sl.ReportError(req.Name, "name", "Name", "min", fmt.Sprint(minNameLength))
	}

	if !req.Attending.Valid {
		sl.ReportError(req.Attending, "attending", "Attending", "required", "")
	}

	if req.Attending.Value && req.Guests.Valid && req.Guests.Value < 1 {
		sl.ReportError(req.Guests, "guests", "Guests", "min", "1")
	}
}

func toError(err error) error {
	ve, ok := err.(validatorv10.ValidationErrors)
	if !ok {
		return err
	}
	out := &Error{Fields: make(map[string]string, len(ve))}
	for _, fe := range ve {
		field := fe.Field()
		if _, seen := out.Fields[field]; seen {
			continue
		}
		out.Fields[field] = message(field, fe.Tag())
	}
	return out
}

func message(field, tag string) string {
	switch field {
	case "name":
		if tag == "min" {
			return fmt.Sprintf("Name must be at least %d characters", minNameLength)
		}
		return "Name is required"
	case "email":
		if tag == "required" {
			return "Email is required"
		}
		return "Please enter a valid email address"
	case "attending":
		return "Please let us know if you'll be attending"
	case "phone":
		return "Please enter a valid phone number"
	case "guests":
		return "Number of guests must be at least 1"
	}
	return fmt.Sprintf("%s failed the %q rule", field, tag)
}

package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/frahmantamala/timesheet-invoicing/internal"
	"github.com/frahmantamala/timesheet-invoicing/internal/calendar"
)

var (
	once     sync.Once
	validate *validator.Validate
)

// Validator returns the shared validator. Field names in errors follow the
// json tags, and two extra tags are available: localdate (YYYY-MM-DD) and
// clock (HH:MM).
func Validator() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return fld.Name
			}
			return name
		})
		_ = validate.RegisterValidation("localdate", func(fl validator.FieldLevel) bool {
			_, err := calendar.ParseLocalDate(fl.Field().String())
			return err == nil
		})
		_ = validate.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
			_, err := ParseClock(fl.Field().String())
			return err == nil
		})
	})
	return validate
}

// Struct validates v and maps failures onto a VALIDATION_FAILED AppError
// with one detail per field.
func Struct(v interface{}) error {
	err := Validator().Struct(v)
	if err == nil {
		return nil
	}
	return MapError(err)
}

func Var(field string, value interface{}, tag string) error {
	err := Validator().Var(value, tag)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make([]apperrors.ValidationError, 0, len(verrs))
		for _, fe := range verrs {
			out = append(out, apperrors.ValidationError{
				Field:   field,
				Message: message(field, fe),
				Code:    string(code(fe)),
			})
		}
		return apperrors.NewValidationFieldErrors(out)
	}
	return apperrors.NewValidationError(err.Error(), apperrors.ErrCodeValidationFailed)
}

func MapError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.NewValidationError("invalid input", apperrors.ErrCodeValidationFailed)
	}
	out := make([]apperrors.ValidationError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, apperrors.ValidationError{
			Field:   fe.Field(),
			Message: message(fe.Field(), fe),
			Code:    string(code(fe)),
		})
	}
	return apperrors.NewValidationFieldErrors(out)
}

func code(fe validator.FieldError) apperrors.ErrorCode {
	switch fe.Tag() {
	case "localdate":
		return apperrors.ErrCodeInvalidDate
	case "gt", "gte", "min", "max", "lte", "lt":
		if fe.Kind() == reflect.String {
			return apperrors.ErrCodeValidationFailed
		}
		return apperrors.ErrCodeInvalidAmount
	}
	return apperrors.ErrCodeValidationFailed
}

func message(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "localdate":
		return fmt.Sprintf("%s must be a date in YYYY-MM-DD format", field)
	case "clock":
		return fmt.Sprintf("%s must be a time in HH:MM format", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte", "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "lte", "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	}
	return fmt.Sprintf("%s is invalid", field)
}

// ParseClock parses HH:MM into minutes after midnight. 24:00 is accepted
// as end of day.
func ParseClock(s string) (int, error) {
	s = strings.TrimSpace(s)
	if len(s) == 8 && s[5] == ':' {
		s = s[:5]
	}
	if len(s) != 5 || s[2] != ':' {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	h, m := 0, 0
	for i, r := range s {
		if i == 2 {
			continue
		}
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("invalid time %q", s)
		}
		if i < 2 {
			h = h*10 + int(r-'0')
		} else {
			m = m*10 + int(r-'0')
		}
	}
	if m > 59 || h > 24 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	return h*60 + m, nil
}

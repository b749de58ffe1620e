package api

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// getValidator returns the shared validator. Field names in errors are the
// JSON names.
func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = validate.RegisterValidation("whole", isWhole)
	})
	return validate
}

// isWhole accepts finite numbers without a fractional part.
func isWhole(fl validator.FieldLevel) bool {
	switch f := fl.Field(); f.Kind() {
	case reflect.Float32, reflect.Float64:
		v := f.Float()
		return !math.IsInf(v, 0) && v == math.Trunc(v)
	default:
		return true
	}
}

// validateRequest checks v and reports which fields are missing. A missing
// required field yields ErrMissingField; anything else ErrInvalidInput.
func validateRequest(v any) error {
	err := getValidator().Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	missing := make([]string, 0, len(verrs))
	other := make([]string, 0)
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			missing = append(missing, fe.Namespace())
			continue
		}
		switch fe.Tag() {
		case "whole":
			other = append(other, fmt.Sprintf("%s must be a whole number", fe.Namespace()))
		default:
			other = append(other, fmt.Sprintf("%s failed %s=%s", fe.Namespace(), fe.Tag(), fe.Param()))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w (%s)", ErrMissingField, strings.Join(missing, ", "))
	}
	return fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(other, "; "))
}

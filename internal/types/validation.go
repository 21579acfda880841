package types

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Coordinate bounds for hub locations.
const (
	MinLat = -90.0
	MaxLat = 90.0
	MinLon = -180.0
	MaxLon = 180.0
)

var hubCodeRe = regexp.MustCompile(`^[A-Z]{3}$`)

// IsHubCode reports whether s is a three-letter uppercase airport code.
func IsHubCode(s string) bool {
	return hubCodeRe.MatchString(s)
}

// ParseHubCode normalizes a hub code from user input.
func ParseHubCode(s string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(s))
	if !IsHubCode(code) {
		return "", NewAppError(ErrCodeValidationInvalidHub, fmt.Sprintf("%q is not a three-letter airport code", s), nil)
	}
	return code, nil
}

// ParseRequestDate parses a YYYY-MM-DD query or path value.
func ParseRequestDate(s string) (Date, error) {
	d, err := ParseDate(s)
	if err != nil {
		return Date{}, NewAppError(ErrCodeValidationInvalidDate, fmt.Sprintf("%q is not a YYYY-MM-DD date", s), err)
	}
	return d, nil
}

// RegisterValidators adds the hub-specific tags ("iata", "tzname") to v.
func RegisterValidators(v *validator.Validate) error {
	if err := v.RegisterValidation("iata", func(fl validator.FieldLevel) bool {
		return IsHubCode(fl.Field().String())
	}); err != nil {
		return err
	}
	return v.RegisterValidation("tzname", func(fl validator.FieldLevel) bool {
		name := fl.Field().String()
		if name == "" {
			return false
		}
		_, err := time.LoadLocation(name)
		return err == nil
	})
}

package core

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"hubwatch/internal/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testHubDateRequest struct {
	Code string `validate:"required,iata"`
	Date string `validate:"omitempty,datetime=2006-01-02"`
}

type testTimezoneStruct struct {
	Timezone string `validate:"tzname"`
}

func TestValidator_ValidateStruct(t *testing.T) {
	v, err := NewValidator(testLogger())
	if err != nil {
		t.Fatalf("NewValidator: %v", err)
	}

	tests := []struct {
		name     string
		input    any
		wantCode types.ErrorCode
	}{
		{"valid without date", testHubDateRequest{Code: "CLT"}, ""},
		{"valid with date", testHubDateRequest{Code: "DFW", Date: "2026-06-10"}, ""},
		{"missing code", testHubDateRequest{}, types.ErrCodeValidationMissingField},
		{"lowercase code", testHubDateRequest{Code: "clt"}, types.ErrCodeValidationInvalidHub},
		{"four letters", testHubDateRequest{Code: "KCLT"}, types.ErrCodeValidationInvalidHub},
		{"bad date", testHubDateRequest{Code: "CLT", Date: "06/10/2026"}, types.ErrCodeValidationInvalidDate},
		{"impossible date", testHubDateRequest{Code: "CLT", Date: "2026-02-30"}, types.ErrCodeValidationInvalidDate},
		{"known zone", testTimezoneStruct{Timezone: "America/Chicago"}, ""},
		{"unknown zone", testTimezoneStruct{Timezone: "Mars/Olympus"}, types.ErrCodeValidationMissingField},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := v.ValidateStruct(tc.input)
			if got := types.CodeOf(err); got != tc.wantCode {
				t.Errorf("code = %q, want %q (err: %v)", got, tc.wantCode, err)
			}
		})
	}
}

func TestValidator_DetailsNameField(t *testing.T) {
	v, err := NewValidator(testLogger())
	if err != nil {
		t.Fatalf("NewValidator: %v", err)
	}

	err = v.ValidateStruct(testHubDateRequest{Code: "CLT", Date: "tomorrow"})
	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected AppError, got %T", err)
	}
	if appErr.Details["field"] != "Date" || appErr.Details["rule"] != "datetime" {
		t.Errorf("details = %v", appErr.Details)
	}
}

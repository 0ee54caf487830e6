package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// FieldError describes one rejected request field.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// DecodeJSON decodes the request body into dst and runs struct validation.
// Failures come back as validation AppErrors listing the offending fields.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return Validation("BAD_REQUEST", "request body is required")
		}
		return Validation("BAD_REQUEST", fmt.Sprintf("invalid payload: %v", err))
	}
	return ValidateStruct(dst)
}

// ValidateStruct runs the `validate` tags on v.
func ValidateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return Validation("BAD_REQUEST", err.Error())
	}
	fields := make([]FieldError, 0, len(verrs))
	names := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, FieldError{Field: fe.Namespace(), Rule: fe.Tag()})
		names = append(names, fe.Field())
	}
	return Validation("VALIDATION_FAILED", "invalid fields: "+strings.Join(names, ", ")).WithDetails(map[string]any{"fields": fields})
}

package shared

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// validate is the shared validator instance for request payloads.
var validate = validator.New()

// DecodeJSON decodes the request body into the given destination struct.
// Unknown fields are rejected so that client typos surface as errors
// instead of silently dropped settings.
func DecodeJSON(r *http.Request, dst interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

// ValidateRequest runs struct-tag validation on a decoded request payload.
func ValidateRequest(payload interface{}) error {
	return validate.Struct(payload)
}

package coordinator

import (
	"reflect"

	"github.com/go-playground/validator/v10"
)

// validate is shared across all Client instances; *validator.Validate
// caches struct type metadata internally and is safe for concurrent use.
var validate = validator.New()

// Validate runs struct-tag validation (job envelopes, batch results) over
// doc. Patch bodies built as map[string]interface{} have no struct tags to
// check and pass through unvalidated; only a struct (or pointer to one)
// is actually validated.
func Validate(doc interface{}) error {
	if doc == nil {
		return nil
	}
	v := reflect.ValueOf(doc)
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil
	}
	if err := validate.Struct(v.Interface()); err != nil {
		return &ValidationError{Err: err}
	}
	return nil
}

// ValidationError wraps a go-playground/validator failure into the
// coordinator's error surface.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return "coordinator: validation failed: " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error { return e.Err }

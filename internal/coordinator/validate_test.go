package coordinator

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

type validatedDoc struct {
	ID string `validate:"required"`
}

func TestValidatePassesWellFormedStruct(t *testing.T) {
	if err := Validate(validatedDoc{ID: "a"}); err != nil {
		t.Fatalf("Validate() error = %v, want nil", err)
	}
}

func TestValidateRejectsMissingRequiredField(t *testing.T) {
	err := Validate(validatedDoc{})
	if err == nil {
		t.Fatal("Validate() = nil, want an error for a missing required field")
	}
	var ve *ValidationError
	if !asValidationError(err, &ve) {
		t.Fatalf("expected *ValidationError, got %T: %v", err, err)
	}
}

func TestValidateIgnoresMapPatches(t *testing.T) {
	if err := Validate(map[string]interface{}{"claimed_by": "w-1"}); err != nil {
		t.Fatalf("Validate() on a map patch should pass through unchecked, got %v", err)
	}
}

func TestValidateIgnoresNil(t *testing.T) {
	if err := Validate(nil); err != nil {
		t.Fatalf("Validate(nil) = %v, want nil", err)
	}
}

func TestCreateRejectsInvalidDocBeforeSendingRequest(t *testing.T) {
	called := false
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})

	err := c.Create(context.Background(), "widgets", validatedDoc{}, "", "", nil, nil)
	if err == nil {
		t.Fatal("Create() with an invalid doc should fail validation")
	}
	if called {
		t.Fatal("Create() must not issue the HTTP request when validation fails")
	}
}

func TestCreateSendsRequestForValidDoc(t *testing.T) {
	called := false
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusCreated)
	})

	if err := c.Create(context.Background(), "widgets", validatedDoc{ID: "a"}, "", "", nil, nil); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if !called {
		t.Fatal("Create() with a valid doc should issue the HTTP request")
	}
}

func asValidationError(err error, target **ValidationError) bool {
	ve, ok := err.(*ValidationError)
	if !ok {
		return false
	}
	*target = ve
	return true
}

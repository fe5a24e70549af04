package validator

import (
	"testing"

	"github.com/go-playground/validator/v10"
)

type testPayload struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Age      int    `json:"age" validate:"gte=18"`
}

func TestValidateStructSuccess(t *testing.T) {
	payload := testPayload{
		Username: "alice",
		Email:    "alice@example.com",
		Age:      20,
	}

	if err := ValidateStruct(payload); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestValidateStructFailures(t *testing.T) {
	payload := testPayload{
		Username: "",
		Email:    "invalid",
		Age:      10,
	}

	err := ValidateStruct(payload)
	if err == nil {
		t.Fatal("expected validation error")
	}

	vErrs, ok := err.(ValidationErrors)
	if !ok {
		t.Fatalf("expected ValidationErrors, got %T", err)
	}

	if len(vErrs) != 3 {
		t.Fatalf("expected 3 validation errors, got %d", len(vErrs))
	}

	foundEmail := false
	for _, v := range vErrs {
		if v.Field == "email" {
			foundEmail = true
		}
	}

	if !foundEmail {
		t.Fatal("expected email field to be present in validation errors")
	}
}

func TestRegisterValidation(t *testing.T) {
	err := RegisterValidation("halal", func(fl validator.FieldLevel) bool {
		return fl.Field().String() == "halal"
	})
	if err != nil {
		t.Fatalf("register validation: %v", err)
	}

	type custom struct {
		Value string `validate:"halal"`
	}

	if err := ValidateStruct(custom{Value: "halal"}); err != nil {
		t.Fatalf("expected validation to pass, got %v", err)
	}
	if err := ValidateStruct(custom{Value: "other"}); err == nil {
		t.Fatal("expected validation to fail for non-matching value")
	}
}

func TestBuiltInTimeOfDayAndSlugRules(t *testing.T) {
	type slot struct {
		Start string `json:"start_time" validate:"hhmm"`
		Slug  string `json:"slug" validate:"omitempty,slug"`
	}

	if err := ValidateStruct(slot{Start: "09:30", Slug: "web-design"}); err != nil {
		t.Fatalf("expected valid slot, got %v", err)
	}

	err := ValidateStruct(slot{Start: "24:00", Slug: "Web Design"})
	vErrs, ok := err.(ValidationErrors)
	if !ok || len(vErrs) != 2 {
		t.Fatalf("expected two validation errors, got %v", err)
	}
	fields := vErrs.Fields()
	if fields["start_time"] != "must be a time of day formatted HH:MM" {
		t.Fatalf("unexpected message: %q", fields["start_time"])
	}
}

func TestNestedFieldPaths(t *testing.T) {
	type skill struct {
		Name string `json:"skill_name" validate:"required"`
	}
	type payload struct {
		Skills []skill `json:"skills" validate:"dive"`
	}

	err := ValidateStruct(payload{Skills: []skill{{Name: "go"}, {}}})
	vErrs, ok := err.(ValidationErrors)
	if !ok || len(vErrs) != 1 {
		t.Fatalf("expected one validation error, got %v", err)
	}
	if vErrs[0].Field != "skills[1].skill_name" {
		t.Fatalf("unexpected field path %q", vErrs[0].Field)
	}
}

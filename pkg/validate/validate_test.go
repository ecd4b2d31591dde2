package validate_test

import (
	"testing"

	"github.com/sesamoshop/tienda/pkg/validate"
)

type productInput struct {
	Name        string  `json:"name"        validate:"required,max=200"`
	Category    string  `json:"category"    validate:"required,max=100"`
	Price       float64 `json:"price"       validate:"numeric,gte=0"`
	Stock       int     `json:"stock"       validate:"numeric,gte=0"`
	Description string  `json:"description" validate:"nullable,max=2000"`
	Status      string  `json:"status"      validate:"nullable,in=active,inactive"`
}

func TestValidInput(t *testing.T) {
	errs := validate.Struct(&productInput{
		Name:     "Camiseta blanca",
		Category: "Camisetas",
		Price:    19.9,
		Stock:    5,
		Status:   "active",
	})
	if validate.HasErrors(errs) {
		t.Errorf("expected no errors, got: %v", errs)
	}
}

func TestRequiredFails(t *testing.T) {
	errs := validate.Struct(&productInput{})
	if !validate.HasErrors(errs) {
		t.Fatal("expected required errors")
	}
	if _, ok := errs["name"]; !ok {
		t.Error("expected name to be required")
	}
	if _, ok := errs["category"]; !ok {
		t.Error("expected category to be required")
	}
}

func TestNullableSkipsEmpty(t *testing.T) {
	errs := validate.Struct(&productInput{Name: "x", Category: "y"})
	if _, ok := errs["status"]; ok {
		t.Error("empty nullable status must not fail the in rule")
	}
	if _, ok := errs["description"]; ok {
		t.Error("empty nullable description must pass")
	}
}

func TestInRule(t *testing.T) {
	errs := validate.Struct(&productInput{Name: "x", Category: "y", Status: "archived"})
	if _, ok := errs["status"]; !ok {
		t.Error("expected status outside the enum to fail")
	}
	errs = validate.Struct(&productInput{Name: "x", Category: "y", Status: "inactive"})
	if _, ok := errs["status"]; ok {
		t.Errorf("expected inactive to pass, got: %v", errs["status"])
	}
}

func TestMaxOnStrings(t *testing.T) {
	long := make([]byte, 201)
	for i := range long {
		long[i] = 'a'
	}
	errs := validate.Struct(&productInput{Name: string(long), Category: "y"})
	if _, ok := errs["name"]; !ok {
		t.Error("expected name over 200 chars to fail")
	}
}

func TestGteOnNumbers(t *testing.T) {
	errs := validate.Struct(&productInput{Name: "x", Category: "y", Price: -1})
	if _, ok := errs["price"]; !ok {
		t.Error("expected negative price to fail")
	}
}

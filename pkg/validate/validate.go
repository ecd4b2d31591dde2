// Package validate provides struct-tag validation with Laravel-style
// messages.
//
// Supported rules (comma-separated in the `validate` tag):
//
//	required            field must not be zero/empty
//	nullable            if empty, skip all remaining rules for this field
//	numeric             any number
//	boolean             "true","false","1","0" (or an actual bool)
//	min=N               string length / numeric value at least N
//	max=N               string length / numeric value at most N
//	gte=N / lte=N       numeric comparison
//	in=a,b,c            value must be one of the listed options
//
// Usage:
//
//	type CategoryInput struct {
//	    Name string `json:"name" validate:"required,max=100"`
//	}
//
//	errs := validate.Struct(&input)
//	if validate.HasErrors(errs) { ... }
package validate

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Struct validates every exported field of a struct pointer against its
// `validate` tag. Returns a map of json field name → first error message.
func Struct(dest interface{}) map[string]string {
	errs := map[string]string{}

	v := reflect.ValueOf(dest)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return errs
	}

	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := f.Tag.Get("validate")
		if tag == "" || !f.IsExported() {
			continue
		}

		field := jsonFieldName(f)
		value := v.Field(i)

		for _, rule := range splitRules(tag) {
			if rule == "nullable" && isEmpty(value) {
				break // empty nullable field: skip remaining rules
			}
			if msg := applyRule(rule, field, value); msg != "" {
				errs[field] = msg
				break
			}
		}
	}

	return errs
}

// HasErrors reports whether the map returned by Struct contains failures.
func HasErrors(errs map[string]string) bool { return len(errs) > 0 }

func applyRule(rule, field string, value reflect.Value) string {
	name, param := rule, ""
	if idx := strings.IndexByte(rule, '='); idx != -1 {
		name, param = rule[:idx], rule[idx+1:]
	}

	raw := fmt.Sprintf("%v", value.Interface())

	switch name {
	case "nullable":
		return ""

	case "required":
		if isEmpty(value) {
			return fmt.Sprintf("The %s field is required.", field)
		}

	case "numeric":
		if !isNumericKind(value) {
			if _, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err != nil {
				return fmt.Sprintf("The %s must be a number.", field)
			}
		}

	case "boolean":
		if value.Kind() == reflect.Bool {
			return ""
		}
		switch strings.ToLower(raw) {
		case "true", "false", "1", "0":
		default:
			return fmt.Sprintf("The %s field must be true or false.", field)
		}

	case "min":
		n := mustParseFloat(param)
		if isNumericKind(value) {
			if toFloat(value) < n {
				return fmt.Sprintf("The %s must be at least %s.", field, param)
			}
		} else if float64(len(raw)) < n {
			return fmt.Sprintf("The %s must be at least %s characters.", field, param)
		}

	case "max":
		n := mustParseFloat(param)
		if isNumericKind(value) {
			if toFloat(value) > n {
				return fmt.Sprintf("The %s may not be greater than %s.", field, param)
			}
		} else if float64(len(raw)) > n {
			return fmt.Sprintf("The %s may not be greater than %s characters.", field, param)
		}

	case "gte":
		if toFloat(value) < mustParseFloat(param) {
			return fmt.Sprintf("The %s must be greater than or equal to %s.", field, param)
		}

	case "lte":
		if toFloat(value) > mustParseFloat(param) {
			return fmt.Sprintf("The %s must be less than or equal to %s.", field, param)
		}

	case "in":
		for _, a := range strings.Split(param, ",") {
			if raw == strings.TrimSpace(a) {
				return ""
			}
		}
		return fmt.Sprintf("The selected %s is invalid.", field)
	}

	return ""
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func isEmpty(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.String:
		return strings.TrimSpace(v.String()) == ""
	case reflect.Slice, reflect.Map, reflect.Array:
		return v.Len() == 0
	case reflect.Ptr, reflect.Interface:
		return v.IsNil()
	case reflect.Bool:
		return false // false is a valid boolean value, not empty
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	}
	return false
}

func isNumericKind(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func toFloat(v reflect.Value) float64 {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint())
	case reflect.Float32, reflect.Float64:
		return v.Float()
	}
	f, _ := strconv.ParseFloat(fmt.Sprintf("%v", v.Interface()), 64)
	return f
}

func mustParseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f
}

func jsonFieldName(f reflect.StructField) string {
	name := f.Tag.Get("json")
	if name == "" || name == "-" {
		return strings.ToLower(f.Name)
	}
	if idx := strings.Index(name, ","); idx != -1 {
		name = name[:idx]
	}
	return name
}

// splitRules splits the validate tag by comma while keeping in= parameter
// lists intact, e.g. "required,in=active,inactive" →
// ["required","in=active,inactive"].
func splitRules(tag string) []string {
	var rules []string
	var current strings.Builder
	inParam := false

	for i := 0; i < len(tag); i++ {
		ch := tag[i]
		if ch == ',' {
			if inParam && !looksLikeNewRule(tag[i+1:]) {
				current.WriteByte(ch)
				continue
			}
			rules = append(rules, current.String())
			current.Reset()
			inParam = false
			continue
		}
		current.WriteByte(ch)
		if !inParam && strings.HasSuffix(current.String(), "in=") {
			inParam = true
		}
	}
	if current.Len() > 0 {
		rules = append(rules, current.String())
	}
	return rules
}

func looksLikeNewRule(s string) bool {
	known := []string{
		"required", "nullable", "numeric", "boolean",
		"min=", "max=", "gte=", "lte=", "in=",
	}
	for _, k := range known {
		if strings.HasPrefix(s, k) {
			return true
		}
	}
	return false
}

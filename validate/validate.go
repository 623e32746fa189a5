// validate/validate.go
// Package validate provides struct validation using struct tags, producing
// field-level error messages suitable for returning to a form.
//
//	type FormInput struct {
//	    Name  string `validate:"required,min=2,max=100"`
//	    Email string `validate:"required,email"`
//	}
//
//	if errs := validate.Struct(in); errs != nil {
//	    for _, e := range errs {
//	        fmt.Printf("%s: %s\n", e.Field, e.Message)
//	    }
//	}
package validate

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Error is a validation failure on one field.
type Error struct {
	Field   string `json:"field"`
	Rule    string `json:"-"`
	Message string `json:"message"`
}

func (e *Error) Error() string { return e.Field + ": " + e.Message }

// Errors is a collection of field errors. A nil/empty Errors means valid.
type Errors []*Error

func (e Errors) Error() string {
	if len(e) == 0 {
		return ""
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// ToMap converts errors to a field → messages map.
func (e Errors) ToMap() map[string][]string {
	m := make(map[string][]string, len(e))
	for _, err := range e {
		m[err.Field] = append(m[err.Field], err.Message)
	}
	return m
}

// RuleFunc checks a value against a rule parameter. It returns a failure
// message, or "" if the value is valid.
type RuleFunc func(value any, param string) string

// Validator validates struct fields using "validate" tags.
type Validator struct {
	rules map[string]RuleFunc
}

// New creates a validator with the built-in rules registered.
func New() *Validator {
	v := &Validator{rules: make(map[string]RuleFunc)}
	v.rules["required"] = ruleRequired
	v.rules["email"] = ruleEmail
	v.rules["min"] = ruleMin
	v.rules["max"] = ruleMax
	v.rules["oneof"] = ruleOneOf
	return v
}

// RegisterRule adds or replaces a rule.
func (v *Validator) RegisterRule(name string, fn RuleFunc) {
	v.rules[name] = fn
}

// Struct validates s (a struct or pointer to struct) and returns the field
// errors, or nil when everything passes.
func (v *Validator) Struct(s any) Errors {
	val := reflect.ValueOf(s)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return Errors{{Field: "", Message: fmt.Sprintf("expected struct, got %s", val.Kind())}}
	}

	var errs Errors
	typ := val.Type()
	for i := 0; i < val.NumField(); i++ {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}
		tag := field.Tag.Get("validate")
		if tag == "" || tag == "-" {
			continue
		}

		name := fieldName(field)
		value := val.Field(i).Interface()

		for _, r := range parseTag(tag) {
			fn, ok := v.rules[r.name]
			if !ok {
				continue
			}
			if msg := fn(value, r.param); msg != "" {
				errs = append(errs, &Error{Field: name, Rule: r.name, Message: msg})
			}
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Default validator instance.
var defaultValidator = New()

// Struct validates a struct using the default validator.
func Struct(s any) Errors { return defaultValidator.Struct(s) }

// fieldName prefers the json tag name so error fields line up with the
// wire representation.
func fieldName(f reflect.StructField) string {
	if jsonTag := f.Tag.Get("json"); jsonTag != "" {
		if name := strings.Split(jsonTag, ",")[0]; name != "" && name != "-" {
			return name
		}
	}
	return f.Name
}

type rule struct {
	name  string
	param string
}

// parseTag splits "required,min=2,oneof=a b c" into rules. Only the first
// '=' separates name and param, so oneof params may contain spaces.
func parseTag(tag string) []rule {
	var rules []rule
	for _, part := range strings.Split(tag, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		r := rule{name: part}
		if idx := strings.Index(part, "="); idx != -1 {
			r.name = part[:idx]
			r.param = part[idx+1:]
		}
		rules = append(rules, r)
	}
	return rules
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

func ruleRequired(value any, _ string) string {
	if toString(value) == "" {
		return "is required"
	}
	return ""
}

func ruleEmail(value any, _ string) string {
	s := strings.TrimSpace(toString(value))
	if s == "" {
		return "" // required handles empties
	}
	if !emailRegex.MatchString(s) {
		return "must be a valid email address"
	}
	return ""
}

func ruleMin(value any, param string) string {
	n, err := strconv.Atoi(param)
	if err != nil {
		return ""
	}
	s := toString(value)
	if s == "" {
		return ""
	}
	if utf8.RuneCountInString(s) < n {
		return fmt.Sprintf("must be at least %d characters", n)
	}
	return ""
}

func ruleMax(value any, param string) string {
	n, err := strconv.Atoi(param)
	if err != nil {
		return ""
	}
	if utf8.RuneCountInString(toString(value)) > n {
		return fmt.Sprintf("must be at most %d characters", n)
	}
	return ""
}

func ruleOneOf(value any, param string) string {
	s := toString(value)
	if s == "" {
		return ""
	}
	for _, opt := range strings.Fields(param) {
		if s == opt {
			return ""
		}
	}
	return "must be one of: " + strings.Join(strings.Fields(param), ", ")
}

// toString converts string-kind values (including named string types) to
// string; everything else formats via %v.
func toString(v any) string {
	if v == nil {
		return ""
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.String {
		return rv.String()
	}
	return fmt.Sprintf("%v", v)
}

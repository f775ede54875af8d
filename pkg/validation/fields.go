// Package validation provides field-level checks with go-playground/validator integration
package validation

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/flowdeck/flowdeck/internal/core/flow"
)

// Validate is the shared validator instance with flow-specific rules.
var Validate *validator.Validate

var (
	stepIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	semverPattern = regexp.MustCompile(`^(\d+)\.(\d+)\.(\d+)(-[\w.-]+)?(\+[\w.-]+)?$`)
)

func init() {
	Validate = validator.New()

	Validate.RegisterValidation("step_id", validateStepID)
	Validate.RegisterValidation("semver", validateSemVer)

	// Use JSON tags for field names in messages.
	Validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
}

// ValidateFields runs field-level validation over a flow definition and
// reports problems as InvariantFields violations. Like ValidateFlow it
// never returns an error; malformed definitions are data, not faults.
func ValidateFields(f *flow.Flow) []Violation {
	if f == nil {
		return []Violation{{Invariant: InvariantFields, Message: "flow is nil"}}
	}

	var violations []Violation
	if err := Validate.Struct(f); err != nil {
		if fieldErrors, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range fieldErrors {
				violations = append(violations, Violation{
					FlowID:    f.ID,
					Invariant: InvariantFields,
					Message:   fmt.Sprintf("%s: %s", fe.Field(), fieldMessage(fe)),
				})
			}
		} else {
			violations = append(violations, Violation{
				FlowID:    f.ID,
				Invariant: InvariantFields,
				Message:   err.Error(),
			})
		}
	}

	// Kind membership is a closed set; validator tags cannot express it
	// without stringly duplication, so check it directly.
	for _, s := range f.Steps {
		if s != nil && !s.Kind.Valid() {
			violations = append(violations, Violation{
				FlowID:    f.ID,
				Invariant: InvariantFields,
				Message:   fmt.Sprintf("step %q has unknown kind %q", s.ID, s.Kind),
			})
		}
	}
	return violations
}

// fieldMessage returns a human-readable message for a field error.
func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "field is required"
	case "min":
		return fmt.Sprintf("minimum value/length is %s", fe.Param())
	case "max":
		return fmt.Sprintf("maximum value/length is %s", fe.Param())
	case "step_id":
		return "must be alphanumeric with underscores and hyphens"
	case "semver":
		return "must be a semantic version (e.g. 1.0.0)"
	default:
		return fmt.Sprintf("validation failed: %s", fe.Tag())
	}
}

// validateStepID validates step/flow identifier format.
func validateStepID(fl validator.FieldLevel) bool {
	id := fl.Field().String()
	return id != "" && len(id) <= 100 && stepIDPattern.MatchString(id)
}

// validateSemVer validates semantic version format (simplified).
func validateSemVer(fl validator.FieldLevel) bool {
	return semverPattern.MatchString(fl.Field().String())
}

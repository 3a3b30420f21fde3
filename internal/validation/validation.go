// Package validation checks entities against their schema constraints before
// anything is persisted.
package validation

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/RealZimboGuy/flowstudio/pkg/flowstudio/domain"
	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterStructValidation(workflowStructLevel, domain.Workflow{})
	return v
}

// FieldError describes one failed constraint.
type FieldError struct {
	Field      string `json:"field"`
	Constraint string `json:"constraint"`
}

// ValidationError lists every field that failed validation.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Constraint)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ValidateEntity validates any tagged struct, returning a *ValidationError on
// constraint failures.
func ValidateEntity(entity any) error {
	err := validate.Struct(entity)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &ValidationError{Fields: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		constraint := fe.Tag()
		if fe.Param() != "" {
			constraint += "=" + fe.Param()
		}
		out.Fields = append(out.Fields, FieldError{Field: fieldPath(fe.Namespace()), Constraint: constraint})
	}
	return out
}

// fieldPath drops the root struct name: "Workflow.Nodes[0].Type" -> "nodes[0].type".
func fieldPath(namespace string) string {
	if i := strings.Index(namespace, "."); i >= 0 {
		namespace = namespace[i+1:]
	}
	segments := strings.Split(namespace, ".")
	for i, s := range segments {
		if s != "" {
			segments[i] = strings.ToLower(s[:1]) + s[1:]
		}
	}
	return strings.Join(segments, ".")
}

// workflowStructLevel enforces unique node names and that every pinned data
// key names an existing node.
func workflowStructLevel(sl validator.StructLevel) {
	wf := sl.Current().Interface().(domain.Workflow)

	seen := make(map[string]struct{}, len(wf.Nodes))
	for i, n := range wf.Nodes {
		if n.Name == "" {
			continue
		}
		if _, dup := seen[n.Name]; dup {
			sl.ReportError(n.Name, fmt.Sprintf("Nodes[%d].Name", i), "Name", "unique", "")
		}
		seen[n.Name] = struct{}{}
	}

	pinData, err := wf.ParsePinData()
	if err != nil {
		sl.ReportError(wf.PinData, "PinData", "PinData", "json", "")
		return
	}
	names := make([]string, 0, len(pinData))
	for name := range pinData {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, ok := seen[name]; !ok {
			sl.ReportError(name, "PinData", "PinData", "nodename", name)
		}
	}
}

package validation

import (
	"database/sql"
	"errors"
	"strings"
	"testing"

	"github.com/RealZimboGuy/flowstudio/pkg/flowstudio/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fieldsOf(t *testing.T, err error) []FieldError {
	t.Helper()
	require.Error(t, err)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "expected a validation error, got %v", err)
	return verr.Fields
}

func TestValidateEntity_ValidWorkflow(t *testing.T) {
	wf := &domain.Workflow{
		Name:    "ok",
		Nodes:   []domain.Node{{Name: "A", Type: "t"}, {Name: "B", Type: "t"}},
		PinData: sql.NullString{String: `{"A":[]}`, Valid: true},
	}
	assert.NoError(t, ValidateEntity(wf))
}

func TestValidateEntity_Name(t *testing.T) {
	fields := fieldsOf(t, ValidateEntity(&domain.Workflow{}))
	assert.Equal(t, []FieldError{{Field: "name", Constraint: "required"}}, fields)

	fields = fieldsOf(t, ValidateEntity(&domain.Workflow{Name: strings.Repeat("n", 129)}))
	assert.Equal(t, []FieldError{{Field: "name", Constraint: "max=128"}}, fields)
}

func TestValidateEntity_Nodes(t *testing.T) {
	wf := &domain.Workflow{
		Name:  "x",
		Nodes: []domain.Node{{Name: "A", Type: "t"}, {Name: "", Type: ""}, {Name: "A", Type: "t"}},
	}
	fields := fieldsOf(t, ValidateEntity(wf))
	assert.Contains(t, fields, FieldError{Field: "nodes[1].name", Constraint: "required"})
	assert.Contains(t, fields, FieldError{Field: "nodes[1].type", Constraint: "required"})
	assert.Contains(t, fields, FieldError{Field: "nodes[2].name", Constraint: "unique"})
}

func TestValidateEntity_PinDataKeys(t *testing.T) {
	wf := &domain.Workflow{
		Name:    "x",
		Nodes:   []domain.Node{{Name: "A", Type: "t"}},
		PinData: sql.NullString{String: `{"Z":[],"A":[],"B":[]}`, Valid: true},
	}
	fields := fieldsOf(t, ValidateEntity(wf))
	assert.Equal(t, []FieldError{
		{Field: "pinData", Constraint: "nodename=B"},
		{Field: "pinData", Constraint: "nodename=Z"},
	}, fields)
}

func TestValidateEntity_Tag(t *testing.T) {
	assert.NoError(t, ValidateEntity(domain.Tag{Name: "ops"}))
	fields := fieldsOf(t, ValidateEntity(domain.Tag{Name: strings.Repeat("t", 25)}))
	assert.Equal(t, "name", fields[0].Field)
}

func TestIsValidationError(t *testing.T) {
	assert.True(t, IsValidationError(ValidateEntity(&domain.Workflow{})))
	assert.False(t, IsValidationError(errors.New("other")))
}

package domain

import (
	"database/sql"
	"encoding/json"
	"time"
)

// Workflow is the persisted workflow entity. PinData holds the serialized
// node-name -> pinned data mapping and is NULL when the mapping is empty.
type Workflow struct {
	ID          int64
	Name        string `validate:"required,max=128"`
	Active      bool
	Nodes       []Node `validate:"dive"`
	Connections map[string]any
	Settings    map[string]any
	StaticData  map[string]any
	PinData     sql.NullString
	Tags        []Tag
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// WorkflowFields are the caller supplied fields accepted by NewWorkflow.
type WorkflowFields struct {
	Name        string
	Active      bool
	Nodes       []Node
	Connections map[string]any
	Settings    map[string]any
	StaticData  map[string]any
	PinData     map[string]json.RawMessage
}

// NewWorkflow builds an unsaved workflow. The pinned data mapping is only
// serialized when it has entries.
func NewWorkflow(f WorkflowFields) (*Workflow, error) {
	wf := &Workflow{
		Name:        f.Name,
		Active:      f.Active,
		Nodes:       f.Nodes,
		Connections: f.Connections,
		Settings:    f.Settings,
		StaticData:  f.StaticData,
	}
	if wf.Nodes == nil {
		wf.Nodes = []Node{}
	}
	if wf.Connections == nil {
		wf.Connections = map[string]any{}
	}
	if len(f.PinData) > 0 {
		b, err := json.Marshal(f.PinData)
		if err != nil {
			return nil, err
		}
		wf.PinData = sql.NullString{String: string(b), Valid: true}
	}
	return wf, nil
}

// ParsePinData decodes the stored pinned data mapping. A NULL column yields nil.
func (w *Workflow) ParsePinData() (map[string]json.RawMessage, error) {
	if !w.PinData.Valid || w.PinData.String == "" || w.PinData.String == "null" {
		return nil, nil
	}
	pinData := make(map[string]json.RawMessage)
	if err := json.Unmarshal([]byte(w.PinData.String), &pinData); err != nil {
		return nil, err
	}
	return pinData, nil
}

// NodeNames returns the set of node names in the workflow.
func (w *Workflow) NodeNames() map[string]struct{} {
	names := make(map[string]struct{}, len(w.Nodes))
	for _, n := range w.Nodes {
		names[n.Name] = struct{}{}
	}
	return names
}

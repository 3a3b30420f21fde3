package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/RealZimboGuy/flowstudio/pkg/flowstudio/domain"
)

// CreateWorkflowRequest is the body of POST /api/workflows. Nodes are kept raw
// so that only top level keys are checked strictly; node keys without a Node
// field end up in Node.Extra. A client supplied id is
// accepted and ignored.
type CreateWorkflowRequest struct {
	ID          json.RawMessage   `json:"id,omitempty"`
	Name        string            `json:"name"`
	Nodes       []json.RawMessage `json:"nodes"`
	Connections map[string]any    `json:"connections"`
	Active      bool              `json:"active"`
	Settings    map[string]any    `json:"settings"`
	StaticData  map[string]any    `json:"staticData"`
	Tags        IDList            `json:"tags"`
}

// DecodeNodes parses the raw nodes of the request.
func (r CreateWorkflowRequest) DecodeNodes() ([]domain.Node, error) {
	nodes := make([]domain.Node, 0, len(r.Nodes))
	for i, raw := range r.Nodes {
		var n domain.Node
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, fmt.Errorf("nodes[%d]: %w", i, err)
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

// IDList decodes a list of ids given either as JSON numbers or numeric strings.
type IDList []int64

func (l *IDList) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*l = nil
		return nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	ids := make(IDList, 0, len(raw))
	for _, item := range raw {
		text := strings.Trim(string(item), `"`)
		id, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid id %s", string(item))
		}
		ids = append(ids, id)
	}
	*l = ids
	return nil
}

// WorkflowResponse is the API representation of a workflow. The id is
// serialized as a string.
type WorkflowResponse struct {
	ID          string                     `json:"id"`
	Name        string                     `json:"name"`
	Active      bool                       `json:"active"`
	Nodes       []domain.Node              `json:"nodes"`
	Connections map[string]any             `json:"connections"`
	Settings    map[string]any             `json:"settings"`
	StaticData  map[string]any             `json:"staticData"`
	PinData     map[string]json.RawMessage `json:"pinData,omitempty"`
	Tags        *[]domain.Tag              `json:"tags,omitempty"`
	CreatedAt   time.Time                  `json:"createdAt"`
	UpdatedAt   time.Time                  `json:"updatedAt"`
}

// NewWorkflowResponse maps a workflow to its response. With withTags the tags
// key is always present, as [] when the workflow has none. pinData is only set
// by the caller when the top level mapping should be exposed.
func NewWorkflowResponse(wf *domain.Workflow, withTags bool) WorkflowResponse {
	resp := WorkflowResponse{
		ID:          strconv.FormatInt(wf.ID, 10),
		Name:        wf.Name,
		Active:      wf.Active,
		Nodes:       wf.Nodes,
		Connections: wf.Connections,
		Settings:    wf.Settings,
		StaticData:  wf.StaticData,
		CreatedAt:   wf.CreatedAt,
		UpdatedAt:   wf.UpdatedAt,
	}
	if withTags {
		tags := wf.Tags
		if tags == nil {
			tags = []domain.Tag{}
		}
		resp.Tags = &tags
	}
	return resp
}

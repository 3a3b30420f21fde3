package domain

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Node is a single step of a workflow. PinData is never persisted on the node
// itself: it is moved to the workflow level mapping before saving and
// reattached on read. Keys without a field of their own are kept in Extra
// and written back unchanged.
type Node struct {
	ID          string                     `json:"id,omitempty"`
	Name        string                     `json:"name" validate:"required"`
	Type        string                     `json:"type" validate:"required"`
	TypeVersion float64                    `json:"typeVersion,omitempty"`
	Position    []float64                  `json:"position,omitempty"`
	Parameters  map[string]any             `json:"parameters"`
	Credentials map[string]CredentialRef   `json:"credentials,omitempty"`
	Disabled    bool                       `json:"disabled,omitempty"`
	PinData     json.RawMessage            `json:"pinData,omitempty"`
	Extra       map[string]json.RawMessage `json:"-"`
}

// nodeFields holds the lower-cased keys decoded into Node fields. encoding/json
// matches keys case-insensitively, so Extra must not repeat them.
var nodeFields = map[string]struct{}{
	"id": {}, "name": {}, "type": {}, "typeversion": {}, "position": {},
	"parameters": {}, "credentials": {}, "disabled": {}, "pindata": {},
}

func (n *Node) UnmarshalJSON(data []byte) error {
	type plain Node
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for key := range all {
		if _, known := nodeFields[strings.ToLower(key)]; known {
			delete(all, key)
		}
	}
	p.Extra = nil
	if len(all) > 0 {
		p.Extra = all
	}
	*n = Node(p)
	return nil
}

func (n Node) MarshalJSON() ([]byte, error) {
	type plain Node
	b, err := json.Marshal(plain(n))
	if err != nil || len(n.Extra) == 0 {
		return b, err
	}
	merged := make(map[string]json.RawMessage, len(n.Extra)+8)
	if err := json.Unmarshal(b, &merged); err != nil {
		return nil, err
	}
	for key, value := range n.Extra {
		if _, taken := merged[key]; !taken {
			merged[key] = value
		}
	}
	return json.Marshal(merged)
}

// HasPinData reports whether the node carries pinned data. An explicit null
// counts as none.
func (n Node) HasPinData() bool {
	return HasValue(n.PinData)
}

// HasValue reports whether raw holds a JSON value other than null.
func HasValue(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

// CredentialRef points a node at a stored credential. ID is nil when the
// reference could not be resolved.
type CredentialRef struct {
	ID   *string `json:"id"`
	Name string  `json:"name"`
}

// UnmarshalJSON also accepts the legacy form where the reference is only the
// credential name.
func (c *CredentialRef) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		c.ID = nil
		c.Name = name
		return nil
	}
	type plain CredentialRef
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*c = CredentialRef(p)
	return nil
}

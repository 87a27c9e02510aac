package services

import (
	"bytes"
	"encoding/json"
)

const (
	msgChecklistRequired   = "Pre-route checklist is required before starting the route"
	msgChecklistIncomplete = "All pre-route checklist items must be checked before starting"
)

// parseChecklist validates the submitted pre_route_checklist value and
// returns its items unchanged. Anything other than an object with an items
// array of objects counts as missing; a present but unchecked item fails
// with its own message.
func parseChecklist(raw json.RawMessage) ([]json.RawMessage, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, ValidationError(msgChecklistRequired)
	}

	var sub struct {
		Items json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal(raw, &sub); err != nil {
		return nil, ValidationError(msgChecklistRequired)
	}

	list := bytes.TrimSpace(sub.Items)
	if len(list) == 0 || list[0] != '[' {
		return nil, ValidationError(msgChecklistRequired)
	}

	var rawItems []json.RawMessage
	if err := json.Unmarshal(list, &rawItems); err != nil {
		return nil, ValidationError(msgChecklistRequired)
	}

	items := make([]json.RawMessage, 0, len(rawItems))
	allChecked := true
	for _, rawItem := range rawItems {
		trimmed := bytes.TrimSpace(rawItem)
		if len(trimmed) == 0 || trimmed[0] != '{' {
			return nil, ValidationError(msgChecklistRequired)
		}

		var item struct {
			Checked json.RawMessage `json:"checked"`
		}
		if err := json.Unmarshal(trimmed, &item); err != nil {
			return nil, ValidationError(msgChecklistRequired)
		}

		// Only a literal JSON true counts; "true", 1 and null do not
		if !bytes.Equal(bytes.TrimSpace(item.Checked), []byte("true")) {
			allChecked = false
		}
		items = append(items, append(json.RawMessage(nil), trimmed...))
	}

	if !allChecked {
		return nil, ValidationError(msgChecklistIncomplete)
	}
	return items, nil
}

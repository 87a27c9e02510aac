package services

import (
	"encoding/json"
	"testing"
)

func TestParseChecklist(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantErr   string
		wantItems int
	}{
		{name: "absent", raw: ``, wantErr: msgChecklistRequired},
		{name: "null", raw: `null`, wantErr: msgChecklistRequired},
		{name: "bare true", raw: `true`, wantErr: msgChecklistRequired},
		{name: "string", raw: `"yes"`, wantErr: msgChecklistRequired},
		{name: "bare array of items", raw: `[{"checked":true}]`, wantErr: msgChecklistRequired},
		{name: "missing items", raw: `{}`, wantErr: msgChecklistRequired},
		{name: "null items", raw: `{"items":null}`, wantErr: msgChecklistRequired},
		{name: "object instead of array", raw: `{"items":{"checked":true}}`, wantErr: msgChecklistRequired},
		{name: "string instead of array", raw: `{"items":"all good"}`, wantErr: msgChecklistRequired},
		{name: "non-object item", raw: `{"items":[true]}`, wantErr: msgChecklistRequired},
		{name: "unchecked item", raw: `{"items":[{"label":"Tyres","checked":false}]}`, wantErr: msgChecklistIncomplete},
		{name: "missing checked flag", raw: `{"items":[{"label":"Tyres"}]}`, wantErr: msgChecklistIncomplete},
		{name: "truthy but not true", raw: `{"items":[{"label":"Tyres","checked":1}]}`, wantErr: msgChecklistIncomplete},
		{name: "empty array", raw: `{"items":[]}`, wantItems: 0},
		{name: "all checked", raw: ` {"items": [{"label":"Tyres","checked":true},{"label":"Fuel","checked": true }]} `, wantItems: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := parseChecklist(json.RawMessage(tt.raw))
			if tt.wantErr != "" {
				expectKind(t, err, KindValidation, tt.wantErr)
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(items) != tt.wantItems {
				t.Fatalf("got %d items, want %d", len(items), tt.wantItems)
			}
		})
	}
}

func TestParseChecklistKeepsItemsVerbatim(t *testing.T) {
	raw := `{"items":[{"id":7,"label":"Tyres","checked":true,"note":"rear left worn","photo":{"url":"s3://a.jpg"}},{"checked":true,"category":"lights"}]}`

	items, err := parseChecklist(json.RawMessage(raw))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{
		`{"id":7,"label":"Tyres","checked":true,"note":"rear left worn","photo":{"url":"s3://a.jpg"}}`,
		`{"checked":true,"category":"lights"}`,
	}
	if len(items) != len(want) {
		t.Fatalf("got %d items, want %d", len(items), len(want))
	}
	for i := range want {
		if string(items[i]) != want[i] {
			t.Fatalf("item %d = %s, want %s", i, items[i], want[i])
		}
	}
}

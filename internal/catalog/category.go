package catalog

import (
	"encoding/json"
	"fmt"
)

// CategoryDocument is a parsed view over category projection content.
// Categories form an adjacency-list tree inside one store: the content
// carries a direct parent pointer and an ordered list of child codes.
// All other fields of the document are kept verbatim and re-emitted on
// Encode, so an edit to the children list never disturbs the rest of
// the body.
type CategoryDocument struct {
	doc map[string]json.RawMessage

	parent   string
	children []string
}

// ParseCategoryDocument decodes category projection content.
func ParseCategoryDocument(content []byte) (*CategoryDocument, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("parse category content: %w", err)
	}
	if doc == nil {
		doc = map[string]json.RawMessage{}
	}

	parsed := &CategoryDocument{doc: doc}

	if raw, ok := doc["parent"]; ok {
		if err := json.Unmarshal(raw, &parsed.parent); err != nil {
			return nil, fmt.Errorf("parse category parent: %w", err)
		}
	}
	if raw, ok := doc["children"]; ok {
		if err := json.Unmarshal(raw, &parsed.children); err != nil {
			return nil, fmt.Errorf("parse category children: %w", err)
		}
	}

	return parsed, nil
}

// Parent returns the direct parent category code, or "" for a root category.
func (d *CategoryDocument) Parent() string {
	return d.parent
}

// Children returns the ordered child codes.
func (d *CategoryDocument) Children() []string {
	return d.children
}

// RemoveChild removes code from the children list, preserving order.
// It reports whether the list actually changed.
func (d *CategoryDocument) RemoveChild(code string) bool {
	removed := false
	kept := d.children[:0]
	for _, child := range d.children {
		if child == code {
			removed = true
			continue
		}
		kept = append(kept, child)
	}
	d.children = kept
	return removed
}

// Encode re-serializes the document, including any unedited fields.
func (d *CategoryDocument) Encode() ([]byte, error) {
	children, err := json.Marshal(d.children)
	if err != nil {
		return nil, fmt.Errorf("encode category children: %w", err)
	}
	d.doc["children"] = children

	content, err := json.Marshal(d.doc)
	if err != nil {
		return nil, fmt.Errorf("encode category content: %w", err)
	}
	return content, nil
}

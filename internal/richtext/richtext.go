// Package richtext handles the serialized Quill delta documents used as
// message bodies. The server stores bodies opaquely but validates them and
// extracts plain text for search indexing.
package richtext

import (
	"encoding/json"
	"errors"
	"strings"
)

// delta is the subset of the Quill document format we care about.
type delta struct {
	Ops []op `json:"ops"`
}

type op struct {
	Insert json.RawMessage `json:"insert"`
}

var ErrInvalidBody = errors.New("body is not a valid rich-text document")

// Validate checks that body parses as a delta document with at least one op.
func Validate(body string) error {
	if strings.TrimSpace(body) == "" {
		return ErrInvalidBody
	}
	var doc delta
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return ErrInvalidBody
	}
	if len(doc.Ops) == 0 {
		return ErrInvalidBody
	}
	return nil
}

// Extract returns the plain text of a delta document. Non-text inserts
// (embeds) are skipped; whitespace is collapsed.
func Extract(body string) string {
	var doc delta
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return ""
	}

	var builder strings.Builder
	for _, o := range doc.Ops {
		var text string
		if err := json.Unmarshal(o.Insert, &text); err != nil {
			continue
		}
		builder.WriteString(text)
	}
	return strings.Join(strings.Fields(builder.String()), " ")
}

package gate

import (
	"regexp"
	"strings"

	"github.com/portal-dtwins/knowledge-gate/internal/store"
)

// Every material id carries a typed prefix; callers normalize free text to
// uppercase before matching.
var idPattern = regexp.MustCompile(`^(NODE|SRC|GRAPH|SCHEMA|GOLD)-[A-Z0-9-]+$`)

// idSearchPattern finds candidate ids embedded in free text
var idSearchPattern = regexp.MustCompile(`(NODE|SRC|GRAPH|SCHEMA|GOLD)-[A-Z0-9-]+`)

// NormalizeID uppercases and validates a caller-supplied material id.
// Malformed ids are rejected before any store access.
func NormalizeID(raw string) (string, error) {
	id := strings.ToUpper(strings.TrimSpace(raw))
	if !idPattern.MatchString(id) {
		return "", &store.ValidationError{Field: "material_id", Value: raw}
	}
	return id, nil
}

// ExtractID pulls the first material id out of free text, uppercased.
// Returns "" when none is present.
func ExtractID(text string) string {
	return idSearchPattern.FindString(strings.ToUpper(text))
}

// Layer labels and their accepted shorthand
var layerShorthand = map[string]string{
	"L1": "L1-Strategic",
	"L2": "L2-Operational",
	"L3": "L3-Technical",
}

// ExpandLayer maps the L1/L2/L3 shorthand to full layer labels; anything
// else passes through unchanged.
func ExpandLayer(layer string) string {
	if full, ok := layerShorthand[strings.ToUpper(strings.TrimSpace(layer))]; ok {
		return full
	}
	return layer
}

package encode

import (
	"encoding/json"
	"io"

	"github.com/ohler55/ojg"
	"github.com/ohler55/ojg/oj"
)

var canonical = &ojg.Options{Sort: true}

// JSONIndented encodes a value into a writer with a single space indentation
func JSONIndented(v interface{}, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", " ")

	return encoder.Encode(v)
}

// Canonical renders a value as compact JSON with sorted object keys
func Canonical(v interface{}) string {
	return oj.JSON(v, canonical)
}

// Parse decodes a JSON document into generic maps and slices
func Parse(s string) (interface{}, error) {
	return oj.ParseString(s)
}

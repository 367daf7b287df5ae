package codec

import (
	"errors"
	"fmt"

	gojson "github.com/goccy/go-json"
)

// ErrNotObject is returned when a projected document is not a JSON object.
var ErrNotObject = errors.New("codec: document is not a JSON object")

// Project returns a JSON object holding only the named top-level keys of doc.
// Keys missing from doc are omitted. Values are copied through unparsed.
// An empty or null document projects to "{}".
func Project(doc []byte, keys []string) ([]byte, error) {
	if len(doc) == 0 || string(doc) == "null" {
		return []byte("{}"), nil
	}

	var fields map[string]gojson.RawMessage
	if err := gojson.Unmarshal(doc, &fields); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotObject, err)
	}

	out := make(map[string]gojson.RawMessage, len(keys))
	for _, k := range keys {
		if v, ok := fields[k]; ok {
			out[k] = v
		}
	}
	return gojson.Marshal(out)
}

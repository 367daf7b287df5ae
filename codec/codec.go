// Package codec holds the JSON codecs used for index artifact metadata and
// for dynamic field projection.
//
// Index artifacts store the name of the codec that wrote their metadata, so
// readers pick the decoder by name and the default can change freely.
package codec

import "encoding/json"

// Codec marshals values. Implementations are safe for concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// Default writes new artifact metadata.
var Default Codec = GoJSON{}

var registry = map[string]Codec{
	GoJSON{}.Name():  GoJSON{},
	StdJSON{}.Name(): StdJSON{},
}

// ByName looks up a codec by the name recorded in an artifact.
func ByName(name string) (Codec, bool) {
	c, ok := registry[name]
	return c, ok
}

// StdJSON reads artifacts written by tools that use encoding/json.
type StdJSON struct{}

func (StdJSON) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (StdJSON) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (StdJSON) Name() string                       { return "json" }

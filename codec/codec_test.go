package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type meta struct {
	Kind string `json:"kind"`
	Dim  int    `json:"dim"`
}

func TestByName(t *testing.T) {
	for _, name := range []string{"json", "go-json"} {
		c, ok := ByName(name)
		require.True(t, ok)
		assert.Equal(t, name, c.Name())

		b, err := c.Marshal(meta{Kind: "FLAT", Dim: 4})
		require.NoError(t, err)

		var got meta
		require.NoError(t, c.Unmarshal(b, &got))
		assert.Equal(t, meta{Kind: "FLAT", Dim: 4}, got)
	}

	_, ok := ByName("gob")
	assert.False(t, ok)
}

func TestProject(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		keys []string
		want string
	}{
		{"subset", `{"a":1,"b":"x","c":[1,2]}`, []string{"a", "c"}, `{"a":1,"c":[1,2]}`},
		{"missing keys omitted", `{"a":1}`, []string{"a", "zz"}, `{"a":1}`},
		{"nothing matches", `{"a":1}`, []string{"b"}, `{}`},
		{"empty document", ``, []string{"a"}, `{}`},
		{"null document", `null`, []string{"a"}, `{}`},
		{"nested value kept", `{"o":{"k":true}}`, []string{"o"}, `{"o":{"k":true}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Project([]byte(tt.doc), tt.keys)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(got))
		})
	}

	_, err := Project([]byte(`[1,2]`), []string{"a"})
	require.ErrorIs(t, err, ErrNotObject)
}

func TestDefaultIsRegistered(t *testing.T) {
	c, ok := ByName(Default.Name())
	require.True(t, ok)
	b, err := c.Marshal(meta{Kind: "SORTED"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"SORTED","dim":0}`, string(b))
}

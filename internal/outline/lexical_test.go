package outline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cellDoc = `{
  "root": {
    "type": "root",
    "children": [
      {"type": "heading", "children": [{"type": "text", "text": "Ignored heading"}]},
      {
        "type": "list",
        "listType": "bullet",
        "children": [
          {"type": "listitem", "indent": 0, "value": 1, "children": [
            {"type": "text", "text": "Cell", "format": 1},
            {"type": "text", "text": " structure"}
          ]},
          {"type": "listitem", "indent": 0, "value": 2, "children": [
            {"type": "list", "listType": "bullet", "children": [
              {"type": "listitem", "indent": 1, "value": 1, "children": [{"type": "text", "text": "Nucleus"}]},
              {"type": "listitem", "indent": 1, "value": 2, "children": [
                {"type": "link", "url": "https://example.org", "children": [{"type": "text", "text": "Mitochondria"}]}
              ]}
            ]}
          ]},
          {"type": "listitem", "indent": 0, "value": 3, "children": [{"type": "text", "text": "Cell division"}]}
        ]
      }
    ]
  }
}`

func TestBuildLexical(t *testing.T) {
	forest, err := BuildLexical([]byte(cellDoc), Options{})
	require.NoError(t, err)

	want := []*Outline{
		tree("Cell structure", leaf("Nucleus"), leaf("Mitochondria")),
		leaf("Cell division"),
	}
	assert.Equal(t, want, forest)
}

func TestDecodeLexical_Shapes(t *testing.T) {
	wrapped := `[` + cellDoc + `]`
	bare := `{"type":"root","children":[{"type":"list","children":[{"type":"listitem","indent":0,"children":[{"type":"text","text":"only"}]}]}]}`

	forest, err := BuildLexical([]byte(wrapped), Options{})
	require.NoError(t, err)
	assert.Len(t, forest, 2)

	forest, err = BuildLexical([]byte(bare), Options{})
	require.NoError(t, err)
	assert.Equal(t, []*Outline{leaf("only")}, forest)

	for _, empty := range []string{"", "null", "[]", "{}"} {
		forest, err = BuildLexical([]byte(empty), Options{})
		require.NoError(t, err, "input %q", empty)
		assert.Empty(t, forest, "input %q", empty)
	}
}

func TestDecodeLexical_Malformed(t *testing.T) {
	_, err := DecodeLexical([]byte(`{"root": {"children": "nope"}}`))
	assert.ErrorIs(t, err, ErrMalformedInput)

	_, err = DecodeLexical([]byte(`[1, 2`))
	assert.ErrorIs(t, err, ErrMalformedInput)
}

func TestDecodeLexical_KindMapping(t *testing.T) {
	root, err := DecodeLexical([]byte(`{"root":{"type":"root","children":[{"type":"quote"},{"type":"paragraph"}]}}`))
	require.NoError(t, err)
	require.Len(t, root.Children, 2)
	assert.Equal(t, KindOther, root.Kind)
	assert.Equal(t, KindOther, root.Children[0].Kind)
	assert.Equal(t, KindParagraph, root.Children[1].Kind)
}

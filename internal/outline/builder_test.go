package outline

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func item(indent int, text string) *Node {
	return &Node{
		Kind:   KindListItem,
		Indent: indent,
		Children: []*Node{
			{Kind: KindText, Text: text},
		},
	}
}

func doc(indents []int, texts []string) *Node {
	list := &Node{Kind: KindList}
	for i := range indents {
		list.Children = append(list.Children, item(indents[i], texts[i]))
	}
	return &Node{Kind: KindOther, Children: []*Node{list}}
}

func leaf(text string) *Outline { return newOutline(text) }

func tree(text string, children ...*Outline) *Outline {
	o := newOutline(text)
	o.Children = append(o.Children, children...)
	return o
}

func TestBuild_SiblingsAndReturnToRoot(t *testing.T) {
	forest, err := Build(doc([]int{0, 1, 1, 0, 1}, []string{"A", "B", "C", "D", "E"}), Options{})
	require.NoError(t, err)

	want := []*Outline{
		tree("A", leaf("B"), leaf("C")),
		tree("D", leaf("E")),
	}
	assert.Equal(t, want, forest)
}

func TestBuild_ReturnToSeenLevelClosesDeeperBranch(t *testing.T) {
	forest, err := Build(doc([]int{0, 1, 2, 1}, []string{"root", "first", "deep", "second"}), Options{})
	require.NoError(t, err)

	want := []*Outline{
		tree("root",
			tree("first", leaf("deep")),
			leaf("second"),
		),
	}
	assert.Equal(t, want, forest)
}

func TestBuild_SkippedLevelStillAttachesToNearestLowerLevel(t *testing.T) {
	forest, err := Build(doc([]int{0, 3, 1}, []string{"A", "far", "near"}), Options{})
	require.NoError(t, err)

	assert.Equal(t, []*Outline{tree("A", leaf("far"), leaf("near"))}, forest)
}

func TestBuild_LeadingDeepItemBecomesRoot(t *testing.T) {
	forest, err := Build(doc([]int{2, 0}, []string{"deep", "top"}), Options{})
	require.NoError(t, err)

	assert.Equal(t, []*Outline{leaf("deep"), leaf("top")}, forest)
}

func TestBuild_EmptyItemsAreTransparent(t *testing.T) {
	forest, err := Build(doc([]int{0, 1, 1, 2}, []string{"A", "B", "  ", "D"}), Options{})
	require.NoError(t, err)

	assert.Equal(t, []*Outline{tree("A", tree("B", leaf("D")))}, forest)
}

func TestBuild_ReserveEmptyLevels(t *testing.T) {
	forest, err := Build(doc([]int{0, 1, 1, 2}, []string{"A", "B", "", "D"}), Options{ReserveEmptyLevels: true})
	require.NoError(t, err)

	assert.Equal(t, []*Outline{tree("A", leaf("B"), leaf("D"))}, forest)
}

func TestBuild_OnlyEmptyItems(t *testing.T) {
	forest, err := Build(doc([]int{0, 1, 0}, []string{"", " ", ""}), Options{})
	require.NoError(t, err)
	assert.Empty(t, forest)

	out, err := json.Marshal(forest)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(out))
}

func TestBuild_NilRoot(t *testing.T) {
	forest, err := Build(nil, Options{})
	require.NoError(t, err)
	assert.NotNil(t, forest)
	assert.Empty(t, forest)
}

func TestBuild_NestedListTextExcluded(t *testing.T) {
	root := &Node{Kind: KindOther, Children: []*Node{{
		Kind: KindList,
		Children: []*Node{{
			Kind:   KindListItem,
			Indent: 0,
			Children: []*Node{
				{Kind: KindParagraph, Children: []*Node{
					{Kind: KindText, Text: "Photosynthesis"},
					{Kind: KindOther, Children: []*Node{{Kind: KindText, Text: "basics"}}},
				}},
				{Kind: KindList, Children: []*Node{
					item(1, "Light reactions"),
					item(1, "Calvin cycle"),
				}},
			},
		}},
	}}}

	forest, err := Build(root, Options{})
	require.NoError(t, err)

	want := []*Outline{
		tree("Photosynthesis basics", leaf("Light reactions"), leaf("Calvin cycle")),
	}
	assert.Equal(t, want, forest)
}

func TestBuild_RejectsCycles(t *testing.T) {
	list := &Node{Kind: KindList}
	li := item(0, "loop")
	li.Children = append(li.Children, list)
	list.Children = []*Node{li}

	_, err := Build(&Node{Kind: KindOther, Children: []*Node{list}}, Options{})
	assert.ErrorIs(t, err, ErrMalformedInput)
}

func TestBuild_RejectsExcessiveDepth(t *testing.T) {
	root := &Node{Kind: KindOther}
	cur := root
	for i := 0; i < 10; i++ {
		next := &Node{Kind: KindParagraph}
		cur.Children = []*Node{next}
		cur = next
	}

	_, err := Build(root, Options{MaxDepth: 5})
	assert.ErrorIs(t, err, ErrMalformedInput)

	_, err = Build(root, Options{MaxDepth: 20})
	assert.NoError(t, err)
}

func TestBuild_RoundTripThroughFlatten(t *testing.T) {
	cases := [][]int{
		{0, 1, 1, 0, 1},
		{0, 1, 2, 1},
		{0, 1, 2, 3, 0, 1, 2, 2, 1},
		{0, 0, 0},
	}
	for _, indents := range cases {
		texts := make([]string, len(indents))
		for i := range texts {
			texts[i] = string(rune('a' + i))
		}
		first, err := Build(doc(indents, texts), Options{})
		require.NoError(t, err)

		second, err := Build(Flatten(first), Options{})
		require.NoError(t, err)
		assert.Equal(t, first, second, "indents %v", indents)
	}
}

func TestOutline_JSONShape(t *testing.T) {
	forest, err := Build(doc([]int{0, 1}, []string{"A", "B"}), Options{})
	require.NoError(t, err)

	out, err := json.Marshal(forest)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"text":"A","children":[{"text":"B","children":[]}]}]`, string(out))
}

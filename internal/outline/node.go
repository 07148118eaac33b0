// Package outline converts rich-text documents into hierarchical mindmap outlines.
package outline

import "errors"

// Kind tags a rich document node.
type Kind string

const (
	KindText      Kind = "text"
	KindParagraph Kind = "paragraph"
	KindListItem  Kind = "listitem"
	KindList      Kind = "list"
	KindOther     Kind = "other"
)

// ErrMalformedInput is returned when a document is not a finite tree.
var ErrMalformedInput = errors.New("malformed rich-text document")

// Node is one node of a rich-text document as produced by the editor.
// Indent is only meaningful for list items and is 0-based.
type Node struct {
	Kind     Kind
	Text     string
	Indent   int
	Children []*Node
}

// Outline is one node of the generated mindmap.
type Outline struct {
	Text     string     `json:"text"`
	Children []*Outline `json:"children"`
}

func newOutline(text string) *Outline {
	return &Outline{Text: text, Children: []*Outline{}}
}

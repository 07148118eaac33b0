package outline

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type lexicalNode struct {
	Type     string        `json:"type"`
	Text     *string       `json:"text"`
	Indent   float64       `json:"indent"`
	Children []lexicalNode `json:"children"`
}

type lexicalState struct {
	Root *lexicalNode `json:"root"`
}

// DecodeLexical parses a Lexical editor state into a document tree.
//
// Three shapes are accepted: an editor state ({"root": {...}}), a bare root
// node, and an array whose first element is an editor state. The last one is
// how older records were saved.
func DecodeLexical(data []byte) (*Node, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}

	if data[0] == '[' {
		var states []lexicalState
		if err := json.Unmarshal(data, &states); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
		}
		if len(states) == 0 || states[0].Root == nil {
			return nil, nil
		}
		return convert(states[0].Root), nil
	}

	var state lexicalState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	if state.Root != nil {
		return convert(state.Root), nil
	}

	var bare lexicalNode
	if err := json.Unmarshal(data, &bare); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	if bare.Type == "" && len(bare.Children) == 0 {
		return nil, nil
	}
	return convert(&bare), nil
}

// BuildLexical decodes a Lexical document and builds its outline.
func BuildLexical(data []byte, opts Options) ([]*Outline, error) {
	root, err := DecodeLexical(data)
	if err != nil {
		return nil, err
	}
	return Build(root, opts)
}

func convert(ln *lexicalNode) *Node {
	n := &Node{Kind: kindOf(ln.Type), Indent: int(ln.Indent)}
	if ln.Text != nil {
		n.Text = *ln.Text
	}
	if len(ln.Children) > 0 {
		n.Children = make([]*Node, len(ln.Children))
		for i := range ln.Children {
			n.Children[i] = convert(&ln.Children[i])
		}
	}
	return n
}

func kindOf(t string) Kind {
	switch Kind(t) {
	case KindText, KindParagraph, KindListItem, KindList:
		return Kind(t)
	default:
		return KindOther
	}
}

package outline

import (
	"fmt"
	"strings"
)

// DefaultMaxDepth bounds document nesting when Options.MaxDepth is unset.
const DefaultMaxDepth = 256

// Options tunes Build.
type Options struct {
	// MaxDepth is the deepest node nesting accepted before the document is
	// rejected as malformed.
	MaxDepth int
	// ReserveEmptyLevels keeps list items without text on the level stack as
	// invisible placeholders. By default they are fully transparent.
	ReserveEmptyLevels bool
}

func (o Options) maxDepth() int {
	if o.MaxDepth <= 0 {
		return DefaultMaxDepth
	}
	return o.MaxDepth
}

type frame struct {
	level int
	node  *Outline // nil for a reserved empty level
}

type walkItem struct {
	node  *Node
	depth int
}

// Build converts the list items found in root into an outline forest.
// Ancestry is decided by indent level alone: an item attaches under the
// closest preceding item with a strictly lower level.
func Build(root *Node, opts Options) ([]*Outline, error) {
	forest := []*Outline{}
	if root == nil {
		return forest, nil
	}
	if err := validate(root, opts.maxDepth()); err != nil {
		return nil, err
	}

	var stack []frame
	pending := []*Node{root}
	for len(pending) > 0 {
		n := pending[len(pending)-1]
		pending = pending[:len(pending)-1]
		if n == nil {
			continue
		}

		if n.Kind == KindListItem {
			level := n.Indent + 1
			text := itemText(n)
			switch {
			case text != "":
				stack = place(stack, &forest, level, newOutline(text))
			case opts.ReserveEmptyLevels:
				stack = place(stack, &forest, level, nil)
			}
		}

		for i := len(n.Children) - 1; i >= 0; i-- {
			pending = append(pending, n.Children[i])
		}
	}
	return forest, nil
}

// place attaches node according to level and returns the updated stack.
// A nil node reserves the level without producing output.
func place(stack []frame, forest *[]*Outline, level int, node *Outline) []frame {
	if len(stack) > 0 && level <= stack[len(stack)-1].level {
		for len(stack) > 0 && stack[len(stack)-1].level >= level {
			stack = stack[:len(stack)-1]
		}
	}

	if node != nil {
		if parent := nearest(stack); parent != nil {
			parent.Children = append(parent.Children, node)
		} else {
			*forest = append(*forest, node)
		}
	}
	return append(stack, frame{level: level, node: node})
}

func nearest(stack []frame) *Outline {
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i].node != nil {
			return stack[i].node
		}
	}
	return nil
}

// itemText joins the text of an item's descendants, skipping nested lists.
func itemText(item *Node) string {
	var parts []string
	pending := make([]*Node, 0, len(item.Children))
	for i := len(item.Children) - 1; i >= 0; i-- {
		pending = append(pending, item.Children[i])
	}
	for len(pending) > 0 {
		n := pending[len(pending)-1]
		pending = pending[:len(pending)-1]
		if n == nil || n.Kind == KindList {
			continue
		}
		if t := strings.TrimSpace(n.Text); t != "" {
			parts = append(parts, t)
		}
		for i := len(n.Children) - 1; i >= 0; i-- {
			pending = append(pending, n.Children[i])
		}
	}
	return strings.Join(parts, " ")
}

// validate rejects documents that are too deep or are not trees.
func validate(root *Node, maxDepth int) error {
	seen := make(map[*Node]struct{})
	pending := []walkItem{{node: root, depth: 1}}
	for len(pending) > 0 {
		it := pending[len(pending)-1]
		pending = pending[:len(pending)-1]
		if it.node == nil {
			continue
		}
		if it.depth > maxDepth {
			return fmt.Errorf("%w: nesting deeper than %d", ErrMalformedInput, maxDepth)
		}
		if _, ok := seen[it.node]; ok {
			return fmt.Errorf("%w: node reachable more than once", ErrMalformedInput)
		}
		seen[it.node] = struct{}{}
		for _, c := range it.node.Children {
			pending = append(pending, walkItem{node: c, depth: it.depth + 1})
		}
	}
	return nil
}

package outline

// Flatten turns a forest back into a flat document of list items whose
// indent equals their depth in the forest. Building the result reproduces
// the forest.
func Flatten(forest []*Outline) *Node {
	root := &Node{Kind: KindOther}
	list := &Node{Kind: KindList}
	root.Children = []*Node{list}

	type entry struct {
		node  *Outline
		depth int
	}
	pending := make([]entry, 0, len(forest))
	for i := len(forest) - 1; i >= 0; i-- {
		pending = append(pending, entry{node: forest[i]})
	}
	for len(pending) > 0 {
		e := pending[len(pending)-1]
		pending = pending[:len(pending)-1]
		if e.node == nil {
			continue
		}
		list.Children = append(list.Children, &Node{
			Kind:     KindListItem,
			Indent:   e.depth,
			Children: []*Node{{Kind: KindText, Text: e.node.Text}},
		})
		for i := len(e.node.Children) - 1; i >= 0; i-- {
			pending = append(pending, entry{node: e.node.Children[i], depth: e.depth + 1})
		}
	}
	return root
}

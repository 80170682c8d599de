package document

// FindByID searches the tree depth-first in document order (parent before
// children, children in slice order).
func FindByID(layers []LayerNode, id string) (LayerNode, bool) {
	for i := range layers {
		if layers[i].ID == id {
			return layers[i], true
		}
		if n, ok := FindByID(layers[i].Children, id); ok {
			return n, true
		}
	}
	return LayerNode{}, false
}

// UpdateByID returns a tree where the node with the given id has patch
// merged in. Only the slices on the path to the match are copied; every
// other subtree is shared with the input. With no match the input slice is
// returned as is.
func UpdateByID(layers []LayerNode, id string, patch Patch) []LayerNode {
	out, _ := updateByID(layers, id, patch)
	return out
}

func updateByID(layers []LayerNode, id string, patch Patch) ([]LayerNode, bool) {
	for i := range layers {
		if layers[i].ID == id {
			next := make([]LayerNode, len(layers))
			copy(next, layers)
			next[i] = patch.Apply(layers[i])
			return next, true
		}
		if children, ok := updateByID(layers[i].Children, id, patch); ok {
			next := make([]LayerNode, len(layers))
			copy(next, layers)
			next[i].Children = children
			return next, true
		}
	}
	return layers, false
}

// Walk visits every node in document order. Returning false from fn skips
// the node's children.
func Walk(layers []LayerNode, fn func(n *LayerNode, depth int) bool) {
	walk(layers, 0, fn)
}

func walk(layers []LayerNode, depth int, fn func(n *LayerNode, depth int) bool) {
	for i := range layers {
		if fn(&layers[i], depth) {
			walk(layers[i].Children, depth+1, fn)
		}
	}
}

// Count returns the number of nodes in the tree.
func Count(layers []LayerNode) int {
	n := 0
	Walk(layers, func(*LayerNode, int) bool {
		n++
		return true
	})
	return n
}

// IDs returns every node id in document order.
func IDs(layers []LayerNode) []string {
	ids := make([]string, 0, Count(layers))
	Walk(layers, func(n *LayerNode, _ int) bool {
		ids = append(ids, n.ID)
		return true
	})
	return ids
}

// Map returns a new tree with fn applied to every node. A node's children
// are mapped before the node itself is passed to fn.
func Map(layers []LayerNode, fn func(LayerNode) LayerNode) []LayerNode {
	if layers == nil {
		return nil
	}
	out := make([]LayerNode, len(layers))
	for i, n := range layers {
		n.Children = Map(n.Children, fn)
		out[i] = fn(n)
	}
	return out
}

package usj

// Walk visits n and everything below it in document (pre-order) order,
// passing each node and each text run to fn. Returning false from fn
// stops the walk. Walk reports whether it ran to completion.
func Walk(n *Node, fn func(Content) bool) bool {
	if n == nil {
		return true
	}
	if !fn(n) {
		return false
	}
	for _, item := range n.Content {
		switch v := item.(type) {
		case Text:
			if !fn(v) {
				return false
			}
		case *Node:
			if !Walk(v, fn) {
				return false
			}
		}
	}
	return true
}

// First returns the first node in pre-order for which match is true, or nil.
func First(n *Node, match func(*Node) bool) *Node {
	var found *Node
	Walk(n, func(c Content) bool {
		if node, ok := c.(*Node); ok && match(node) {
			found = node
			return false
		}
		return true
	})
	return found
}

// All returns every node in pre-order for which match is true.
func All(n *Node, match func(*Node) bool) []*Node {
	var nodes []*Node
	Walk(n, func(c Content) bool {
		if node, ok := c.(*Node); ok && match(node) {
			nodes = append(nodes, node)
		}
		return true
	})
	return nodes
}

// OfType returns a predicate matching nodes of the given type.
func OfType(t string) func(*Node) bool {
	return func(n *Node) bool { return n.Type == t }
}

// BookCode returns the code of the first book node, or "".
func BookCode(n *Node) string {
	if b := First(n, OfType(TypeBook)); b != nil {
		return b.Code
	}
	return ""
}

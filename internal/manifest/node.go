package manifest

// Attr is a single element attribute. Attributes render in slice order.
type Attr struct {
	Name  string
	Value string
}

// Node is one element of a manifest document. A node carries either text or
// children, never both.
type Node struct {
	Name     string
	Attrs    []Attr
	Text     string
	Children []*Node
}

func Element(name string, attrs ...Attr) *Node {
	return &Node{Name: name, Attrs: attrs}
}

func TextElement(name, text string, attrs ...Attr) *Node {
	return &Node{Name: name, Attrs: attrs, Text: text}
}

func A(name, value string) Attr {
	return Attr{Name: name, Value: value}
}

// Append adds children in order and returns n for chaining.
func (n *Node) Append(children ...*Node) *Node {
	for _, c := range children {
		if c != nil {
			n.Children = append(n.Children, c)
		}
	}
	return n
}

func (n *Node) Attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

func (n *Node) Child(name string) *Node {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// FindAll returns every descendant named name in document order.
func (n *Node) FindAll(name string) []*Node {
	var out []*Node
	var walk func(*Node)
	walk = func(cur *Node) {
		for _, c := range cur.Children {
			if c.Name == name {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(n)
	return out
}

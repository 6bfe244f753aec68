// Package zwo builds, encodes and parses Zwift .zwo workout documents.
package zwo

// Attr is a single element attribute. Attribute order is preserved.
type Attr struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Node is a generic XML element. Line is the 1-based source line for parsed
// documents and zero for emitted ones.
type Node struct {
	Name     string  `json:"name"`
	Attrs    []Attr  `json:"attrs,omitempty"`
	Children []*Node `json:"children,omitempty"`
	Text     string  `json:"text,omitempty"`
	Line     int     `json:"line,omitempty"`
}

// NewNode returns an element with the given attributes.
func NewNode(name string, attrs ...Attr) *Node {
	return &Node{Name: name, Attrs: attrs}
}

// Append adds children to n and returns n.
func (n *Node) Append(children ...*Node) *Node {
	n.Children = append(n.Children, children...)
	return n
}

// Attr returns the value of the named attribute.
func (n *Node) Attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// Child returns the first direct child with the given name, or nil.
func (n *Node) Child(name string) *Node {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Walk visits n and all of its descendants in document order. The path
// passed to fn is XPath style, with a 1-based position on elements that
// share their name with an earlier sibling.
func (n *Node) Walk(fn func(node *Node, path string)) {
	n.walk("/"+n.Name, fn)
}

func (n *Node) walk(path string, fn func(*Node, string)) {
	fn(n, path)
	seen := make(map[string]int, len(n.Children))
	total := make(map[string]int, len(n.Children))
	for _, c := range n.Children {
		total[c.Name]++
	}
	for _, c := range n.Children {
		seen[c.Name]++
		p := path + "/" + c.Name
		if total[c.Name] > 1 {
			p += "[" + itoa(seen[c.Name]) + "]"
		}
		c.walk(p, fn)
	}
}

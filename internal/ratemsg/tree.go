// Package ratemsg decodes a rate-plan notification message into a generic
// attributed element tree. The interpreters in internal/rateplan consume
// this tree; nothing past that boundary sees raw XML.
package ratemsg

// Element is one node of the decoded message: an element name, a flat
// attribute map and the child elements in document order.
type Element struct {
	Name     string
	Attr     map[string]string
	Children []*Element
}

// ChildrenNamed returns the direct children with the given element name,
// preserving document order.
func (e *Element) ChildrenNamed(name string) []*Element {
	var out []*Element
	for _, c := range e.Children {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// HasAttr reports whether the attribute is present, even when empty.
func (e *Element) HasAttr(name string) bool {
	_, ok := e.Attr[name]
	return ok
}

// AttrValue returns the attribute value, or "" when absent.
func (e *Element) AttrValue(name string) string {
	return e.Attr[name]
}

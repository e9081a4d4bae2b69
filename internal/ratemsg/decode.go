package ratemsg

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// Decode parses an XML document into its element tree. Character data and
// comments are dropped: the rate-plan schema carries everything in
// attributes.
func Decode(r io.Reader) (*Element, error) {
	dec := xml.NewDecoder(r)

	root := &Element{Name: "", Attr: map[string]string{}}
	stack := []*Element{root}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("XML parse error: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			el := &Element{Name: t.Name.Local, Attr: map[string]string{}}
			for _, a := range t.Attr {
				if a.Name.Space == "xmlns" || a.Name.Local == "xmlns" {
					continue
				}
				el.Attr[a.Name.Local] = a.Value
			}
			parent := stack[len(stack)-1]
			parent.Children = append(parent.Children, el)
			stack = append(stack, el)
		case xml.EndElement:
			if len(stack) == 1 {
				return nil, fmt.Errorf("XML parse error: unbalanced end element %s", t.Name.Local)
			}
			stack = stack[:len(stack)-1]
		}
	}
	if len(stack) != 1 {
		return nil, fmt.Errorf("XML parse error: unclosed element %s", stack[len(stack)-1].Name)
	}
	if len(root.Children) != 1 {
		return nil, fmt.Errorf("XML parse error: expected a single document element")
	}
	return root.Children[0], nil
}

// DecodeString is a convenience wrapper around Decode.
func DecodeString(s string) (*Element, error) {
	return Decode(strings.NewReader(s))
}

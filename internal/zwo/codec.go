package zwo

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrMalformed is returned by Parse for documents that are not well-formed XML.
var ErrMalformed = errors.New("malformed xml")

// Marshal encodes n as indented XML.
func Marshal(n *Node) ([]byte, error) {
	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := encode(enc, n); err != nil {
		return nil, fmt.Errorf("encoding <%s>: %w", n.Name, err)
	}
	if err := enc.Flush(); err != nil {
		return nil, fmt.Errorf("flushing xml: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func encode(enc *xml.Encoder, n *Node) error {
	start := xml.StartElement{Name: xml.Name{Local: n.Name}}
	for _, a := range n.Attrs {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: a.Name}, Value: a.Value})
	}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	if n.Text != "" {
		if err := enc.EncodeToken(xml.CharData(n.Text)); err != nil {
			return err
		}
	}
	for _, c := range n.Children {
		if err := encode(enc, c); err != nil {
			return err
		}
	}
	return enc.EncodeToken(start.End())
}

// Parse reads a document into a Node tree, recording the line each element
// starts on.
func Parse(r io.Reader) (*Node, error) {
	dec := xml.NewDecoder(r)
	var (
		root  *Node
		stack []*Node
		text  strings.Builder
	)
	for {
		line, _ := dec.InputPos()
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			n := &Node{Name: qualified(t.Name), Line: line}
			for _, a := range t.Attr {
				n.Attrs = append(n.Attrs, Attr{Name: qualified(a.Name), Value: a.Value})
			}
			if len(stack) == 0 {
				if root != nil {
					return nil, fmt.Errorf("%w: multiple root elements", ErrMalformed)
				}
				root = n
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, n)
			}
			stack = append(stack, n)
			text.Reset()

		case xml.CharData:
			if len(stack) > 0 {
				text.Write(t)
			}

		case xml.EndElement:
			n := stack[len(stack)-1]
			if len(n.Children) == 0 {
				n.Text = strings.TrimSpace(text.String())
			}
			text.Reset()
			stack = stack[:len(stack)-1]
		}
	}
	if root == nil {
		return nil, fmt.Errorf("%w: no root element", ErrMalformed)
	}
	return root, nil
}

func qualified(name xml.Name) string {
	if name.Space == "" {
		return name.Local
	}
	return name.Space + ":" + name.Local
}

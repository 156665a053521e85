package printer

import (
	"encoding/xml"
	"errors"
	"io"
)

// Sink receives the decoded tree. Attributes belong to the most recently
// started element and must be set before its first child or text.
type Sink interface {
	StartElement(name string) error
	Attr(key, value string) error
	Text(s string) error
	EndElement() error
	Close() error
}

var errAttrPlacement = errors.New("attribute set after element content")

// XMLSink writes an indented XML document
type XMLSink struct {
	w       io.Writer
	enc     *xml.Encoder
	pending *xml.StartElement
	open    []xml.Name
	started bool
}

// NewXMLSink returns a sink writing to w. Close must be called to flush.
func NewXMLSink(w io.Writer) *XMLSink {
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	return &XMLSink{w: w, enc: enc}
}

func (s *XMLSink) start() error {
	if s.started {
		return nil
	}
	s.started = true
	_, err := io.WriteString(s.w, xml.Header)
	return err
}

func (s *XMLSink) flushPending() error {
	if s.pending == nil {
		return nil
	}
	el := *s.pending
	s.pending = nil
	if err := s.enc.EncodeToken(el); err != nil {
		return err
	}
	s.open = append(s.open, el.Name)
	return nil
}

// StartElement opens name
func (s *XMLSink) StartElement(name string) error {
	if err := s.start(); err != nil {
		return err
	}
	if err := s.flushPending(); err != nil {
		return err
	}
	s.pending = &xml.StartElement{Name: xml.Name{Local: name}}
	return nil
}

// Attr adds an attribute to the element opened last
func (s *XMLSink) Attr(key, value string) error {
	if s.pending == nil {
		return errAttrPlacement
	}
	s.pending.Attr = append(s.pending.Attr, xml.Attr{Name: xml.Name{Local: key}, Value: value})
	return nil
}

// Text writes escaped character data
func (s *XMLSink) Text(text string) error {
	if err := s.flushPending(); err != nil {
		return err
	}
	return s.enc.EncodeToken(xml.CharData(text))
}

// EndElement closes the innermost open element
func (s *XMLSink) EndElement() error {
	if err := s.flushPending(); err != nil {
		return err
	}
	if len(s.open) == 0 {
		return errors.New("end element without start")
	}
	name := s.open[len(s.open)-1]
	s.open = s.open[:len(s.open)-1]
	return s.enc.EncodeToken(xml.EndElement{Name: name})
}

// Close flushes the document and terminates it with a newline
func (s *XMLSink) Close() error {
	if err := s.flushPending(); err != nil {
		return err
	}
	if err := s.enc.Close(); err != nil {
		return err
	}
	_, err := io.WriteString(s.w, "\n")
	return err
}

// Node is one element of an in-memory tree
type Node struct {
	Name     string            `json:"name"`
	Attrs    map[string]string `json:"attrs,omitempty"`
	Text     string            `json:"text,omitempty"`
	Children []*Node           `json:"children,omitempty"`
}

// Child returns the first direct child called name, or nil
func (n *Node) Child(name string) *Node {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// TreeSink collects the output as a Node tree, used for JSON output
type TreeSink struct {
	Root  *Node
	stack []*Node
	// attrsOpen is false once the current element received content
	attrsOpen bool
}

// NewTreeSink returns an empty tree sink
func NewTreeSink() *TreeSink {
	return &TreeSink{}
}

// StartElement opens name
func (t *TreeSink) StartElement(name string) error {
	n := &Node{Name: name}
	if len(t.stack) == 0 {
		if t.Root != nil {
			return errors.New("second root element")
		}
		t.Root = n
	} else {
		parent := t.stack[len(t.stack)-1]
		parent.Children = append(parent.Children, n)
	}
	t.stack = append(t.stack, n)
	t.attrsOpen = true
	return nil
}

// Attr adds an attribute to the element opened last
func (t *TreeSink) Attr(key, value string) error {
	if !t.attrsOpen || len(t.stack) == 0 {
		return errAttrPlacement
	}
	n := t.stack[len(t.stack)-1]
	if n.Attrs == nil {
		n.Attrs = make(map[string]string)
	}
	n.Attrs[key] = value
	return nil
}

// Text appends character data to the current element
func (t *TreeSink) Text(s string) error {
	if len(t.stack) == 0 {
		return errors.New("text outside root element")
	}
	t.attrsOpen = false
	t.stack[len(t.stack)-1].Text += s
	return nil
}

// EndElement closes the innermost open element
func (t *TreeSink) EndElement() error {
	if len(t.stack) == 0 {
		return errors.New("end element without start")
	}
	t.stack = t.stack[:len(t.stack)-1]
	t.attrsOpen = false
	return nil
}

// Close checks that every element was closed
func (t *TreeSink) Close() error {
	if len(t.stack) != 0 {
		return errors.New("unclosed elements")
	}
	return nil
}

package snapshot

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Tree is the generic decoded form of a snapshot. Element attributes are kept
// under "@name", child elements under their tag, text under "#text". A tag
// that appears more than once becomes []any while a tag that appears once is
// stored as the bare value, so consumers must go through List.
type Tree = map[string]any

// ParseXML decodes a markup snapshot into a Tree. Empty elements decode to
// nil and elements with only text decode to the text.
func ParseXML(data []byte) (Tree, error) {
	type frame struct {
		name string
		node Tree
		text strings.Builder
	}

	dec := xml.NewDecoder(bytes.NewReader(data))
	root := Tree{}
	var stack []*frame

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			f := &frame{name: t.Name.Local, node: Tree{}}
			for _, attr := range t.Attr {
				f.node["@"+attr.Name.Local] = attr.Value
			}
			stack = append(stack, f)
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text.Write(t)
			}
		case xml.EndElement:
			f := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			var value any
			text := strings.TrimSpace(f.text.String())
			switch {
			case len(f.node) == 0 && text == "":
				value = nil
			case len(f.node) == 0:
				value = text
			default:
				if text != "" {
					f.node["#text"] = text
				}
				value = f.node
			}

			parent := root
			if len(stack) > 0 {
				parent = stack[len(stack)-1].node
			}
			appendChild(parent, f.name, value)
		}
	}

	if len(root) == 0 {
		return nil, fmt.Errorf("%w: no root element", ErrMalformedSnapshot)
	}
	return root, nil
}

// ParseJSON decodes a snapshot tree that was already serialised as JSON using
// the same layout ParseXML produces.
func ParseJSON(data []byte) (Tree, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var tree Tree
	if err := dec.Decode(&tree); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}
	if len(tree) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrMalformedSnapshot)
	}
	return tree, nil
}

func appendChild(parent Tree, name string, value any) {
	existing, ok := parent[name]
	if !ok {
		parent[name] = value
		return
	}
	if list, isList := existing.([]any); isList {
		parent[name] = append(list, value)
		return
	}
	parent[name] = []any{existing, value}
}

// List normalises a tree value to a sequence: nil is empty, a []any is
// returned as is and anything else becomes a one-element list.
func List(v any) []any {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		return t
	default:
		return []any{t}
	}
}

// child returns the named child of a node as a map. Present-but-empty
// elements return an empty map with ok set.
func child(node Tree, name string) (Tree, bool) {
	v, ok := node[name]
	if !ok {
		return nil, false
	}
	switch t := v.(type) {
	case nil:
		return Tree{}, true
	case map[string]any:
		return t, true
	default:
		return nil, false
	}
}

// attr reads an attribute, accepting both "@name" and plain "name" keys so
// hand-written JSON trees work too.
func attr(node Tree, name string) (string, bool) {
	v, ok := node["@"+name]
	if !ok {
		v, ok = node[name]
	}
	if !ok || v == nil {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}

func intAttr(node Tree, name string) (int, error) {
	s, ok := attr(node, name)
	if !ok {
		return 0, fmt.Errorf("%w: missing attribute %q", ErrMalformedSnapshot, name)
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: attribute %q is not an integer: %q", ErrMalformedSnapshot, name, s)
	}
	return n, nil
}

func optionalIntAttr(node Tree, name string) (int, error) {
	s, ok := attr(node, name)
	if !ok || strings.TrimSpace(s) == "" {
		return 0, nil
	}
	return intAttr(node, name)
}

func asNode(v any) (Tree, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case nil:
		return Tree{}, true
	default:
		return nil, false
	}
}

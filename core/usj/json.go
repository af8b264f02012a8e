package usj

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"github.com/wkelly17/usfm-grammar/core/errors"
)

// Decode reads a USJ document from r.
func Decode(r io.Reader) (*Node, error) {
	var n Node
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(&n); err != nil {
		var pe *errors.ParseError
		if errors.As(err, &pe) {
			return nil, err
		}
		return nil, &errors.ParseError{Format: "USJ", Message: err.Error(), Err: err}
	}
	return &n, nil
}

// Encode writes n to w as indented JSON followed by a newline.
func Encode(w io.Writer, n *Node, indent string) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if indent != "" {
		enc.SetIndent("", indent)
	}
	return enc.Encode(n)
}

// UnmarshalJSON decodes a USJ node. Any key other than type, marker, code,
// number and content is kept in Attrs.
func (n *Node) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return &errors.ParseError{Format: "USJ", Message: "node must be an object", Err: err}
	}

	for key, val := range raw {
		if key == "content" {
			content, err := decodeContent(val)
			if err != nil {
				return err
			}
			n.Content = content
			continue
		}

		s, err := scalarString(key, val)
		if err != nil {
			return err
		}
		switch key {
		case "type":
			n.Type = s
		case "marker":
			n.Marker = s
		case "code":
			n.Code = s
		case "number":
			n.Number = s
		default:
			n.SetAttr(key, s)
		}
	}
	return nil
}

func decodeContent(val json.RawMessage) ([]Content, error) {
	if string(bytes.TrimSpace(val)) == "null" {
		return nil, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(val, &items); err != nil {
		return nil, &errors.ParseError{Format: "USJ", Message: "content must be an array", Err: err}
	}

	content := make([]Content, 0, len(items))
	for i, item := range items {
		item = bytes.TrimSpace(item)
		if len(item) == 0 {
			continue
		}
		switch item[0] {
		case '"':
			var s string
			if err := json.Unmarshal(item, &s); err != nil {
				return nil, &errors.ParseError{Format: "USJ", Message: fmt.Sprintf("content[%d]: invalid string", i), Err: err}
			}
			content = append(content, Text(s))
		case '{':
			child := &Node{}
			if err := child.UnmarshalJSON(item); err != nil {
				return nil, err
			}
			content = append(content, child)
		default:
			return nil, &errors.ParseError{
				Format:  "USJ",
				Message: fmt.Sprintf("content[%d]: expected string or object, got %s", i, item),
			}
		}
	}
	return content, nil
}

// scalarString accepts strings, numbers and booleans. Numbers keep their
// literal spelling so a verse number of 1 reads back as "1".
func scalarString(key string, val json.RawMessage) (string, error) {
	val = bytes.TrimSpace(val)
	if len(val) > 0 && val[0] == '"' {
		var s string
		if err := json.Unmarshal(val, &s); err != nil {
			return "", &errors.ParseError{Format: "USJ", Message: fmt.Sprintf("%s: invalid string", key), Err: err}
		}
		return s, nil
	}

	var v any
	dec := json.NewDecoder(bytes.NewReader(val))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return "", &errors.ParseError{Format: "USJ", Message: fmt.Sprintf("%s: invalid value", key), Err: err}
	}
	switch t := v.(type) {
	case json.Number:
		return t.String(), nil
	case bool:
		return fmt.Sprint(t), nil
	case nil:
		return "", nil
	}
	return "", &errors.ParseError{Format: "USJ", Message: fmt.Sprintf("%s: expected a scalar value", key)}
}

// MarshalJSON writes the node with type and marker first, then the
// node-specific fields, sorted attributes, and content last.
func (n *Node) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	first := true
	field := func(key string, value any) error {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		k, _ := json.Marshal(key)
		buf.Write(k)
		buf.WriteByte(':')
		v, err := marshalNoEscape(value)
		if err != nil {
			return err
		}
		buf.Write(v)
		return nil
	}

	if err := field("type", n.Type); err != nil {
		return nil, err
	}
	if n.Marker != "" {
		if err := field("marker", n.Marker); err != nil {
			return nil, err
		}
	}
	if n.Code != "" {
		if err := field("code", n.Code); err != nil {
			return nil, err
		}
	}
	if n.Number != "" {
		if err := field("number", n.Number); err != nil {
			return nil, err
		}
	}

	keys := make([]string, 0, len(n.Attrs))
	for k := range n.Attrs {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if err := field(k, n.Attrs[k]); err != nil {
			return nil, err
		}
	}

	if n.Content != nil {
		items := make([]any, 0, len(n.Content))
		for _, item := range n.Content {
			switch v := item.(type) {
			case Text:
				items = append(items, string(v))
			case *Node:
				items = append(items, v)
			}
		}
		if err := field("content", items); err != nil {
			return nil, err
		}
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

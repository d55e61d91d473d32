package settings

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads settings from a YAML or JSON file.
//
// Both formats are decoded through yaml.v3 nodes (JSON is valid YAML), which
// keeps key order and key case.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file %q: %w", path, err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse settings file %q: %w", path, err)
	}
	return s, nil
}

// Parse decodes settings from YAML or JSON bytes. The document must be a
// mapping; an empty document yields empty settings.
func Parse(data []byte) (*Settings, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Kind == 0 {
		return New(), nil
	}
	v, err := decodeNode(&doc)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return New(), nil
	}
	m, ok := v.(*Map)
	if !ok {
		return nil, fmt.Errorf("settings document must be a mapping, got %s", TypeName(v))
	}
	return FromMap(m), nil
}

// Save writes settings to path. Files ending in .json are written as indented
// JSON, everything else as YAML.
func Save(path string, s *Settings) error {
	data, err := Marshal(s, formatFor(path))
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create settings directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}
	return nil
}

// Marshal encodes settings as "yaml" or "json".
func Marshal(s *Settings, format string) ([]byte, error) {
	switch format {
	case "json":
		data, err := json.MarshalIndent(s.root, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal settings: %w", err)
		}
		return append(data, '\n'), nil
	case "yaml", "":
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(s.root); err != nil {
			return nil, fmt.Errorf("failed to marshal settings: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unsupported settings format %q", format)
	}
}

func formatFor(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return "json"
	}
	return "yaml"
}

// UnmarshalYAML implements yaml.Unmarshaler, preserving key order.
func (m *Map) UnmarshalYAML(node *yaml.Node) error {
	v, err := decodeNode(node)
	if err != nil {
		return err
	}
	if v == nil {
		*m = *NewMap()
		return nil
	}
	decoded, ok := v.(*Map)
	if !ok {
		return fmt.Errorf("expected a mapping, got %s", TypeName(v))
	}
	*m = *decoded
	return nil
}

// MarshalYAML implements yaml.Marshaler, emitting keys in declared order.
func (m *Map) MarshalYAML() (any, error) {
	return encodeNode(m)
}

// MarshalJSON implements json.Marshaler, emitting keys in declared order.
func (m *Map) MarshalJSON() ([]byte, error) {
	if m == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(m.vals[k])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func decodeNode(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return decodeNode(n.Content[0])
	case yaml.MappingNode:
		m := NewMap()
		for i := 0; i+1 < len(n.Content); i += 2 {
			keyNode, valNode := n.Content[i], n.Content[i+1]
			if keyNode.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("line %d: mapping keys must be scalars", keyNode.Line)
			}
			v, err := decodeNode(valNode)
			if err != nil {
				return nil, err
			}
			m.Set(keyNode.Value, v)
		}
		return m, nil
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for _, item := range n.Content {
			v, err := decodeNode(item)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case yaml.AliasNode:
		return decodeNode(n.Alias)
	case yaml.ScalarNode:
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return v, nil
	default:
		return nil, fmt.Errorf("line %d: unsupported YAML node kind %d", n.Line, n.Kind)
	}
}

func encodeNode(v any) (*yaml.Node, error) {
	switch val := v.(type) {
	case *Map:
		node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		if val == nil {
			return node, nil
		}
		for _, k := range val.keys {
			keyNode := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k}
			valNode, err := encodeNode(val.vals[k])
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			node.Content = append(node.Content, keyNode, valNode)
		}
		return node, nil
	case []any:
		node := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range val {
			itemNode, err := encodeNode(item)
			if err != nil {
				return nil, err
			}
			node.Content = append(node.Content, itemNode)
		}
		return node, nil
	default:
		node := &yaml.Node{}
		if err := node.Encode(val); err != nil {
			return nil, err
		}
		return node, nil
	}
}

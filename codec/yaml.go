package codec

import (
	"strconv"
	"time"

	"github.com/nicwaller/gelf"
	"gopkg.in/yaml.v3"
)

// Yaml renders a message for people, keeping field order.
func Yaml(msg gelf.Message) ([]byte, error) {
	return yaml.Marshal(fieldsToYaml(&msg.Fields))
}

func fieldsToYaml(f *gelf.Fields) *yaml.Node {
	node := &yaml.Node{Kind: yaml.MappingNode}
	f.Range(func(key string, v gelf.Value) bool {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: SanitizeString(key)},
			valueToYaml(v))
		return true
	})
	return node
}

func valueToYaml(v gelf.Value) *yaml.Node {
	scalar := func(tag, value string) *yaml.Node {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
	}
	switch v.Kind() {
	case gelf.KindString:
		return scalar("!!str", SanitizeString(v.Str()))
	case gelf.KindInt:
		return scalar("!!int", strconv.FormatInt(v.Int64(), 10))
	case gelf.KindFloat:
		return scalar("!!float", strconv.FormatFloat(v.Float64(), 'f', -1, 64))
	case gelf.KindBool:
		return scalar("!!bool", strconv.FormatBool(v.Bool()))
	case gelf.KindTime:
		return scalar("!!timestamp", v.Time().Format(time.RFC3339Nano))
	case gelf.KindList:
		seq := &yaml.Node{Kind: yaml.SequenceNode}
		for _, item := range v.List() {
			seq.Content = append(seq.Content, valueToYaml(item))
		}
		return seq
	case gelf.KindMap:
		if v.Map() == nil {
			return &yaml.Node{Kind: yaml.MappingNode}
		}
		return fieldsToYaml(v.Map())
	default:
		if v.IsNil() {
			return scalar("!!null", "null")
		}
		return scalar("!!str", SanitizeString(fallbackString(v.Any())))
	}
}

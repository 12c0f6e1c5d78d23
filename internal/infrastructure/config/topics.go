package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// TopicVariants holds the commands configured for one topic.
//
// In YAML each topic maps a parameter value to an argument list. A null
// key (~ or null) declares the default variant:
//
//	topiclist:
//	  sys/file:
//	    create: ["/usr/bin/touch", "/tmp/file.one"]
//	    ~:      ["/bin/echo", "unknown: @!@"]
//
// Scalar keys are kept as their literal text, so `5:` and `"5":` are the same key.
type TopicVariants struct {
	// Exact maps a parameter value to its command.
	Exact map[string][]string

	// Default is the command used when no exact key matches.
	// Only meaningful when HasDefault is true.
	Default    []string
	HasDefault bool
}

// Len returns the number of configured variants, the default included.
func (v TopicVariants) Len() int {
	n := len(v.Exact)
	if v.HasDefault {
		n++
	}
	return n
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (v *TopicVariants) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: topic entry must map parameters to commands", node.Line)
	}

	out := TopicVariants{Exact: make(map[string][]string)}

	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		if key.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: parameter key must be a scalar", key.Line)
		}

		args, err := decodeArgs(value)
		if err != nil {
			return err
		}

		if key.ShortTag() == "!!null" {
			if out.HasDefault {
				return fmt.Errorf("line %d: default command defined twice", key.Line)
			}
			out.Default = args
			out.HasDefault = true
			continue
		}

		if _, dup := out.Exact[key.Value]; dup {
			return fmt.Errorf("line %d: parameter %q defined twice", key.Line, key.Value)
		}
		out.Exact[key.Value] = args
	}

	*v = out
	return nil
}

// decodeArgs reads a command's argument list. Every element must be a scalar;
// numbers and booleans are kept as written.
func decodeArgs(node *yaml.Node) ([]string, error) {
	if node.Kind == yaml.AliasNode && node.Alias != nil {
		node = node.Alias
	}
	if node.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("line %d: command must be a list of arguments", node.Line)
	}
	if len(node.Content) == 0 {
		return nil, fmt.Errorf("line %d: command has no arguments", node.Line)
	}

	args := make([]string, 0, len(node.Content))
	for _, item := range node.Content {
		if item.Kind != yaml.ScalarNode || item.ShortTag() == "!!null" {
			return nil, fmt.Errorf("line %d: command argument must be a string", item.Line)
		}
		args = append(args, item.Value)
	}
	return args, nil
}

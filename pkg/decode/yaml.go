package decode

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/atlassian/zbxshipper"
)

const (
	// maxAliasDepth stops alias cycles.
	maxAliasDepth = 64
	// minExpansionBudget is the number of nodes any document may build, whatever its size.
	minExpansionBudget = 10000
	// maxExpansionRatio bounds the nodes built through aliases relative to the nodes in the source document.
	maxExpansionRatio = 10
)

// yamlBuilder turns a parsed document into a value, failing once more nodes were built than budget allows.
type yamlBuilder struct {
	built  int
	budget int
}

// YAML reads the first YAML document of r. Mappings and sequences become nodes (sequence items keyed by index),
// scalars keep their literal text and nulls become "null". An empty document is an empty node.
func YAML(r io.Reader) (zbxshipper.Value, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return zbxshipper.NewNode(), nil
		}
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	budget := countYAML(&doc) * maxExpansionRatio
	if budget < minExpansionBudget {
		budget = minExpansionBudget
	}
	b := &yamlBuilder{budget: budget}
	return b.build(&doc, 0)
}

// countYAML returns the number of nodes in the document as written, aliases counting once.
func countYAML(n *yaml.Node) int {
	count := 1
	for _, c := range n.Content {
		count += countYAML(c)
	}
	return count
}

func (b *yamlBuilder) build(n *yaml.Node, aliases int) (zbxshipper.Value, error) {
	b.built++
	if b.built > b.budget {
		return nil, fmt.Errorf("decode yaml: line %d: document expands to more than %d nodes", n.Line, b.budget)
	}
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return zbxshipper.NewNode(), nil
		}
		return b.build(n.Content[0], aliases)
	case yaml.MappingNode:
		node := zbxshipper.NewNode()
		for i := 0; i+1 < len(n.Content); i += 2 {
			v, err := b.build(n.Content[i+1], aliases)
			if err != nil {
				return nil, err
			}
			node.Set(n.Content[i].Value, v)
		}
		return node, nil
	case yaml.SequenceNode:
		node := zbxshipper.NewNode()
		for i, item := range n.Content {
			v, err := b.build(item, aliases)
			if err != nil {
				return nil, err
			}
			node.Set(strconv.Itoa(i), v)
		}
		return node, nil
	case yaml.ScalarNode:
		if n.ShortTag() == "!!null" {
			return nullLeaf, nil
		}
		return zbxshipper.Leaf(n.Value), nil
	case yaml.AliasNode:
		if aliases >= maxAliasDepth || n.Alias == nil {
			return nil, fmt.Errorf("decode yaml: line %d: alias %q nested too deep", n.Line, n.Value)
		}
		return b.build(n.Alias, aliases+1)
	default:
		return nil, fmt.Errorf("decode yaml: line %d: unsupported node kind %d", n.Line, n.Kind)
	}
}

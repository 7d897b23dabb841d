package zbxshipper

import (
	"strings"
)

// Metric is a single line of sender input.
type Metric struct {
	Host  string // Host the item belongs to
	Key   string // Item key, the dot joined path to the leaf
	Value string // Item value
}

// String renders the metric as a sender input line, including the trailing newline.
// Fields are separated by single spaces and are not quoted.
func (m Metric) String() string {
	var sb strings.Builder
	sb.Grow(len(m.Host) + len(m.Key) + len(m.Value) + 3)
	sb.WriteString(m.Host)
	sb.WriteByte(' ')
	sb.WriteString(m.Key)
	sb.WriteByte(' ')
	sb.WriteString(m.Value)
	sb.WriteByte('\n')
	return sb.String()
}

type flattenFrame struct {
	node *Node
	next int
}

// Flatten turns data into one Metric per leaf, all of them for hostname. Leaves are visited depth first in the
// order keys were inserted; the Metric key is the path of keys from the root joined with ".". Key segments are not
// escaped, so {"a.b": x} and {"a": {"b": x}} produce the same key.
//
// A data value that is not a *Node has no key path and produces nothing.
func Flatten(hostname string, data Value) []Metric {
	root, ok := data.(*Node)
	if !ok || root.Len() == 0 {
		return nil
	}

	var metrics []Metric
	path := make([]string, 0, 8)
	stack := make([]flattenFrame, 1, 8)
	stack[0] = flattenFrame{node: root}

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.next == len(top.node.entries) {
			stack = stack[:len(stack)-1]
			if len(stack) > 0 {
				// root has no segment of its own
				path = path[:len(path)-1]
			}
			continue
		}
		e := top.node.entries[top.next]
		top.next++

		switch v := e.Value.(type) {
		case *Node:
			if v.Len() == 0 {
				continue
			}
			path = append(path, e.Key)
			stack = append(stack, flattenFrame{node: v})
		case Leaf:
			metrics = append(metrics, Metric{
				Host:  hostname,
				Key:   joinKey(path, e.Key),
				Value: string(v),
			})
		}
	}
	return metrics
}

func joinKey(path []string, key string) string {
	if len(path) == 0 {
		return key
	}
	n := len(key) + len(path)
	for _, p := range path {
		n += len(p)
	}
	var sb strings.Builder
	sb.Grow(n)
	for _, p := range path {
		sb.WriteString(p)
		sb.WriteByte('.')
	}
	sb.WriteString(key)
	return sb.String()
}

package zbxshipper

// Value is a node of the data tree handed to Shipper.Send. It is either a Leaf or a *Node.
type Value interface {
	isValue()
}

// Leaf is a scalar held as the text that ends up on the wire.
type Leaf string

func (Leaf) isValue() {}

// Entry is a single key of a Node.
type Entry struct {
	Key   string
	Value Value
}

// Node is a mapping from key to Value that remembers insertion order.
// The zero value is an empty node ready to use. A Node is not safe for concurrent mutation.
type Node struct {
	entries []Entry
	index   map[string]int
}

func (*Node) isValue() {}

// NewNode returns an empty Node.
func NewNode() *Node {
	return &Node{}
}

// Set stores v under key. Replacing an existing key keeps its original position.
// It returns the node so that literals can be built by chaining.
func (n *Node) Set(key string, v Value) *Node {
	if i, ok := n.index[key]; ok {
		n.entries[i].Value = v
		return n
	}
	if n.index == nil {
		n.index = make(map[string]int)
	}
	n.index[key] = len(n.entries)
	n.entries = append(n.entries, Entry{Key: key, Value: v})
	return n
}

// SetLeaf is shorthand for Set(key, Leaf(s)).
func (n *Node) SetLeaf(key, s string) *Node {
	return n.Set(key, Leaf(s))
}

// Get returns the value stored under key.
func (n *Node) Get(key string) (Value, bool) {
	if n == nil {
		return nil, false
	}
	i, ok := n.index[key]
	if !ok {
		return nil, false
	}
	return n.entries[i].Value, true
}

// Len returns the number of keys directly under n.
func (n *Node) Len() int {
	if n == nil {
		return 0
	}
	return len(n.entries)
}

// Each calls f for every key of n in insertion order.
func (n *Node) Each(f func(key string, v Value)) {
	if n == nil {
		return
	}
	for _, e := range n.entries {
		f(e.Key, e.Value)
	}
}

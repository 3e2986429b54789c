package domain

import (
	"sort"
	"strconv"
)

// NodeKind tags which variant of the extraction tree a Node holds.
type NodeKind string

const (
	NodeObject NodeKind = "object"
	NodeArray  NodeKind = "array"
	NodeLeaf   NodeKind = "leaf"
)

// LeafKind narrows a leaf Node's value type, mirroring the scalar types a
// vision-extraction response can produce for a single field.
type LeafKind string

const (
	LeafString LeafKind = "string"
	LeafNumber LeafKind = "number"
	LeafBool   LeafKind = "bool"
	LeafNull   LeafKind = "null"
)

// Node is the tagged union that represents one position in a document's
// extracted field tree: an object with named children, an ordered array of
// children (used for repeating groups such as bank-statement transaction
// rows), or a leaf scalar value carrying its own confidence and location.
//
// Exactly one of Fields, Items, or Value is meaningful, selected by Kind.
type Node struct {
	Kind   NodeKind        `json:"kind"`
	Fields map[string]Node `json:"fields,omitempty"`
	Items  []Node          `json:"items,omitempty"`

	LeafKind   LeafKind    `json:"leaf_kind,omitempty"`
	Value      interface{} `json:"value,omitempty"`
	Confidence float64     `json:"confidence,omitempty"`
	Page       int         `json:"page,omitempty"`
	BoundingBox *BoundingBox `json:"bounding_box,omitempty"`

	// FieldType carries a model-emitted `_type` tag (e.g. "signature") from
	// a typed leaf object such as {"_type":"signature","value":true,...}.
	// Empty for an ordinary untyped leaf.
	FieldType string `json:"field_type,omitempty"`
}

// BoundingBox locates a leaf's source region on its page, in the
// normalized [0,1] coordinate space the vision model returns.
type BoundingBox struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

// NewObject builds an object Node from named children.
func NewObject(fields map[string]Node) Node {
	return Node{Kind: NodeObject, Fields: fields}
}

// NewArray builds an array Node from ordered children.
func NewArray(items []Node) Node {
	return Node{Kind: NodeArray, Items: items}
}

// NewLeaf builds a scalar Node.
func NewLeaf(kind LeafKind, value interface{}, confidence float64) Node {
	return Node{Kind: NodeLeaf, LeafKind: kind, Value: value, Confidence: confidence}
}

// Walk visits every node in the tree depth-first, calling fn with the
// dotted path (e.g. "transactions.0.amount") and the node itself. Walk
// does not descend into a leaf.
func (n Node) Walk(fn func(path string, node Node)) {
	n.walk("", fn)
}

func (n Node) walk(path string, fn func(string, Node)) {
	fn(path, n)
	switch n.Kind {
	case NodeObject:
		// map iteration order is randomized in Go; sort keys so the walk
		// (and anything built on it, like the transcript text) is
		// deterministic across runs.
		keys := make([]string, 0, len(n.Fields))
		for key := range n.Fields {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			child := n.Fields[key]
			childPath := key
			if path != "" {
				childPath = path + "." + key
			}
			child.walk(childPath, fn)
		}
	case NodeArray:
		for i, child := range n.Items {
			childPath := indexPath(path, i)
			child.walk(childPath, fn)
		}
	}
}

func indexPath(path string, i int) string {
	suffix := strconv.Itoa(i)
	if path == "" {
		return suffix
	}
	return path + "." + suffix
}

// Leaves returns every leaf Node in the tree keyed by its dotted path. The
// result is a map, so it carries no traversal order.
func (n Node) Leaves() map[string]Node {
	out := make(map[string]Node)
	n.Walk(func(path string, node Node) {
		if node.Kind == NodeLeaf {
			out[path] = node
		}
	})
	return out
}

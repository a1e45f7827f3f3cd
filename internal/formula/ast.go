package formula

import (
	"fmt"
	"math"
)

// Node is a parsed expression. The set of node types is closed.
type Node interface {
	String() string
	eval(env *env) (Value, error)
}

// LogicalOp is the connective of a Logical node.
type LogicalOp uint8

const (
	OpAnd LogicalOp = iota
	OpOr
)

func (op LogicalOp) String() string {
	if op == OpOr {
		return "|"
	}
	return "&"
}

// Literal is a number or boolean constant.
type Literal struct {
	Value Value
}

// FeatureRef reads a feature from the snapshot; absent features are null.
type FeatureRef struct {
	Name string
}

// ThresholdRef reads cfg.<Name> from the threshold mapping; absent keys fail.
type ThresholdRef struct {
	Name string
}

// Comparison applies one of > < >= <= == != to two operands.
type Comparison struct {
	Op    string
	Left  Node
	Right Node
}

// Logical joins two operands with & or |. The result is the deciding
// operand, not a coerced boolean.
type Logical struct {
	Op    LogicalOp
	Left  Node
	Right Node
}

// Not negates the truthiness of its operand.
type Not struct {
	Operand Node
}

type env struct {
	features   map[string]float64
	thresholds map[string]float64
}

func (n *Literal) String() string { return n.Value.String() }
func (n *FeatureRef) String() string { return n.Name }
func (n *ThresholdRef) String() string { return thresholdPrefix + n.Name }
func (n *Not) String() string { return "not " + n.Operand.String() }

func (n *Comparison) String() string {
	return "(" + n.Left.String() + " " + n.Op + " " + n.Right.String() + ")"
}

func (n *Logical) String() string {
	return "(" + n.Left.String() + " " + n.Op.String() + " " + n.Right.String() + ")"
}

func (n *Literal) eval(*env) (Value, error) { return n.Value, nil }

func (n *FeatureRef) eval(e *env) (Value, error) {
	v, ok := e.features[n.Name]
	if !ok || math.IsNaN(v) {
		return Null(), nil
	}
	return Number(v), nil
}

func (n *ThresholdRef) eval(e *env) (Value, error) {
	v, ok := e.thresholds[n.Name]
	if !ok {
		return Null(), fmt.Errorf("threshold %q is not configured", n.Name)
	}
	return Number(v), nil
}

func (n *Not) eval(e *env) (Value, error) {
	v, err := n.Operand.eval(e)
	if err != nil {
		return Null(), err
	}
	return Bool(!v.Truthy()), nil
}

func (n *Logical) eval(e *env) (Value, error) {
	left, err := n.Left.eval(e)
	if err != nil {
		return Null(), err
	}
	switch n.Op {
	case OpAnd:
		if !left.Truthy() {
			return left, nil
		}
	case OpOr:
		if left.Truthy() {
			return left, nil
		}
	}
	return n.Right.eval(e)
}

func (n *Comparison) eval(e *env) (Value, error) {
	left, err := n.Left.eval(e)
	if err != nil {
		return Null(), err
	}
	right, err := n.Right.eval(e)
	if err != nil {
		return Null(), err
	}
	switch n.Op {
	case "==", "!=":
		eq := equal(left, right)
		if n.Op == "!=" {
			eq = !eq
		}
		return Bool(eq), nil
	}
	l, lok := left.numeric()
	r, rok := right.numeric()
	if !lok || !rok {
		return Null(), fmt.Errorf("cannot compare %s %s %s (%s)", left.Kind(), n.Op, right.Kind(), n.String())
	}
	switch n.Op {
	case ">":
		return Bool(l > r), nil
	case "<":
		return Bool(l < r), nil
	case ">=":
		return Bool(l >= r), nil
	case "<=":
		return Bool(l <= r), nil
	default:
		return Null(), fmt.Errorf("unknown comparison operator %q", n.Op)
	}
}

// equal follows null == null and null != anything else.
func equal(a, b Value) bool {
	if a.IsNull() || b.IsNull() {
		return a.IsNull() && b.IsNull()
	}
	x, _ := a.numeric()
	y, _ := b.numeric()
	return x == y
}

// Walk visits n and its children depth-first.
func Walk(n Node, fn func(Node)) {
	if n == nil {
		return
	}
	fn(n)
	switch t := n.(type) {
	case *Comparison:
		Walk(t.Left, fn)
		Walk(t.Right, fn)
	case *Logical:
		Walk(t.Left, fn)
		Walk(t.Right, fn)
	case *Not:
		Walk(t.Operand, fn)
	}
}

func collectNames(n Node, threshold bool) []string {
	seen := make(map[string]struct{})
	var out []string
	Walk(n, func(node Node) {
		var name string
		switch t := node.(type) {
		case *FeatureRef:
			if threshold {
				return
			}
			name = t.Name
		case *ThresholdRef:
			if !threshold {
				return
			}
			name = t.Name
		default:
			return
		}
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		out = append(out, name)
	})
	return out
}

// Package filter implements the small expression language WebSocket
// subscribers attach to the status stream. An expression is evaluated
// against one status update at a time; only matching updates are delivered.
//
//	size > 0
//	queue contains "task" && size >= 2
//	queue == "python-worker-queue" || listeners > 0
package filter

// Operator represents a logical or comparison operator
type Operator string

const (
	OpEqual          Operator = "=="
	OpNotEqual       Operator = "!="
	OpGreaterThan    Operator = ">"
	OpLessThan       Operator = "<"
	OpGreaterOrEqual Operator = ">="
	OpLessOrEqual    Operator = "<="
	OpContains       Operator = "contains"
	OpAnd            Operator = "&&"
	OpOr             Operator = "||"
)

// ValueType represents the type of a literal value
type ValueType string

const (
	TypeString ValueType = "string"
	TypeNumber ValueType = "number"
)

// Expression is the interface for all AST nodes
type Expression interface {
	Evaluate(ctx Context) (any, error)
}

// Context carries the fields of one status update. Values are whatever the
// producer put in: strings, ints, floats, bools, or nested maps.
type Context map[string]any

// BinaryExpression represents a binary operation (e.g., size > 0)
type BinaryExpression struct {
	Left     Expression
	Operator Operator
	Right    Expression
}

// Literal represents a constant value
type Literal struct {
	Value any
	Type  ValueType
}

func (l *Literal) Evaluate(ctx Context) (any, error) {
	return l.Value, nil
}

// Identifier represents a field lookup on the status update
type Identifier struct {
	Name string
}

func (i *Identifier) Evaluate(ctx Context) (any, error) {
	if val, ok := ctx[i.Name]; ok {
		return val, nil
	}
	return nil, nil // Treat missing as null
}

// PropertyAccess represents accessing a nested field (e.g., status.size)
type PropertyAccess struct {
	Object   Expression
	Property string
}

func (p *PropertyAccess) Evaluate(ctx Context) (any, error) {
	obj, err := p.Object.Evaluate(ctx)
	if err != nil {
		return nil, err
	}

	if obj == nil {
		return nil, nil
	}

	switch m := obj.(type) {
	case map[string]any:
		if val, ok := m[p.Property]; ok {
			return val, nil
		}
	case map[string]string:
		if val, ok := m[p.Property]; ok {
			return val, nil
		}
	}

	return nil, nil
}

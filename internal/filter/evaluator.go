package filter

import (
	"fmt"
	"strconv"
	"strings"
)

// Match evaluates expr against ctx and reduces the result to a delivery
// decision. A nil expression matches everything; an evaluation error
// matches nothing.
func Match(expr Expression, ctx Context) bool {
	if expr == nil {
		return true
	}
	result, err := expr.Evaluate(ctx)
	if err != nil {
		return false
	}
	return toBool(result)
}

// Evaluate evaluates a binary expression
func (e *BinaryExpression) Evaluate(ctx Context) (any, error) {
	left, err := e.Left.Evaluate(ctx)
	if err != nil {
		return nil, err
	}

	right, err := e.Right.Evaluate(ctx)
	if err != nil {
		return nil, err
	}

	switch e.Operator {
	case OpEqual:
		return isEqual(left, right), nil
	case OpNotEqual:
		return !isEqual(left, right), nil
	case OpGreaterThan:
		return compare(left, right) > 0, nil
	case OpLessThan:
		return compare(left, right) < 0, nil
	case OpGreaterOrEqual:
		return compare(left, right) >= 0, nil
	case OpLessOrEqual:
		return compare(left, right) <= 0, nil
	case OpContains:
		return contains(left, right), nil
	case OpAnd:
		return toBool(left) && toBool(right), nil
	case OpOr:
		return toBool(left) || toBool(right), nil
	default:
		return nil, fmt.Errorf("unknown operator: %s", e.Operator)
	}
}

func isEqual(a, b any) bool {
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

// compare orders numerically when both sides parse as numbers, so
// "size > 9" behaves on a queue holding ten messages. Everything else
// falls back to string ordering.
func compare(a, b any) int {
	sa := fmt.Sprintf("%v", a)
	sb := fmt.Sprintf("%v", b)

	na, errA := strconv.ParseFloat(sa, 64)
	nb, errB := strconv.ParseFloat(sb, 64)
	if errA == nil && errB == nil {
		switch {
		case na < nb:
			return -1
		case na > nb:
			return 1
		default:
			return 0
		}
	}

	if sa < sb {
		return -1
	} else if sa > sb {
		return 1
	}
	return 0
}

func contains(container, item any) bool {
	sContainer := fmt.Sprintf("%v", container)
	sItem := fmt.Sprintf("%v", item)
	return strings.Contains(sContainer, sItem)
}

func toBool(v any) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	s := fmt.Sprintf("%v", v)
	return s != "" && s != "false" && s != "0" && s != "<nil>"
}

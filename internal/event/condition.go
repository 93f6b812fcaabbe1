// Package event binds boolean conditions to actions that fire on their edges.
// It contains no I/O and performs no logging. Conditions are evaluated and
// reactions are polled by whatever loop the caller registers them with.
package event

// Condition is a re-evaluable boolean predicate.
//
// Get may fail; the error is returned to the poll that asked for the value
// and is never retried or suppressed here. Implementations that keep state
// (for example, a sensor history) only need this one method to be usable
// with New and every binding operator.
type Condition interface {
	Get() (bool, error)
}

// ConditionFunc adapts a plain function to a Condition.
type ConditionFunc func() (bool, error)

// Get calls f.
func (f ConditionFunc) Get() (bool, error) {
	return f()
}

// Func wraps a predicate that cannot fail.
func Func(f func() bool) Condition {
	return ConditionFunc(func() (bool, error) {
		return f(), nil
	})
}

// FuncE wraps a predicate that can fail.
func FuncE(f func() (bool, error)) Condition {
	return ConditionFunc(f)
}

// Never is a condition that is always false.
var Never Condition = ConditionFunc(func() (bool, error) { return false, nil })

// And returns a condition that is true when both a and b are true.
// a is evaluated first and b is not evaluated when a is false or fails.
func And(a, b Condition) Condition {
	return ConditionFunc(func() (bool, error) {
		v, err := a.Get()
		if err != nil || !v {
			return false, err
		}
		return b.Get()
	})
}

// Or returns a condition that is true when either a or b is true.
// b is not evaluated when a is true or fails.
func Or(a, b Condition) Condition {
	return ConditionFunc(func() (bool, error) {
		v, err := a.Get()
		if err != nil || v {
			return v, err
		}
		return b.Get()
	})
}

// Not inverts a.
func Not(a Condition) Condition {
	return ConditionFunc(func() (bool, error) {
		v, err := a.Get()
		if err != nil {
			return false, err
		}
		return !v, nil
	})
}

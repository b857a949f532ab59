// Package expect provides the assertion DSL used inside eval test bodies.
// Each predicate either returns normally or fails the test by panicking with
// a *Failure; the generation executor recovers the panic and records the
// message on the TestResult.
package expect

import (
	"fmt"
	"reflect"
	"strings"
)

// Failure is the panic value raised by a failed expectation.
type Failure struct {
	Message string
}

func (f *Failure) Error() string { return f.Message }

func fail(format string, args ...any) {
	panic(&Failure{Message: fmt.Sprintf(format, args...)})
}

// Expectation wraps a value for making assertions.
type Expectation struct {
	value any
}

// Value creates an expectation wrapper for making assertions.
func Value(v any) *Expectation {
	return &Expectation{value: v}
}

// ToEqual asserts deep equality with expected.
func (e *Expectation) ToEqual(expected any) {
	if !reflect.DeepEqual(e.value, expected) {
		fail("Expected %v to equal %v", e.value, expected)
	}
}

// ToNotEqual asserts the value is not deeply equal to expected.
func (e *Expectation) ToNotEqual(expected any) {
	if reflect.DeepEqual(e.value, expected) {
		fail("Expected %v to not equal %v", e.value, expected)
	}
}

// ToBeTrue asserts the value is the boolean true.
func (e *Expectation) ToBeTrue() {
	if b, ok := e.value.(bool); !ok || !b {
		fail("Expected %v to be true", e.value)
	}
}

// ToBeFalse asserts the value is the boolean false.
func (e *Expectation) ToBeFalse() {
	if b, ok := e.value.(bool); !ok || b {
		fail("Expected %v to be false", e.value)
	}
}

// ToBeNil asserts the value is nil.
func (e *Expectation) ToBeNil() {
	if !isNil(e.value) {
		fail("Expected %v to be nil", e.value)
	}
}

// ToNotBeNil asserts the value is not nil.
func (e *Expectation) ToNotBeNil() {
	if isNil(e.value) {
		fail("Expected value to not be nil")
	}
}

// ToContain asserts the value (string, slice, array or map) contains item.
// For maps the item is matched against keys.
func (e *Expectation) ToContain(item any) {
	if !contains(e.value, item) {
		fail("Expected %v to contain %v", e.value, item)
	}
}

// ToHaveLength asserts the value has the given length.
func (e *Expectation) ToHaveLength(expected int) {
	rv := reflect.ValueOf(e.value)
	switch rv.Kind() {
	case reflect.String, reflect.Slice, reflect.Array, reflect.Map, reflect.Chan:
		if rv.Len() != expected {
			fail("Expected length %d, got %d", expected, rv.Len())
		}
	default:
		fail("Expected a value with a length, got %T", e.value)
	}
}

// ToBeCloseTo asserts a numeric value is within tolerance of expected.
func (e *Expectation) ToBeCloseTo(expected, tolerance float64) {
	v, ok := toFloat(e.value)
	if !ok {
		fail("Expected a numeric value, got %T", e.value)
	}
	diff := v - expected
	if diff < 0 {
		diff = -diff
	}
	if diff > tolerance {
		fail("Expected %v to be close to %v (within %v)", e.value, expected, tolerance)
	}
}

// ToBeGreaterThan asserts a numeric value is greater than expected.
func (e *Expectation) ToBeGreaterThan(expected float64) {
	v, ok := toFloat(e.value)
	if !ok {
		fail("Expected a numeric value, got %T", e.value)
	}
	if !(v > expected) {
		fail("Expected %v to be greater than %v", e.value, expected)
	}
}

// ToBeLessThan asserts a numeric value is less than expected.
func (e *Expectation) ToBeLessThan(expected float64) {
	v, ok := toFloat(e.value)
	if !ok {
		fail("Expected a numeric value, got %T", e.value)
	}
	if !(v < expected) {
		fail("Expected %v to be less than %v", e.value, expected)
	}
}

// ToPanic asserts that calling the wrapped func() panics.
func (e *Expectation) ToPanic() {
	fn, ok := e.value.(func())
	if !ok {
		fail("Expected a func(), got %T", e.value)
	}
	panicked := didPanic(fn)
	if !panicked {
		fail("Expected a panic, but nothing was raised")
	}
}

func didPanic(fn func()) (panicked bool) {
	defer func() {
		if r := recover(); r != nil {
			panicked = true
		}
	}()
	fn()
	return false
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Pointer, reflect.Slice:
		return rv.IsNil()
	}
	return false
}

func contains(container, item any) bool {
	if s, ok := container.(string); ok {
		if sub, ok := item.(string); ok {
			return strings.Contains(s, sub)
		}
		return false
	}
	rv := reflect.ValueOf(container)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			if reflect.DeepEqual(rv.Index(i).Interface(), item) {
				return true
			}
		}
	case reflect.Map:
		for _, k := range rv.MapKeys() {
			if reflect.DeepEqual(k.Interface(), item) {
				return true
			}
		}
	}
	return false
}

func toFloat(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

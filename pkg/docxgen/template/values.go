package template

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
)

// Data is the variable context handed to a render.
type Data map[string]interface{}

// Scope resolves variables through nested loop bindings down to the
// render data, and carries the function registry.
type Scope struct {
	vars   map[string]interface{}
	parent *Scope
	funcs  *Registry
}

// NewScope creates the outermost scope for a render.
func NewScope(data Data, funcs *Registry) *Scope {
	if funcs == nil {
		funcs = NewRegistry()
	}
	return &Scope{vars: data, funcs: funcs}
}

// Child returns a scope binding vars on top of s.
func (s *Scope) Child(vars map[string]interface{}) *Scope {
	return &Scope{vars: vars, parent: s, funcs: s.funcs}
}

// Lookup resolves name from the innermost binding outwards.
func (s *Scope) Lookup(name string) (interface{}, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if v, ok := cur.vars[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// root flattens every binding into one map, inner bindings winning.
func (s *Scope) root() Data {
	var chain []*Scope
	for cur := s; cur != nil; cur = cur.parent {
		chain = append(chain, cur)
	}
	out := Data{}
	for i := len(chain) - 1; i >= 0; i-- {
		for k, v := range chain[i].vars {
			out[k] = v
		}
	}
	return out
}

// Truthy reports whether a value counts as true in a condition.
func Truthy(val interface{}) bool {
	if val == nil {
		return false
	}
	switch v := val.(type) {
	case bool:
		return v
	case string:
		return v != ""
	case Markup:
		return v.XML != ""
	}
	if f, ok := toFloat64(val); ok {
		return f != 0
	}
	rv := reflect.ValueOf(val)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len() > 0
	case reflect.Ptr, reflect.Interface:
		return !rv.IsNil()
	}
	return true
}

// FormatValue converts a value to the text written into the document.
func FormatValue(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float32:
		return strconv.FormatFloat(float64(v), 'g', 10, 32)
	case float64:
		return strconv.FormatFloat(v, 'g', 15, 64)
	case Markup:
		return v.XML
	}
	return fmt.Sprintf("%v", value)
}

func toFloat64(val interface{}) (float64, bool) {
	switch v := val.(type) {
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}

func toInt(val interface{}) (int, bool) {
	if isInteger(val) {
		f, _ := toFloat64(val)
		return int(f), true
	}
	if f, ok := toFloat64(val); ok && f == float64(int(f)) {
		return int(f), true
	}
	return 0, false
}

func isInteger(val interface{}) bool {
	switch val.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	}
	return false
}

// mapField reads key from any map keyed by strings.
func mapField(obj interface{}, key string) interface{} {
	switch v := obj.(type) {
	case nil:
		return nil
	case Data:
		return v[key]
	case map[string]interface{}:
		return v[key]
	}
	rv := reflect.ValueOf(obj)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil
	}
	item := rv.MapIndex(reflect.ValueOf(key).Convert(rv.Type().Key()))
	if !item.IsValid() {
		return nil
	}
	return item.Interface()
}

// sliceIndex reads position i, counting from the end when negative.
func sliceIndex(obj interface{}, i int) interface{} {
	if obj == nil {
		return nil
	}
	rv := reflect.ValueOf(obj)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array && rv.Kind() != reflect.String {
		return nil
	}
	if i < 0 {
		i += rv.Len()
	}
	if i < 0 || i >= rv.Len() {
		return nil
	}
	if rv.Kind() == reflect.String {
		return string(rv.String()[i])
	}
	return rv.Index(i).Interface()
}

// toSlice turns a loop collection into items. Maps iterate in key order and
// yield {key, value} entries.
func toSlice(val interface{}) ([]interface{}, error) {
	switch v := val.(type) {
	case nil:
		return nil, nil
	case []interface{}:
		return v, nil
	}
	rv := reflect.ValueOf(val)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]interface{}, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}
		return out, nil
	case reflect.Map:
		keys := rv.MapKeys()
		sort.Slice(keys, func(i, j int) bool {
			return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface())
		})
		out := make([]interface{}, len(keys))
		for i, k := range keys {
			out[i] = map[string]interface{}{"key": k.Interface(), "value": rv.MapIndex(k).Interface()}
		}
		return out, nil
	}
	return nil, fmt.Errorf("cannot iterate over %T", val)
}

func binaryOp(left interface{}, op string, right interface{}) (interface{}, error) {
	switch op {
	case "==":
		return equal(left, right), nil
	case "!=":
		return !equal(left, right), nil
	case "&":
		return Truthy(left) && Truthy(right), nil
	case "|":
		return Truthy(left) || Truthy(right), nil
	case "+":
		ls, lok := left.(string)
		rs, rok := right.(string)
		if lok || rok {
			if !lok {
				ls = FormatValue(left)
			}
			if !rok {
				rs = FormatValue(right)
			}
			return ls + rs, nil
		}
	}

	if op == "<" || op == ">" || op == "<=" || op == ">=" {
		if ls, ok := left.(string); ok {
			if rs, ok := right.(string); ok {
				return compare(op, ls < rs, ls == rs), nil
			}
		}
	}

	l, lok := toFloat64(left)
	r, rok := toFloat64(right)
	if !lok || !rok {
		return nil, fmt.Errorf("unsupported operand types for %s: %T and %T", op, left, right)
	}
	ints := isInteger(left) && isInteger(right)

	switch op {
	case "<", ">", "<=", ">=":
		return compare(op, l < r, l == r), nil
	case "+":
		return number(l+r, ints), nil
	case "-":
		return number(l-r, ints), nil
	case "*":
		return number(l*r, ints), nil
	case "/":
		if r == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		q := l / r
		return number(q, ints && q == float64(int(q))), nil
	case "%":
		li, lok := toInt(left)
		ri, rok := toInt(right)
		if !lok || !rok {
			return nil, fmt.Errorf("modulo requires integers, got %T and %T", left, right)
		}
		if ri == 0 {
			return nil, fmt.Errorf("modulo by zero")
		}
		return li % ri, nil
	}
	return nil, fmt.Errorf("unknown binary operator: %s", op)
}

func compare(op string, less, eq bool) bool {
	switch op {
	case "<":
		return less
	case ">":
		return !less && !eq
	case "<=":
		return less || eq
	}
	return !less
}

func number(f float64, asInt bool) interface{} {
	if asInt {
		return int(f)
	}
	return f
}

func equal(left, right interface{}) bool {
	if left == nil || right == nil {
		return left == nil && right == nil
	}
	if l, ok := toFloat64(left); ok {
		if r, ok := toFloat64(right); ok {
			return l == r
		}
	}
	lt, rt := reflect.TypeOf(left), reflect.TypeOf(right)
	if lt != rt || !lt.Comparable() {
		return false
	}
	return left == right
}

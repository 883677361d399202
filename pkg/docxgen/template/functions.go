package template

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Function is a callable available inside markers.
type Function interface {
	Call(args ...interface{}) (interface{}, error)
	Name() string
	// MinArgs and MaxArgs bound the argument count; MaxArgs -1 is unbounded.
	MinArgs() int
	MaxArgs() int
}

type simpleFunction struct {
	name    string
	minArgs int
	maxArgs int
	handler func(args ...interface{}) (interface{}, error)
}

// NewFunction wraps handler with argument count validation.
func NewFunction(name string, minArgs, maxArgs int, handler func(args ...interface{}) (interface{}, error)) Function {
	return &simpleFunction{name: name, minArgs: minArgs, maxArgs: maxArgs, handler: handler}
}

func (f *simpleFunction) Call(args ...interface{}) (interface{}, error) {
	if len(args) < f.minArgs {
		return nil, fmt.Errorf("function %s requires at least %d arguments, got %d", f.name, f.minArgs, len(args))
	}
	if f.maxArgs >= 0 && len(args) > f.maxArgs {
		return nil, fmt.Errorf("function %s accepts at most %d arguments, got %d", f.name, f.maxArgs, len(args))
	}
	return f.handler(args...)
}

func (f *simpleFunction) Name() string { return f.name }
func (f *simpleFunction) MinArgs() int { return f.minArgs }
func (f *simpleFunction) MaxArgs() int { return f.maxArgs }

// Registry holds the functions visible to one render.
type Registry struct {
	mu        sync.RWMutex
	functions map[string]Function
}

// NewRegistry returns a registry holding the builtin functions.
func NewRegistry() *Registry {
	r := &Registry{functions: make(map[string]Function)}
	for _, fn := range builtins() {
		r.functions[fn.Name()] = fn
	}
	return r
}

// Register adds fn, replacing any function with the same name.
func (r *Registry) Register(fn Function) error {
	if fn.Name() == "" {
		return fmt.Errorf("function name cannot be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.functions[fn.Name()] = fn
	return nil
}

// Clone copies the registry so per-render functions do not leak.
func (r *Registry) Clone() *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := &Registry{functions: make(map[string]Function, len(r.functions))}
	for name, fn := range r.functions {
		out.functions[name] = fn
	}
	return out
}

func (r *Registry) Lookup(name string) (Function, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.functions[name]
	return fn, ok
}

// Names lists the registered functions in order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.functions))
	for name := range r.functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func builtins() []Function {
	title := cases.Title(language.Und)
	str := func(name string, fn func(string) string) Function {
		return NewFunction(name, 1, 1, func(args ...interface{}) (interface{}, error) {
			if args[0] == nil {
				return nil, nil
			}
			return fn(FormatValue(args[0])), nil
		})
	}

	return []Function{
		NewFunction("empty", 1, 1, func(args ...interface{}) (interface{}, error) {
			return isEmpty(args[0]), nil
		}),
		NewFunction("coalesce", 1, -1, func(args ...interface{}) (interface{}, error) {
			for _, arg := range args {
				if !isEmpty(arg) {
					return arg, nil
				}
			}
			return nil, nil
		}),
		NewFunction("default", 2, 2, func(args ...interface{}) (interface{}, error) {
			if isEmpty(args[0]) {
				return args[1], nil
			}
			return args[0], nil
		}),
		NewFunction("list", 0, -1, func(args ...interface{}) (interface{}, error) {
			return append([]interface{}{}, args...), nil
		}),
		NewFunction("str", 1, 1, func(args ...interface{}) (interface{}, error) {
			return FormatValue(args[0]), nil
		}),
		str("lower", strings.ToLower),
		str("lowercase", strings.ToLower),
		str("upper", strings.ToUpper),
		str("uppercase", strings.ToUpper),
		str("titlecase", title.String),
		str("trim", strings.TrimSpace),
		NewFunction("replace", 3, 3, func(args ...interface{}) (interface{}, error) {
			return strings.ReplaceAll(FormatValue(args[0]), FormatValue(args[1]), FormatValue(args[2])), nil
		}),
		NewFunction("join", 1, 2, func(args ...interface{}) (interface{}, error) {
			items, err := toSlice(args[0])
			if err != nil {
				return nil, err
			}
			sep := ""
			if len(args) == 2 {
				sep = FormatValue(args[1])
			}
			parts := make([]string, len(items))
			for i, item := range items {
				parts[i] = FormatValue(item)
			}
			return strings.Join(parts, sep), nil
		}),
		NewFunction("length", 1, 1, func(args ...interface{}) (interface{}, error) {
			if args[0] == nil {
				return 0, nil
			}
			if s, ok := args[0].(string); ok {
				return len([]rune(s)), nil
			}
			rv := reflect.ValueOf(args[0])
			switch rv.Kind() {
			case reflect.Slice, reflect.Array, reflect.Map:
				return rv.Len(), nil
			}
			return nil, fmt.Errorf("length not supported for %T", args[0])
		}),
		NewFunction("contains", 2, 2, func(args ...interface{}) (interface{}, error) {
			if s, ok := args[1].(string); ok {
				return strings.Contains(s, FormatValue(args[0])), nil
			}
			items, err := toSlice(args[1])
			if err != nil {
				return nil, err
			}
			for _, item := range items {
				if equal(item, args[0]) {
					return true, nil
				}
			}
			return false, nil
		}),
		NewFunction("round", 1, 1, func(args ...interface{}) (interface{}, error) {
			f, ok := toFloat64(args[0])
			if !ok {
				return nil, fmt.Errorf("round requires a number, got %T", args[0])
			}
			return int(math.Round(f)), nil
		}),
		NewFunction("range", 1, 3, func(args ...interface{}) (interface{}, error) {
			bounds := make([]int, len(args))
			for i, arg := range args {
				n, ok := toInt(arg)
				if !ok {
					return nil, fmt.Errorf("range requires integers, got %T", arg)
				}
				bounds[i] = n
			}
			start, end, step := 0, bounds[0], 1
			if len(bounds) > 1 {
				start, end = bounds[0], bounds[1]
			}
			if len(bounds) > 2 {
				step = bounds[2]
			}
			if step == 0 {
				return nil, fmt.Errorf("range step cannot be zero")
			}
			var out []interface{}
			for i := start; (step > 0 && i < end) || (step < 0 && i > end); i += step {
				out = append(out, i)
			}
			return out, nil
		}),
	}
}

func isEmpty(val interface{}) bool {
	switch v := val.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case bool:
		return false
	}
	rv := reflect.ValueOf(val)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len() == 0
	}
	return false
}

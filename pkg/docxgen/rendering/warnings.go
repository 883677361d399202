package rendering

import "fmt"

// Warnings is an insertion-ordered set of non-fatal messages. The zero value
// is ready to use.
type Warnings struct {
	seen  map[string]struct{}
	items []string
}

func (w *Warnings) Add(format string, args ...interface{}) {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	if w.seen == nil {
		w.seen = make(map[string]struct{})
	}
	if _, ok := w.seen[msg]; ok {
		return
	}
	w.seen[msg] = struct{}{}
	w.items = append(w.items, msg)
}

// Merge adds every message of other, keeping the order of first insertion.
func (w *Warnings) Merge(other *Warnings) {
	if other == nil {
		return
	}
	for _, msg := range other.items {
		w.Add("%s", msg)
	}
}

func (w *Warnings) List() []string {
	out := make([]string, len(w.items))
	copy(out, w.items)
	return out
}

func (w *Warnings) Len() int {
	return len(w.items)
}

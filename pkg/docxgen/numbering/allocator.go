// Package numbering attaches list numbering to paragraphs, starting a fresh
// concrete numbering instance for the first item of a list and continuing it
// for the items that follow.
package numbering

import (
	"strconv"

	"github.com/beevik/etree"
)

// Ref identifies the concrete numbering instance and level of a list item.
type Ref struct {
	NumID int
	Level int
}

// Item is a paragraph that can carry list numbering.
type Item interface {
	// ListStyle returns the paragraph style id, or "" when none is set.
	ListStyle() string
	// ListNumbering returns the numbering attached to the paragraph.
	ListNumbering() (Ref, bool)
	SetListNumbering(ref Ref)
}

// Allocator searches and extends a w:numbering tree.
type Allocator struct {
	root *etree.Element
}

// New returns an allocator working on the w:numbering root element.
func New(root *etree.Element) *Allocator {
	return &Allocator{root: root}
}

// Assign attaches numbering to item. A negative level means "not given".
//
// When prev carries numbering, item continues the same concrete instance
// (at prev's level unless one is given). Otherwise an abstract definition is
// chosen by paragraph style, then by list type, and a new concrete instance
// restarting at the target level is created.
func (a *Allocator) Assign(item, prev Item, level int, ordered bool) Ref {
	if prev != nil {
		if ref, ok := prev.ListNumbering(); ok {
			if level < 0 {
				level = ref.Level
			}
			next := Ref{NumID: ref.NumID, Level: level}
			item.SetListNumbering(next)
			return next
		}
	}

	if level < 0 {
		level = 0
	}
	abstractID := a.AbstractID(item.ListStyle(), level, ordered)
	ref := Ref{NumID: a.addNum(abstractID, level), Level: level}
	item.SetListNumbering(ref)
	return ref
}

// AbstractID picks the abstract numbering definition for a list, trying in
// order: a single-level definition using the style, any definition using the
// style at level, a single-level definition of the list type, any definition
// of the list type at level. Ties go to the smallest id; 0 when none match.
func (a *Allocator) AbstractID(style string, level int, ordered bool) int {
	format := "bullet"
	if ordered {
		format = "decimal"
	}

	byStyle := func(lvl *etree.Element) bool {
		pStyle := lvl.SelectElement("w:pStyle")
		return pStyle != nil && pStyle.SelectAttrValue("w:val", "") == style
	}
	byFormat := func(lvl *etree.Element) bool {
		numFmt := lvl.SelectElement("w:numFmt")
		return numFmt != nil && numFmt.SelectAttrValue("w:val", "") == format
	}

	var matchers []func(*etree.Element) bool
	if style != "" {
		matchers = append(matchers, byStyle)
	}
	matchers = append(matchers, byFormat)

	for _, match := range matchers {
		for _, single := range []bool{true, false} {
			if id, ok := a.minAbstractID(match, single, level); ok {
				return id
			}
		}
	}
	return 0
}

func (a *Allocator) minAbstractID(match func(*etree.Element) bool, single bool, level int) (int, bool) {
	target := strconv.Itoa(level)
	if single {
		target = "0"
	}

	best, found := 0, false
	for _, abstract := range a.root.SelectElements("w:abstractNum") {
		levels := abstract.SelectElements("w:lvl")
		if single && len(levels) != 1 {
			continue
		}
		for _, lvl := range levels {
			if lvl.SelectAttrValue("w:ilvl", "") != target || !match(lvl) {
				continue
			}
			id, err := strconv.Atoi(abstract.SelectAttrValue("w:abstractNumId", ""))
			if err != nil {
				continue
			}
			if !found || id < best {
				best, found = id, true
			}
		}
	}
	return best, found
}

// addNum creates a w:num pointing at abstractID whose level restarts at 1.
func (a *Allocator) addNum(abstractID, level int) int {
	numID := a.nextNumID()

	num := etree.NewElement("w:num")
	num.CreateAttr("w:numId", strconv.Itoa(numID))
	num.CreateElement("w:abstractNumId").CreateAttr("w:val", strconv.Itoa(abstractID))
	override := num.CreateElement("w:lvlOverride")
	override.CreateAttr("w:ilvl", strconv.Itoa(level))
	override.CreateElement("w:startOverride").CreateAttr("w:val", "1")

	if cleanup := a.root.SelectElement("w:numIdMacAtCleanup"); cleanup != nil {
		a.root.InsertChildAt(cleanup.Index(), num)
	} else {
		a.root.AddChild(num)
	}
	return numID
}

// nextNumID returns the first positive id not used by a w:num.
func (a *Allocator) nextNumID() int {
	used := make(map[int]bool)
	for _, num := range a.root.SelectElements("w:num") {
		if id, err := strconv.Atoi(num.SelectAttrValue("w:numId", "")); err == nil {
			used[id] = true
		}
	}
	id := 1
	for used[id] {
		id++
	}
	return id
}

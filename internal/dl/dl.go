// Package dl models the display-list color builder the device-code chain
// writes its results into. The real display list, band manager and image
// store live entirely outside this module's scope (spec.md §1); this
// package defines the narrow interface the color pipeline calls through
// (dlc_alloc_fillin, dlc_apply_overprints, dlc_remove_colorant, and the
// none/black/current-color accessors) plus an in-memory reference
// implementation used by tests and by callers with no real back end.
package dl

import "github.com/inkrip/devicecode/internal/colorvalue"

// ColorantIndex is duplicated here (rather than imported from package
// colorant) to keep this collaborator boundary free of a dependency on
// the device-color-chain's own colorant-sort machinery; it is numerically
// identical to colorant.Index.
type ColorantIndex int32

// Kind distinguishes the three shapes a DL color can take, per spec.md
// §4.4 step 7.
type Kind int

const (
	// KindNone is a pattern-painted-with-no-pattern / all-overprinted /
	// zero-colorant color: the object should not render.
	KindNone Kind = iota
	// KindBlack is an uncoloured-pattern or zero-sorted-colorants color.
	KindBlack
	// KindFull carries an explicit (possibly reduced, possibly
	// max-blitted) colorant/value set.
	KindFull
)

// Color is the display-list color a chain invocation produces.
type Color struct {
	Kind      Kind
	Colorants []ColorantIndex
	Values    []colorvalue.Value
	// MaxBlit records, for KindFull colors produced via a max-blit
	// (transformed-spot or non-intercept avoid-max-blit fallback), which
	// colorants are max-blitted rather than painted outright.
	MaxBlit []bool
}

// SPFlags is the small bit-set of per-object rendering flags the device-
// code link threads through dl_set_currentspflags (RENDER_KNOCKOUT,
// RENDER_PATTERN, ...).
type SPFlags uint8

const (
	RenderKnockout SPFlags = 1 << iota
	RenderPattern
)

// MergeOp selects how dlc_apply_overprints combines an incoming color
// with the one already present at a colorant slot.
type MergeOp int

const (
	// MergeReplace overwrites the slot outright (an ordinary paint).
	MergeReplace MergeOp = iota
	// MergeMax keeps the maximum of the new and old values (a max-blit).
	MergeMax
)

// Builder is the narrow interface the color chain invokes to realize its
// decisions as display-list state. It corresponds to dlc_alloc_fillin,
// dlc_apply_overprints, dlc_remove_colorant, dlc_get_none, dlc_get_black,
// dlc_release and dl_set_currentspflags in spec.md §6.
type Builder interface {
	// CurrentColor returns the color object the next builder call
	// mutates (dlc_currentcolor).
	CurrentColor() *Color
	// Release returns ownership of cur's previous contents to the
	// context (dlc_release), before it is overwritten.
	Release(cur *Color)
	// AllocFillin fills cur with an explicit colorant/value set
	// (dlc_alloc_fillin).
	AllocFillin(colorants []ColorantIndex, values []colorvalue.Value, cur *Color) error
	// ApplyOverprints merges colorants/values into cur using op
	// (dlc_apply_overprints).
	ApplyOverprints(op MergeOp, colorants []ColorantIndex, values []colorvalue.Value, cur *Color) error
	// RemoveColorant strips ci from cur in place (dlc_remove_colorant).
	RemoveColorant(cur *Color, ci ColorantIndex)
	// GetNone sets cur to the none color (dlc_get_none).
	GetNone(cur *Color)
	// GetBlack sets cur to the black color (dlc_get_black).
	GetBlack(cur *Color)
	// SetCurrentSPFlags records the object's render flags
	// (dl_set_currentspflags).
	SetCurrentSPFlags(flags SPFlags)
}

// MemBuilder is a minimal in-memory Builder, sufficient for unit tests
// and for callers with no real display-list back end to wire in.
type MemBuilder struct {
	current Color
	Flags   SPFlags
}

// NewMemBuilder returns a MemBuilder whose current color starts as none.
func NewMemBuilder() *MemBuilder {
	return &MemBuilder{current: Color{Kind: KindNone}}
}

func (m *MemBuilder) CurrentColor() *Color { return &m.current }

func (m *MemBuilder) Release(cur *Color) {
	*cur = Color{}
}

func (m *MemBuilder) AllocFillin(colorants []ColorantIndex, values []colorvalue.Value, cur *Color) error {
	cur.Kind = KindFull
	cur.Colorants = append([]ColorantIndex(nil), colorants...)
	cur.Values = append([]colorvalue.Value(nil), values...)
	cur.MaxBlit = make([]bool, len(colorants))
	return nil
}

func (m *MemBuilder) ApplyOverprints(op MergeOp, colorants []ColorantIndex, values []colorvalue.Value, cur *Color) error {
	if cur.Kind != KindFull {
		return m.AllocFillin(colorants, values, cur)
	}
	index := make(map[ColorantIndex]int, len(cur.Colorants))
	for i, ci := range cur.Colorants {
		index[ci] = i
	}
	for i, ci := range colorants {
		if j, ok := index[ci]; ok {
			switch op {
			case MergeMax:
				if values[i] > cur.Values[j] {
					cur.Values[j] = values[i]
				}
				cur.MaxBlit[j] = true
			default:
				cur.Values[j] = values[i]
			}
			continue
		}
		cur.Colorants = append(cur.Colorants, ci)
		cur.Values = append(cur.Values, values[i])
		cur.MaxBlit = append(cur.MaxBlit, op == MergeMax)
		index[ci] = len(cur.Colorants) - 1
	}
	return nil
}

func (m *MemBuilder) RemoveColorant(cur *Color, ci ColorantIndex) {
	for i, c := range cur.Colorants {
		if c == ci {
			cur.Colorants = append(cur.Colorants[:i], cur.Colorants[i+1:]...)
			cur.Values = append(cur.Values[:i], cur.Values[i+1:]...)
			cur.MaxBlit = append(cur.MaxBlit[:i], cur.MaxBlit[i+1:]...)
			return
		}
	}
}

func (m *MemBuilder) GetNone(cur *Color) {
	cur.Kind = KindNone
	cur.Colorants = nil
	cur.Values = nil
	cur.MaxBlit = nil
}

func (m *MemBuilder) GetBlack(cur *Color) {
	cur.Kind = KindBlack
	cur.Colorants = nil
	cur.Values = nil
	cur.MaxBlit = nil
}

func (m *MemBuilder) SetCurrentSPFlags(flags SPFlags) { m.Flags = flags }

// Package halftone models the halftone screen/threshold generator and
// raster back end that spec.md §1 treats as an external collaborator
// reached only through ht_setUsed, ht_allocateForm, ht_doTransforms and
// ht_keep_screen. This package declares that narrow interface plus an
// in-memory Recorder used by tests to assert which side effects a
// device-code link invocation produced, in what order.
package halftone

import "github.com/inkrip/devicecode/internal/colorvalue"

// HTType distinguishes halftone, backdrop-render and contone dispatch,
// mirroring the reference httype parameter.
type HTType int

const (
	HTTypeNormal HTType = iota
	HTTypeBackdropRender
)

// Transform is an opaque per-colorant threshold/transform handle passed
// to DoTransforms; its contents are owned entirely by the halftone
// module and never inspected by the color chain.
type Transform any

// Sink is the side-effect interface the device-code link's halftone-
// update variants (spec.md §4.4) drive.
type Sink interface {
	// SetUsed marks spotNo/colorantIndex as actually used for the given
	// erase cycle and halftone type (ht_setUsed).
	SetUsed(eraseNo int, spotNo int, httype HTType, colorantIndex int32)
	// AllocateForm reserves the halftone form for colorantIndex at the
	// given level (ht_allocateForm).
	AllocateForm(colorantIndex int32, level colorvalue.Value) error
	// KeepScreen marks a contone colorant's screen as kept in use
	// without allocating a halftone form (ht_keep_screen).
	KeepScreen(colorantIndex int32)
	// DoTransforms runs n values through xforms in one batched call
	// (ht_doTransforms). The device-code link's halftone-update variants
	// do not call it: they pass values to the sink without quantizing
	// them first.
	DoTransforms(n int, in []colorvalue.Value, xforms []Transform, out []colorvalue.Value) error
}

// Call records one Sink method invocation, for use by Recorder.
type Call struct {
	Method        string
	ColorantIndex int32
	Level         colorvalue.Value
}

// Recorder is an in-memory Sink that records every call it receives, in
// order, so tests can assert on the exact sequence of halftone-cache
// side effects spec.md §5 guarantees ("the order of side effects on the
// halftone cache matches the object-creation order").
type Recorder struct {
	Calls []Call
}

func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) SetUsed(eraseNo int, spotNo int, httype HTType, colorantIndex int32) {
	r.Calls = append(r.Calls, Call{Method: "SetUsed", ColorantIndex: colorantIndex})
}

func (r *Recorder) AllocateForm(colorantIndex int32, level colorvalue.Value) error {
	r.Calls = append(r.Calls, Call{Method: "AllocateForm", ColorantIndex: colorantIndex, Level: level})
	return nil
}

func (r *Recorder) KeepScreen(colorantIndex int32) {
	r.Calls = append(r.Calls, Call{Method: "KeepScreen", ColorantIndex: colorantIndex})
}

func (r *Recorder) DoTransforms(n int, in []colorvalue.Value, xforms []Transform, out []colorvalue.Value) error {
	copy(out[:n], in[:n])
	r.Calls = append(r.Calls, Call{Method: "DoTransforms"})
	return nil
}

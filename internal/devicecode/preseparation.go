package devicecode

import (
	"github.com/inkrip/devicecode/internal/colorant"
	"github.com/inkrip/devicecode/internal/colorvalue"
	"github.com/inkrip/devicecode/internal/dcilut"
	"github.com/inkrip/devicecode/internal/dl"
	"github.com/inkrip/devicecode/internal/halftone"
)

// PseudoColorant is a colorant index in a reserved negative range,
// naming the source separation of a single-channel object until
// recombine installs a page-scoped pseudo-to-real mapping.
type PseudoColorant int32

// PreseparationLink is C7: the single-channel entry point used for
// pre-separated input jobs. It is deliberately trivial — it attaches a
// pseudo-colorant to a single-channel DL color and keeps the halftone
// screen in use for that pseudo-colorant (the final real colorant isn't
// known until recombine picks one) — and bypasses all overprint
// reasoning, which recombine redoes once the real colorant set is known.
// It sets no recombine flag on the object: dl.SPFlags has none.
type PreseparationLink struct {
	Pseudo PseudoColorant
	LUT    *dcilut.LUT // the single channel's transfer+calibration, if any

	HT      halftone.Sink
	Builder dl.Builder
}

// NewPreseparationLink constructs a preseparation link for one pseudo-
// colorant.
func NewPreseparationLink(pseudo PseudoColorant, lut *dcilut.LUT, ht halftone.Sink, builder dl.Builder) *PreseparationLink {
	return &PreseparationLink{Pseudo: pseudo, LUT: lut, HT: ht, Builder: builder}
}

// Invoke converts the single input value (through the channel's LUT, if
// any) and writes a single-colorant DL color tagged with the pseudo-
// colorant, marking the halftone screen kept in use.
func (p *PreseparationLink) Invoke(colorValue float32) error {
	if colorValue < 0 || colorValue > 1 {
		return ErrInvalidInput
	}

	in := colorvalue.FromFloat(colorValue)
	var out colorvalue.Value
	if p.LUT != nil {
		out = p.LUT.Invoke(in)
	} else {
		out = in
	}

	p.HT.KeepScreen(int32(p.Pseudo))

	cur := p.Builder.CurrentColor()
	p.Builder.Release(cur)
	return p.Builder.AllocFillin(
		[]dl.ColorantIndex{dl.ColorantIndex(p.Pseudo)},
		[]colorvalue.Value{out},
		cur,
	)
}

// PseudoColorantMap is the per-page pseudo-to-real colorant mapping
// recombine installs once the real output colorant set is known, and
// tears down at page end.
type PseudoColorantMap struct {
	real map[PseudoColorant]colorant.Index
}

// NewPseudoColorantMap returns an empty mapping.
func NewPseudoColorantMap() *PseudoColorantMap {
	return &PseudoColorantMap{real: make(map[PseudoColorant]colorant.Index)}
}

// Bind records pseudo's real colorant.
func (m *PseudoColorantMap) Bind(pseudo PseudoColorant, real colorant.Index) {
	m.real[pseudo] = real
}

// Real resolves pseudo to its bound real colorant, or (colorant.UNKNOWN,
// false) if recombine hasn't bound it yet.
func (m *PseudoColorantMap) Real(pseudo PseudoColorant) (colorant.Index, bool) {
	ci, ok := m.real[pseudo]
	if !ok {
		return colorant.UNKNOWN, false
	}
	return ci, true
}

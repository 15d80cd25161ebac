package devicecode

import (
	"testing"

	"github.com/inkrip/devicecode/internal/colorant"
	"github.com/inkrip/devicecode/internal/dl"
	"github.com/inkrip/devicecode/internal/halftone"
)

func TestPreseparationInvokeTagsPseudoColorant(t *testing.T) {
	builder := dl.NewMemBuilder()
	rec := halftone.NewRecorder()
	link := NewPreseparationLink(PseudoColorant(-10), nil, rec, builder)

	if err := link.Invoke(0.4); err != nil {
		t.Fatal(err)
	}
	cur := builder.CurrentColor()
	if len(cur.Colorants) != 1 || cur.Colorants[0] != dl.ColorantIndex(-10) {
		t.Fatalf("cur.Colorants = %v, want [-10]", cur.Colorants)
	}
	if len(rec.Calls) != 1 || rec.Calls[0].Method != "KeepScreen" {
		t.Fatalf("rec.Calls = %+v, want a single KeepScreen call", rec.Calls)
	}
}

func TestPreseparationRejectsOutOfRangeInput(t *testing.T) {
	builder := dl.NewMemBuilder()
	rec := halftone.NewRecorder()
	link := NewPreseparationLink(PseudoColorant(-1), nil, rec, builder)

	if err := link.Invoke(-0.1); err != ErrInvalidInput {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}

func TestPseudoColorantMapBindAndResolve(t *testing.T) {
	m := NewPseudoColorantMap()
	if _, ok := m.Real(PseudoColorant(-5)); ok {
		t.Fatal("Real should report unbound before Bind")
	}
	m.Bind(PseudoColorant(-5), colorant.Index(3))
	real, ok := m.Real(PseudoColorant(-5))
	if !ok || real != colorant.Index(3) {
		t.Fatalf("Real = (%v, %v), want (3, true)", real, ok)
	}
}

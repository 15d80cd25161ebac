package dl

import (
	"testing"

	"github.com/inkrip/devicecode/internal/colorvalue"
)

func TestAllocFillinSetsFullColor(t *testing.T) {
	b := NewMemBuilder()
	cur := b.CurrentColor()
	if err := b.AllocFillin([]ColorantIndex{0, 2}, []colorvalue.Value{colorvalue.Max, colorvalue.Min}, cur); err != nil {
		t.Fatal(err)
	}
	if cur.Kind != KindFull || len(cur.Colorants) != 2 {
		t.Fatalf("cur = %+v, want a 2-colorant KindFull color", cur)
	}
}

func TestApplyOverprintsMaxBlit(t *testing.T) {
	b := NewMemBuilder()
	cur := b.CurrentColor()
	if err := b.AllocFillin([]ColorantIndex{0, 1}, []colorvalue.Value{0x4000, 0x8000}, cur); err != nil {
		t.Fatal(err)
	}
	if err := b.ApplyOverprints(MergeMax, []ColorantIndex{0}, []colorvalue.Value{0x2000}, cur); err != nil {
		t.Fatal(err)
	}
	if cur.Values[0] != 0x4000 {
		t.Fatalf("max-blit should keep the larger value, got %#x", cur.Values[0])
	}
	if !cur.MaxBlit[0] {
		t.Fatal("colorant 0 should be flagged max-blitted")
	}
}

func TestApplyOverprintsReplace(t *testing.T) {
	b := NewMemBuilder()
	cur := b.CurrentColor()
	if err := b.AllocFillin([]ColorantIndex{0}, []colorvalue.Value{0x4000}, cur); err != nil {
		t.Fatal(err)
	}
	if err := b.ApplyOverprints(MergeReplace, []ColorantIndex{0}, []colorvalue.Value{0x2000}, cur); err != nil {
		t.Fatal(err)
	}
	if cur.Values[0] != 0x2000 {
		t.Fatalf("replace merge should overwrite, got %#x", cur.Values[0])
	}
}

func TestRemoveColorant(t *testing.T) {
	b := NewMemBuilder()
	cur := b.CurrentColor()
	if err := b.AllocFillin([]ColorantIndex{0, 1, 2}, []colorvalue.Value{1, 2, 3}, cur); err != nil {
		t.Fatal(err)
	}
	b.RemoveColorant(cur, 1)
	if len(cur.Colorants) != 2 || cur.Colorants[0] != 0 || cur.Colorants[1] != 2 {
		t.Fatalf("cur.Colorants = %v, want [0 2]", cur.Colorants)
	}
}

func TestGetNoneAndGetBlack(t *testing.T) {
	b := NewMemBuilder()
	cur := b.CurrentColor()
	b.GetNone(cur)
	if cur.Kind != KindNone {
		t.Fatal("GetNone should set KindNone")
	}
	b.GetBlack(cur)
	if cur.Kind != KindBlack {
		t.Fatal("GetBlack should set KindBlack")
	}
}

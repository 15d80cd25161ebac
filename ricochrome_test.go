package ricochrome

import (
	"context"
	"testing"

	"github.com/inkrip/devicecode/internal/colorant"
	"github.com/inkrip/devicecode/internal/colorvalue"
	"github.com/inkrip/devicecode/internal/dcilut"
	"github.com/inkrip/devicecode/internal/devicecode"
	"github.com/inkrip/devicecode/internal/dl"
	"github.com/inkrip/devicecode/internal/halftone"
	"github.com/inkrip/devicecode/internal/recombine"
	"github.com/inkrip/devicecode/internal/sublink"
)

func identityLUT(t *testing.T) *dcilut.LUT {
	t.Helper()
	pool := dcilut.NewPool()
	fp := sublink.Fingerprint{Transfer: sublink.DummyTransferFingerprint}
	return pool.Reserve(fp, sublink.DummyTransfer{}, 1, false)
}

func TestNewDeviceCodeLinkRejectsIllegalTintTransform(t *testing.T) {
	cfg := Config{IllegalTintTransform: true}
	_, err := NewDeviceCodeLink(cfg, nil, -1, nil, nil, halftone.NewRecorder(), dl.NewMemBuilder())
	if err != ErrIllegalTintTransform {
		t.Fatalf("err = %v, want ErrIllegalTintTransform", err)
	}
}

func TestNewDeviceCodeLinkForcesNothingVariantWhenNotNormal(t *testing.T) {
	lut := identityLUT(t)
	cfg := Config{
		DeviceCodeType: DeviceCodeTransferOnly,
		Variant:        devicecode.VariantParams{Halftoning: true},
	}
	link, err := NewDeviceCodeLink(cfg, []colorant.Index{0}, -1, []*dcilut.LUT{lut}, []int{1}, halftone.NewRecorder(), dl.NewMemBuilder())
	if err != nil {
		t.Fatal(err)
	}
	if link.Variant != devicecode.Nothing {
		t.Fatalf("link.Variant = %v, want Nothing", link.Variant)
	}
}

func TestInvokeSingleThenNonInterceptLinkSharesLastSortedValues(t *testing.T) {
	lut := identityLUT(t)
	builder := dl.NewMemBuilder()
	cfg := Config{ColorType: devicecode.Fill, Variant: devicecode.VariantParams{ContoneOutput: true}}

	link, err := NewDeviceCodeLink(cfg, []colorant.Index{0}, -1, []*dcilut.LUT{lut}, []int{1}, halftone.NewRecorder(), builder)
	if err != nil {
		t.Fatal(err)
	}
	if err := InvokeSingle(link, []float32{0.5}); err != nil {
		t.Fatal(err)
	}
	if link.LastSortedValues == nil {
		t.Fatal("LastSortedValues should be populated after InvokeSingle")
	}

	n := NewNonInterceptLink(cfg, link, []colorant.Index{0}, builder)
	if len(n.DCSortedValues) != 1 {
		t.Fatalf("DCSortedValues = %v, want the device-code link's last sorted value", n.DCSortedValues)
	}
}

func TestPageRecombinePrepareClassifiesObjects(t *testing.T) {
	page := NewPage()
	bindings := map[devicecode.PseudoColorant]colorant.Index{-1: 0}
	objs := []recombine.Object{
		{ID: 1, Pseudo: []devicecode.PseudoColorant{-1}, Values: []colorvalue.Value{0x1000}},
		{ID: 2},
	}
	classes, err := page.RecombinePrepare(bindings, objs, func(ci colorant.Index) bool { return ci < 4 })
	if err != nil {
		t.Fatal(err)
	}
	if classes[0] != recombine.Process {
		t.Fatalf("classes[0] = %v, want Process", classes[0])
	}
	if classes[1] != recombine.None {
		t.Fatalf("classes[1] = %v, want None", classes[1])
	}
}

func TestRenderDispatchesBands(t *testing.T) {
	count := 0
	bands := []Band{
		{Index: 0, Render: func(ctx context.Context) error { count++; return nil }},
		{Index: 1, Render: func(ctx context.Context) error { count++; return nil }},
	}
	if err := Render(context.Background(), 2, bands); err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Fatalf("count = %d, want 2", count)
	}
}

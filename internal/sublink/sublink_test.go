package sublink

import "testing"

func TestFingerprintEquality(t *testing.T) {
	a := Fingerprint{Transfer: [3]uint32{1, 2, 3}, Calibration: [2]uint32{4, 5}, Context: [4]uint32{6, 7, 8, 9}}
	b := a
	if !a.Equal(b) {
		t.Fatal("identical fingerprints must compare equal")
	}
	b.Context[0] = 99
	if a.Equal(b) {
		t.Fatal("differing context slot must make fingerprints unequal")
	}
}

func TestFingerprintHashXOR(t *testing.T) {
	f := Fingerprint{Transfer: [3]uint32{1, 2, 3}, Calibration: [2]uint32{4, 5}, Context: [4]uint32{6, 7, 8, 9}}
	want := uint32(1) ^ 2 ^ 3 ^ 4 ^ 5 ^ 6 ^ 7 ^ 8 ^ 9
	if got := f.Hash(); got != want {
		t.Fatalf("Hash() = %d, want %d", got, want)
	}
}

func TestDummyTransferIdentityAndInvert(t *testing.T) {
	d := DummyTransfer{}
	if v := d.Invoke(0.25); v != 0.25 {
		t.Fatalf("identity dummy transfer = %v, want 0.25", v)
	}
	inv := DummyTransfer{Invert: true}
	if v := inv.Invoke(0.25); v != 0.75 {
		t.Fatalf("inverting dummy transfer = %v, want 0.75", v)
	}
}

func TestComposeOrder(t *testing.T) {
	user := NewTransferFunc(func(v float32) float32 { return v + 0.1 }, [3]uint32{})
	transfer := NewTransferFunc(func(v float32) float32 { return v * 2 }, [3]uint32{})
	cal := NewCalibration(func(v float32) float32 { return 1 - v }, [2]uint32{})

	c := Compose(user, transfer, cal)
	// (0.2 + 0.1) * 2 = 0.6, then 1 - 0.6 = 0.4
	got := c.Invoke(0.2)
	want := float32(0.4)
	if diff := got - want; diff > 1e-6 || diff < -1e-6 {
		t.Fatalf("Compose(...).Invoke(0.2) = %v, want %v", got, want)
	}
}

func TestPhotoinkInvokeAll(t *testing.T) {
	p := Photoink{
		ColorantIndex: 7,
		Curves: []func(float32) float32{
			func(v float32) float32 { return v * 0.5 },
			func(v float32) float32 { return v },
		},
	}
	out := p.InvokeAll(1.0)
	if len(out) != 2 || out[0] != 0.5 || out[1] != 1.0 {
		t.Fatalf("InvokeAll = %v, want [0.5 1.0]", out)
	}
	if p.NMapped() != 2 {
		t.Fatalf("NMapped() = %d, want 2", p.NMapped())
	}
}

package imagestore

import "testing"

func seedStore() (*MemStore, int) {
	m := NewMemStore()
	m.Put(1, []Tile{
		{ColorantIndex: 0, Data: []byte("cyan")},
		{ColorantIndex: 1, Data: []byte("magenta")},
		{ColorantIndex: 2, Data: []byte("yellow")},
	})
	return m, 1
}

func TestWriteReplacesExistingPlane(t *testing.T) {
	m, id := seedStore()
	if err := m.Write(id, 1, []byte("updated")); err != nil {
		t.Fatal(err)
	}
	tiles := m.Tiles(id)
	if string(tiles[1].Data) != "updated" {
		t.Fatalf("tiles[1].Data = %q, want updated", tiles[1].Data)
	}
	if len(tiles) != 3 {
		t.Fatalf("len(tiles) = %d, want 3 (no new plane appended)", len(tiles))
	}
}

func TestWriteAppendsNewPlane(t *testing.T) {
	m, id := seedStore()
	if err := m.Write(id, 7, []byte("spot")); err != nil {
		t.Fatal(err)
	}
	tiles := m.Tiles(id)
	if len(tiles) != 4 || tiles[3].ColorantIndex != 7 {
		t.Fatalf("tiles = %+v, want a 4th plane for colorant 7", tiles)
	}
}

func TestReorderPermutesPlanes(t *testing.T) {
	m, id := seedStore()
	if err := m.Reorder(id, []int32{2, 0, 1}); err != nil {
		t.Fatal(err)
	}
	tiles := m.Tiles(id)
	if tiles[0].ColorantIndex != 2 || tiles[1].ColorantIndex != 0 || tiles[2].ColorantIndex != 1 {
		t.Fatalf("tiles after reorder = %+v", tiles)
	}
}

func TestReorderRejectsMismatchedLength(t *testing.T) {
	m, id := seedStore()
	if err := m.Reorder(id, []int32{0, 1}); err == nil {
		t.Fatal("expected an error for a short permutation")
	}
}

func TestTrimDropsUnkeptPlanes(t *testing.T) {
	m, id := seedStore()
	if err := m.Trim(id, []int32{0, 2}); err != nil {
		t.Fatal(err)
	}
	tiles := m.Tiles(id)
	if len(tiles) != 2 || tiles[0].ColorantIndex != 0 || tiles[1].ColorantIndex != 2 {
		t.Fatalf("tiles after trim = %+v", tiles)
	}
}

package ids

import "testing"

func TestGenerateUnique(t *testing.T) {
	seen := make(map[uint64]bool)
	exists := func(id uint64) bool { return seen[id] }

	for i := 0; i < 1000; i++ {
		id := Generate(exists)
		if id == 0 {
			t.Fatalf("Generate returned zero id")
		}
		if seen[id] {
			t.Fatalf("Generate returned duplicate id %d", id)
		}
		seen[id] = true
	}
}

func TestGenerateAvoidsCollision(t *testing.T) {
	calls := 0
	exists := func(id uint64) bool {
		calls++
		return calls <= 3 // force a few forced collisions before success
	}

	id := Generate(exists)
	if id == 0 {
		t.Fatalf("Generate returned zero id")
	}
	if calls < 4 {
		t.Fatalf("expected Generate to retry past forced collisions, got %d calls", calls)
	}
}

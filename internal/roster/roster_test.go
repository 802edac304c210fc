package roster

import (
	"math/rand"
	"sort"
	"testing"
)

func TestNewRejectsEmpty(t *testing.T) {
	if _, err := New(nil, nil); err == nil {
		t.Fatalf("expected error for empty stream list")
	}
}

func TestRosterIsPermutationOfInput(t *testing.T) {
	in := []string{"A", "B", "C", "D", "E"}
	r, err := New(in, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got := r.Streams()
	sort.Strings(got)
	want := append([]string(nil), in...)
	sort.Strings(want)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("roster is not a permutation: got %v want %v", got, want)
		}
	}
}

func TestGetWrapsModularly(t *testing.T) {
	r, err := New([]string{"A", "B", "C"}, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if r.Get(0) != r.Get(3) {
		t.Fatalf("expected Get to wrap modulo N")
	}
}

func TestNextStartIndexSharedAcrossCalls(t *testing.T) {
	r, err := New([]string{"A", "B", "C"}, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	seen := map[int]int{}
	for i := 0; i < 9; i++ {
		seen[r.NextStartIndex()]++
	}
	for idx, count := range seen {
		if count != 3 {
			t.Fatalf("expected even distribution across indices, index %d seen %d times", idx, count)
		}
	}
}

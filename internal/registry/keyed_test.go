package registry

import (
	"errors"
	"math/rand"
	"testing"
)

type item struct {
	name string
}

func sameSet(t *testing.T, got []*item, want map[*item]bool) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("snapshot has %d items, want %d", len(got), len(want))
	}
	seen := make(map[*item]bool, len(got))
	for _, it := range got {
		if !want[it] {
			t.Fatalf("snapshot contains untracked item %q", it.name)
		}
		if seen[it] {
			t.Fatalf("snapshot contains %q twice", it.name)
		}
		seen[it] = true
	}
}

func checkInvariant[T comparable](t *testing.T, k *Keyed[T]) {
	t.Helper()
	if len(k.index) != len(k.items) {
		t.Fatalf("index has %d entries, items %d", len(k.index), len(k.items))
	}
	for v, idx := range k.index {
		if idx < 0 || idx >= len(k.items) {
			t.Fatalf("index %d out of range", idx)
		}
		if k.items[idx] != v {
			t.Fatalf("items[index[v]] != v at slot %d", idx)
		}
	}
}

func TestSwapRemove(t *testing.T) {
	a, b, c := &item{"a"}, &item{"b"}, &item{"c"}
	k := New[*item]()

	for _, it := range []*item{a, b, c} {
		if err := k.Add(it); err != nil {
			t.Fatalf("add %s: %v", it.name, err)
		}
	}

	if !k.Remove(b) {
		t.Fatal("expected b to be removed")
	}
	checkInvariant(t, k)
	sameSet(t, k.Snapshot(), map[*item]bool{a: true, c: true})
	if k.Len() != 2 {
		t.Errorf("expected len 2, got %d", k.Len())
	}

	if k.Remove(b) {
		t.Error("second remove of b should be a no-op")
	}
	if k.Len() != 2 {
		t.Errorf("expected len 2 after no-op remove, got %d", k.Len())
	}
}

func TestRemoveLast(t *testing.T) {
	a, b := &item{"a"}, &item{"b"}
	k := New[*item]()
	_ = k.Add(a)
	_ = k.Add(b)

	k.Remove(b)
	checkInvariant(t, k)
	sameSet(t, k.Snapshot(), map[*item]bool{a: true})

	k.Remove(a)
	checkInvariant(t, k)
	if k.Len() != 0 {
		t.Errorf("expected empty registry, got %d", k.Len())
	}
}

func TestDuplicateKey(t *testing.T) {
	a := &item{"a"}
	k := New[*item]()
	if err := k.Add(a); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := k.Add(a); !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}
	if k.Len() != 1 {
		t.Errorf("duplicate add changed len to %d", k.Len())
	}
}

func TestIdentityNotEquality(t *testing.T) {
	a1, a2 := &item{"same"}, &item{"same"}
	k := New[*item]()
	if err := k.Add(a1); err != nil {
		t.Fatal(err)
	}
	if err := k.Add(a2); err != nil {
		t.Fatalf("distinct pointers with equal fields must both be tracked: %v", err)
	}
	if k.Len() != 2 {
		t.Errorf("expected 2 items, got %d", k.Len())
	}
}

func TestSnapshotIsolation(t *testing.T) {
	a, b := &item{"a"}, &item{"b"}
	k := New[*item]()
	_ = k.Add(a)
	_ = k.Add(b)

	snap := k.Snapshot()
	k.Remove(a)
	k.Clear()

	if len(snap) != 2 || snap[0] == nil || snap[1] == nil {
		t.Fatalf("snapshot changed after mutation: %v", snap)
	}
}

func TestCopyTo(t *testing.T) {
	k := New[*item]()
	_ = k.Add(&item{"a"})
	_ = k.Add(&item{"b"})

	short := make([]*item, 1)
	if k.CopyTo(short) {
		t.Error("CopyTo should fail for a short destination")
	}
	if short[0] != nil {
		t.Error("failed CopyTo must not write")
	}

	dst := make([]*item, 3)
	if !k.CopyTo(dst) {
		t.Fatal("CopyTo should succeed")
	}
	if dst[0] == nil || dst[1] == nil || dst[2] != nil {
		t.Errorf("unexpected copy result %v", dst)
	}
}

func TestClear(t *testing.T) {
	a := &item{"a"}
	k := New[*item]()
	_ = k.Add(a)
	k.Clear()

	if k.Len() != 0 || k.Contains(a) {
		t.Fatal("clear left items behind")
	}
	if err := k.Add(a); err != nil {
		t.Fatalf("re-add after clear: %v", err)
	}
	checkInvariant(t, k)
}

func TestRandomOperations(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	pool := make([]*item, 64)
	for i := range pool {
		pool[i] = &item{name: string(rune('A' + i%26))}
	}

	k := New[*item]()
	tracked := make(map[*item]bool)

	for step := 0; step < 5000; step++ {
		it := pool[rng.Intn(len(pool))]
		if rng.Intn(2) == 0 {
			err := k.Add(it)
			if tracked[it] {
				if !errors.Is(err, ErrDuplicateKey) {
					t.Fatalf("step %d: expected duplicate error", step)
				}
			} else {
				if err != nil {
					t.Fatalf("step %d: add: %v", step, err)
				}
				tracked[it] = true
			}
		} else {
			removed := k.Remove(it)
			if removed != tracked[it] {
				t.Fatalf("step %d: remove returned %v, tracked %v", step, removed, tracked[it])
			}
			delete(tracked, it)
		}

		if k.Len() != len(tracked) {
			t.Fatalf("step %d: len %d, want %d", step, k.Len(), len(tracked))
		}
		checkInvariant(t, k)
	}
	sameSet(t, k.Snapshot(), tracked)
}

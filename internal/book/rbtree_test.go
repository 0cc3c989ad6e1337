package book

import (
	"math/rand"
	"sort"
	"testing"

	"main/internal/schema"
)

func TestPriceTreeBasic(t *testing.T) {
	tr := newPriceTree()
	tr.Set(100, 10)
	tr.Set(101, 5)
	tr.Set(99, 7)

	if tr.Size() != 3 {
		t.Fatalf("size = %d, want 3", tr.Size())
	}
	if got := tr.Get(101); got != 5 {
		t.Fatalf("Get(101) = %d, want 5", got)
	}
	if got := tr.Get(50); got != 0 {
		t.Fatalf("Get(50) = %d, want 0", got)
	}

	tr.Set(101, 8)
	if got := tr.Get(101); got != 8 {
		t.Fatalf("Get(101) after update = %d, want 8", got)
	}
	if tr.Size() != 3 {
		t.Fatalf("size changed on update: %d", tr.Size())
	}

	if !tr.Delete(99) {
		t.Fatal("Delete(99) = false")
	}
	if tr.Delete(99) {
		t.Fatal("Delete(99) twice = true")
	}
	if tr.Size() != 2 {
		t.Fatalf("size = %d, want 2", tr.Size())
	}
}

func TestPriceTreeMinMax(t *testing.T) {
	tr := newPriceTree()
	if _, _, ok := tr.Min(); ok {
		t.Fatal("Min on empty tree should fail")
	}
	for _, p := range []schema.Price{105, 101, 103, 102, 104} {
		tr.Set(p, schema.Quantity(p))
	}
	if p, _, _ := tr.Min(); p != 101 {
		t.Fatalf("Min = %d, want 101", p)
	}
	if p, _, _ := tr.Max(); p != 105 {
		t.Fatalf("Max = %d, want 105", p)
	}
}

func TestPriceTreeOrderedTraversal(t *testing.T) {
	tr := newPriceTree()
	rng := rand.New(rand.NewSource(7))
	want := make([]schema.Price, 0, 200)
	seen := make(map[schema.Price]bool)
	for i := 0; i < 200; i++ {
		p := schema.Price(rng.Intn(10_000))
		if seen[p] {
			continue
		}
		seen[p] = true
		want = append(want, p)
		tr.Set(p, 1)
	}
	sort.Slice(want, func(i, j int) bool { return want[i] < want[j] })

	var got []schema.Price
	tr.ForEachAscending(func(p schema.Price, _ schema.Quantity) bool {
		got = append(got, p)
		return true
	})
	if len(got) != len(want) {
		t.Fatalf("traversal len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("traversal[%d] = %d, want %d", i, got[i], want[i])
		}
	}

	var desc []schema.Price
	tr.ForEachDescending(func(p schema.Price, _ schema.Quantity) bool {
		desc = append(desc, p)
		return true
	})
	for i := range want {
		if desc[len(desc)-1-i] != want[i] {
			t.Fatalf("descending traversal mismatch at %d", i)
		}
	}
}

func TestPriceTreeAscendRange(t *testing.T) {
	tr := newPriceTree()
	for p := schema.Price(10); p <= 100; p += 10 {
		tr.Set(p, 1)
	}
	var visited []schema.Price
	tr.AscendRange(30, 70, func(p schema.Price, _ schema.Quantity) bool {
		visited = append(visited, p)
		return true
	})
	want := []schema.Price{30, 40, 50, 60, 70}
	if len(visited) != len(want) {
		t.Fatalf("visited %v, want %v", visited, want)
	}
	for i := range want {
		if visited[i] != want[i] {
			t.Fatalf("visited %v, want %v", visited, want)
		}
	}

	// early stop
	n := 0
	tr.AscendRange(0, 1000, func(schema.Price, schema.Quantity) bool {
		n++
		return n < 3
	})
	if n != 3 {
		t.Fatalf("early stop visited %d, want 3", n)
	}
}

func TestPriceTreeRandomDeletes(t *testing.T) {
	tr := newPriceTree()
	rng := rand.New(rand.NewSource(99))
	live := make(map[schema.Price]schema.Quantity)
	for i := 0; i < 2000; i++ {
		p := schema.Price(rng.Intn(500))
		if rng.Intn(3) == 0 {
			delete(live, p)
			tr.Delete(p)
		} else {
			q := schema.Quantity(rng.Intn(1000) + 1)
			live[p] = q
			tr.Set(p, q)
		}
	}
	if tr.Size() != len(live) {
		t.Fatalf("size = %d, want %d", tr.Size(), len(live))
	}
	for p, q := range live {
		if got := tr.Get(p); got != q {
			t.Fatalf("Get(%d) = %d, want %d", p, got, q)
		}
	}
	prev := schema.Price(-1)
	tr.ForEachAscending(func(p schema.Price, _ schema.Quantity) bool {
		if p <= prev {
			t.Fatalf("order violated: %d after %d", p, prev)
		}
		prev = p
		return true
	})
}

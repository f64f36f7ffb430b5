package cache

import (
	"context"
	"testing"
	"time"

	"github.com/efebarandurmaz/mixdown/internal/catalog"
)

func sampleOutcome(scenario string) *catalog.Outcome {
	return &catalog.Outcome{
		Scenario: scenario,
		Root:     "C1",
		Order:    []string{"T1", "C1"},
		Trace:    []string{"Creating C1", "Created C1"},
	}
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if _, ok, err := store.Get(ctx, "absent"); err != nil || ok {
		t.Fatalf("Get(absent) = ok=%v err=%v, want miss", ok, err)
	}

	want := sampleOutcome("single-trait")
	if err := store.Set(ctx, "k1", want, 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok, err := store.Get(ctx, "k1")
	if err != nil || !ok {
		t.Fatalf("Get(k1) = ok=%v err=%v, want hit", ok, err)
	}
	if got.Scenario != want.Scenario || len(got.Order) != 2 {
		t.Errorf("Get(k1) = %+v, want %+v", got, want)
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Set(ctx, "short", sampleOutcome("s"), time.Millisecond); err != nil {
		t.Fatalf("Set: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	if _, ok, _ := store.Get(ctx, "short"); ok {
		t.Error("expired entry still served")
	}
	if n := store.Len(); n != 0 {
		t.Errorf("Len() = %d after expiry, want 0", n)
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	store.Set(ctx, "k", sampleOutcome("s"), 0)
	if err := store.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := store.Get(ctx, "k"); ok {
		t.Error("deleted entry still served")
	}
}

func TestExecutorCachesByGraphHash(t *testing.T) {
	reg := catalog.Builtin()
	exec := NewExecutor(NewMemoryStore(), reg, 0)
	ctx := context.Background()

	first, err := exec.Execute(ctx, "diamond")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	second, err := exec.Execute(ctx, "diamond")
	if err != nil {
		t.Fatalf("Execute (cached): %v", err)
	}

	if hits, misses := exec.Stats(); hits != 1 || misses != 1 {
		t.Errorf("Stats() = hits=%d misses=%d, want 1 hit 1 miss", hits, misses)
	}
	if len(first.Order) != len(second.Order) {
		t.Fatalf("cached order length %d, want %d", len(second.Order), len(first.Order))
	}
	for i := range first.Order {
		if first.Order[i] != second.Order[i] {
			t.Errorf("cached order[%d] = %s, want %s", i, second.Order[i], first.Order[i])
		}
	}
}

func TestExecutorDistinctScenariosMissIndependently(t *testing.T) {
	reg := catalog.Builtin()
	exec := NewExecutor(NewMemoryStore(), reg, 0)
	ctx := context.Background()

	if _, err := exec.Execute(ctx, "single-trait"); err != nil {
		t.Fatalf("Execute(single-trait): %v", err)
	}
	if _, err := exec.Execute(ctx, "two-traits"); err != nil {
		t.Fatalf("Execute(two-traits): %v", err)
	}

	if hits, misses := exec.Stats(); hits != 0 || misses != 2 {
		t.Errorf("Stats() = hits=%d misses=%d, want 0 hits 2 misses", hits, misses)
	}
}

func TestExecutorUnknownScenario(t *testing.T) {
	exec := NewExecutor(NewMemoryStore(), catalog.Builtin(), 0)
	if _, err := exec.Execute(context.Background(), "nope"); err == nil {
		t.Fatal("Execute(nope) succeeded, want error")
	}
}

package state

import (
	"sync"
	"testing"
)

func TestMemoryManagerDefaultsToIdle(t *testing.T) {
	m := NewMemoryManager()
	if st := m.GetState(1, 1); st != Idle {
		t.Fatalf("fresh session state = %q, want %q", st, Idle)
	}
	if m.InProgress(1, 1) {
		t.Fatal("fresh session reported in progress")
	}
}

func TestMemoryManagerOverwritesState(t *testing.T) {
	m := NewMemoryManager()
	m.SetState(1, 1, State("a"))
	m.SetState(1, 1, State("b"))
	if st := m.GetState(1, 1); st != State("b") {
		t.Fatalf("state = %q, want b", st)
	}
	m.ClearState(1, 1)
	if m.InProgress(1, 1) {
		t.Fatal("cleared session still in progress")
	}
}

func TestMemoryManagerIsolatesUsers(t *testing.T) {
	m := NewMemoryManager()
	m.SetState(1, 10, State("editing"))
	if st := m.GetState(2, 10); st != Idle {
		t.Fatalf("user 2 state = %q, want idle", st)
	}
	if st := m.GetState(1, 11); st != Idle {
		t.Fatalf("user 1 in another chat state = %q, want idle", st)
	}
	if st := m.GetState(1, 10); st != State("editing") {
		t.Fatalf("user 1 state = %q, want editing", st)
	}
}

func TestMemoryManagerSetIdleDeletes(t *testing.T) {
	m := NewMemoryManager()
	m.SetState(5, 5, State("x"))
	m.SetState(5, 5, Idle)
	if m.InProgress(5, 5) {
		t.Fatal("idle session reported in progress")
	}
}

func TestMemoryManagerConcurrentAccess(t *testing.T) {
	m := NewMemoryManager()
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			m.SetState(id, id, State("busy"))
			_ = m.GetState(id, id)
			m.ClearState(id, id)
		}(int64(i))
	}
	wg.Wait()
	for i := int64(0); i < 32; i++ {
		if m.InProgress(i, i) {
			t.Fatalf("session %d left in progress", i)
		}
	}
}

package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestEnsureUserIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	created, err := s.EnsureUser(ctx, 1, "alice", "Alice", "A")
	if err != nil {
		t.Fatalf("EnsureUser: %v", err)
	}
	if !created {
		t.Fatal("first EnsureUser should report created=true")
	}

	if err := s.CreditReferral(ctx, 1, 40000); err != nil {
		t.Fatalf("CreditReferral: %v", err)
	}

	created, err = s.EnsureUser(ctx, 1, "alice2", "Alice2", "A2")
	if err != nil {
		t.Fatalf("EnsureUser repeat: %v", err)
	}
	if created {
		t.Fatal("repeat EnsureUser should report created=false")
	}

	balance, err := s.GetBalance(ctx, 1)
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if balance != 40000 {
		t.Fatalf("balance changed by repeat EnsureUser: got %d, want 40000", balance)
	}

	acc, err := s.GetUser(ctx, 1)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if acc.Username != "alice" {
		t.Fatalf("repeat EnsureUser overwrote profile: got %q", acc.Username)
	}
}

func TestDebit(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	if _, err := s.EnsureUser(ctx, 1, "u", "f", "l"); err != nil {
		t.Fatalf("EnsureUser: %v", err)
	}
	if err := s.CreditReferral(ctx, 1, 100000); err != nil {
		t.Fatalf("CreditReferral: %v", err)
	}

	ok, err := s.Debit(ctx, 1, 60000)
	if err != nil || !ok {
		t.Fatalf("Debit within balance: ok=%v err=%v", ok, err)
	}

	ok, err = s.Debit(ctx, 1, 60000)
	if err != nil {
		t.Fatalf("Debit: %v", err)
	}
	if ok {
		t.Fatal("Debit beyond balance should fail")
	}

	balance, _ := s.GetBalance(ctx, 1)
	if balance != 40000 {
		t.Fatalf("balance = %d, want 40000", balance)
	}
}

func TestDebitConcurrent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	if _, err := s.EnsureUser(ctx, 1, "u", "f", "l"); err != nil {
		t.Fatalf("EnsureUser: %v", err)
	}
	if err := s.CreditReferral(ctx, 1, 100000); err != nil {
		t.Fatalf("CreditReferral: %v", err)
	}

	const workers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			ok, err := s.Debit(ctx, 1, 60000)
			if err != nil {
				t.Errorf("Debit: %v", err)
				return
			}
			if ok {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if successes != 1 {
		t.Fatalf("exactly one concurrent debit must succeed, got %d", successes)
	}
	balance, _ := s.GetBalance(ctx, 1)
	if balance != 40000 {
		t.Fatalf("balance = %d, want 40000", balance)
	}
}

func TestMarkTestConfigUsedSingleUse(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	if _, err := s.EnsureUser(ctx, 1, "u", "f", "l"); err != nil {
		t.Fatalf("EnsureUser: %v", err)
	}

	first, err := s.MarkTestConfigUsed(ctx, 1)
	if err != nil {
		t.Fatalf("MarkTestConfigUsed: %v", err)
	}
	if !first {
		t.Fatal("first claim should report first=true")
	}

	first, err = s.MarkTestConfigUsed(ctx, 1)
	if err != nil {
		t.Fatalf("MarkTestConfigUsed repeat: %v", err)
	}
	if first {
		t.Fatal("second claim should report first=false")
	}
}

func TestMarkTestConfigUsedUnknownUser(t *testing.T) {
	s := NewMemoryStore()

	// An id without an account is not the same as an already-claimed config.
	if _, err := s.MarkTestConfigUsed(context.Background(), 99); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestGetBalanceUnknownUser(t *testing.T) {
	s := NewMemoryStore()
	balance, err := s.GetBalance(context.Background(), 999)
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if balance != 0 {
		t.Fatalf("unknown user balance = %d, want 0", balance)
	}
}

func TestUpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	if _, err := s.EnsureUser(ctx, 1, "u", "f", "l"); err != nil {
		t.Fatalf("EnsureUser: %v", err)
	}

	if err := s.UpdateProfile(ctx, 1, "new", "First", "Last", 5000); err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	acc, err := s.GetUser(ctx, 1)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if acc.Username != "new" || acc.Balance != 5000 {
		t.Fatalf("unexpected account after update: %+v", acc)
	}

	if err := s.UpdateProfile(ctx, 2, "x", "y", "z", 1); err != ErrNotFound {
		t.Fatalf("UpdateProfile unknown user: err=%v, want ErrNotFound", err)
	}

	if err := s.DeleteUser(ctx, 1); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	if _, err := s.GetUser(ctx, 1); err != ErrNotFound {
		t.Fatalf("GetUser after delete: err=%v, want ErrNotFound", err)
	}
}

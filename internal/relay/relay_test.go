package relay

import "testing"

func TestAddLookup(t *testing.T) {
	r := NewRegistry()

	r.Add(1001, Link{UserID: 7, FirstName: "Sam", Username: "sam", Tag: TagTestConfig})

	l, ok := r.Lookup(1001)
	if !ok {
		t.Fatal("Lookup should find registered link")
	}
	if l.UserID != 7 || l.Tag != TagTestConfig {
		t.Fatalf("unexpected link: %+v", l)
	}

	if _, ok := r.Lookup(9999); ok {
		t.Fatal("Lookup of unknown message id should miss")
	}
}

func TestLookupDoesNotConsume(t *testing.T) {
	r := NewRegistry()
	r.Add(5, Link{UserID: 1, Tag: TagMessage})

	for i := 0; i < 3; i++ {
		if _, ok := r.Lookup(5); !ok {
			t.Fatalf("lookup %d should still resolve", i)
		}
	}
	if r.Len() != 1 {
		t.Fatalf("Len = %d, want 1", r.Len())
	}
}

func TestAddZeroMessageID(t *testing.T) {
	r := NewRegistry()
	r.Add(0, Link{UserID: 1})
	if r.Len() != 0 {
		t.Fatal("zero message id must not be registered")
	}
}

package pending

import (
	"sync"
	"testing"
)

func TestPricePerUser(t *testing.T) {
	c := NewContext()

	c.SetPrice(1, 150000)
	c.SetPrice(2, 400000)

	if p, ok := c.Price(1); !ok || p != 150000 {
		t.Fatalf("Price(1) = %d, %v", p, ok)
	}
	if p, ok := c.Price(2); !ok || p != 400000 {
		t.Fatalf("Price(2) = %d, %v", p, ok)
	}

	// A new tier selection replaces the previous price for that user only.
	c.SetPrice(1, 690000)
	if p, _ := c.Price(1); p != 690000 {
		t.Fatalf("Price(1) after overwrite = %d", p)
	}
	if p, _ := c.Price(2); p != 400000 {
		t.Fatalf("Price(2) disturbed by other user's selection: %d", p)
	}

	c.ClearPrice(1)
	if _, ok := c.Price(1); ok {
		t.Fatal("Price(1) should be gone after clear")
	}
}

func TestEditTarget(t *testing.T) {
	c := NewContext()

	if _, ok := c.EditTarget(10); ok {
		t.Fatal("EditTarget should be absent initially")
	}
	c.SetEditTarget(10, 42)
	if target, ok := c.EditTarget(10); !ok || target != 42 {
		t.Fatalf("EditTarget(10) = %d, %v", target, ok)
	}
	c.ClearEditTarget(10)
	if _, ok := c.EditTarget(10); ok {
		t.Fatal("EditTarget should be gone after clear")
	}
}

func TestConsumePayload(t *testing.T) {
	c := NewContext()

	c.SetPayload(1, Payload{Kind: PayloadText, Text: "receipt 123"})
	p, ok := c.ConsumePayload(1)
	if !ok || p.Text != "receipt 123" {
		t.Fatalf("ConsumePayload = %+v, %v", p, ok)
	}
	if _, ok := c.ConsumePayload(1); ok {
		t.Fatal("payload should be consumed exactly once")
	}
}

func TestConcurrentAccess(t *testing.T) {
	c := NewContext()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			c.SetPrice(id, id*1000)
			if p, ok := c.Price(id); !ok || p != id*1000 {
				t.Errorf("Price(%d) = %d, %v", id, p, ok)
			}
		}(int64(i))
	}
	wg.Wait()
}

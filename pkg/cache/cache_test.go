package cache

import (
	"testing"
	"time"
)

func TestSetAndGet(t *testing.T) {
	c := New()
	c.Set("key1", "value1", 1*time.Second)
	val, ok := c.Get("key1")
	if !ok || val != "value1" {
		t.Fatalf("expected value1, got %v, exists=%v", val, ok)
	}
}

func TestExpiration(t *testing.T) {
	c := New()
	c.Set("key1", "value1", 100*time.Millisecond)
	time.Sleep(150 * time.Millisecond)
	_, ok := c.Get("key1")
	if ok {
		t.Fatalf("expected expired key to return false")
	}
}

func TestDelete(t *testing.T) {
	c := New()
	c.Set("key1", "value1", 1*time.Second)
	c.Delete("key1")
	_, ok := c.Get("key1")
	if ok {
		t.Fatalf("expected deleted key to return false")
	}
}

func TestInvalidate(t *testing.T) {
	c := New()
	c.Set("space:1", "s1", 1*time.Second)
	c.Set("space:2", "s2", 1*time.Second)
	c.Set("spaces:list", "all", 1*time.Second)
	c.Invalidate("space:")
	_, ok1 := c.Get("space:1")
	_, ok2 := c.Get("space:2")
	_, ok3 := c.Get("spaces:list")
	if ok1 || ok2 {
		t.Fatalf("expected space keys to be invalidated")
	}
	if !ok3 {
		t.Fatalf("expected spaces:list to still exist")
	}
}

func TestClear(t *testing.T) {
	c := New()
	c.Set("a", 1, 1*time.Second)
	c.Set("b", 2, 1*time.Second)
	c.Clear()
	if _, ok := c.Get("a"); ok {
		t.Fatalf("expected cleared cache to be empty")
	}
}

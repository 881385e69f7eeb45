package cache

import (
	"sync"
	"testing"
	"time"
)

func TestCache_BasicOperations(t *testing.T) {
	c := New[map[string]int](NoExpiration, 0)

	t.Run("Set and Get", func(t *testing.T) {
		c.Set("CITY", map[string]int{"SHEFFIELD": 1})

		val, found := c.Get("CITY")
		if !found {
			t.Fatal("expected CITY to be found")
		}
		if val["SHEFFIELD"] != 1 {
			t.Errorf("expected SHEFFIELD=1, got %v", val)
		}
	})

	t.Run("Get non-existent key", func(t *testing.T) {
		val, found := c.Get("COUNTY")
		if found || val != nil {
			t.Error("expected COUNTY to be missing")
		}
	})

	t.Run("Set overwrites", func(t *testing.T) {
		c.Set("CITY", map[string]int{"LEEDS": 2})
		val, _ := c.Get("CITY")
		if _, ok := val["SHEFFIELD"]; ok {
			t.Error("expected prior entry to be replaced")
		}
	})
}

func TestCache_Expiry(t *testing.T) {
	c := New[string](10*time.Millisecond, 0)
	c.Set("CITY", "v")

	if _, found := c.Get("CITY"); !found {
		t.Fatal("expected CITY before expiry")
	}
	time.Sleep(30 * time.Millisecond)
	if _, found := c.Get("CITY"); found {
		t.Error("expected CITY to expire")
	}
}

func TestCache_NoExpiration(t *testing.T) {
	c := New[int](NoExpiration, 0)
	c.Set("ADDR_TYPE", 1)
	time.Sleep(10 * time.Millisecond)
	if v, found := c.Get("ADDR_TYPE"); !found || v != 1 {
		t.Errorf("expected ADDR_TYPE=1 to persist, got %v %v", v, found)
	}
}

func TestCache_ConcurrentAccess(t *testing.T) {
	c := New[int](NoExpiration, 0)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := string(rune('a' + n%5))
			c.Set(key, n)
			c.Get(key)
		}(i)
	}
	wg.Wait()

	for _, key := range []string{"a", "b", "c", "d", "e"} {
		if _, found := c.Get(key); !found {
			t.Errorf("expected %s to be present", key)
		}
	}
}

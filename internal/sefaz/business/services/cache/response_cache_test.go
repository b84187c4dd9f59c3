package cache

import (
	"testing"
	"time"
)

func TestKeyIsCanonicalForEquivalentParams(t *testing.T) {
	a := map[string]interface{}{
		"dias": 1,
		"produto": map[string]interface{}{
			"gtin": "7894900011517",
		},
		"registrosPorPagina": 50,
	}
	b := map[string]interface{}{
		"registrosPorPagina": 50,
		"produto": map[string]interface{}{
			"gtin": "7894900011517",
		},
		"dias": 1,
	}

	if Key("produto/pesquisa", a) != Key("produto/pesquisa", b) {
		t.Error("equivalent params produced different keys")
	}
	if Key("produto/pesquisa", a) == Key("combustivel/pesquisa", a) {
		t.Error("different endpoints produced the same key")
	}
}

func TestCacheReturnsStoredValue(t *testing.T) {
	c := NewResponseCache(time.Minute, 10)
	params := map[string]interface{}{"gtin": "7894900011517"}

	c.Set("produtos/gtin", params, "stored", 0)

	value, ok := c.Get("produtos/gtin", params)
	if !ok || value != "stored" {
		t.Fatalf("Get = (%v, %v), want (stored, true)", value, ok)
	}
	if _, ok := c.Get("produtos/descricao", params); ok {
		t.Error("hit on a different endpoint")
	}
}

func TestCacheExpiresEntriesLazily(t *testing.T) {
	c := NewResponseCache(30*time.Minute, 10)
	base := time.Now()
	c.now = func() time.Time { return base }

	params := map[string]interface{}{"gtin": "7894900011517"}
	c.Set("produtos/gtin", params, "stored", 0)

	c.now = func() time.Time { return base.Add(29 * time.Minute) }
	if _, ok := c.Get("produtos/gtin", params); !ok {
		t.Fatal("entry expired before its TTL")
	}

	c.now = func() time.Time { return base.Add(31 * time.Minute) }
	if _, ok := c.Get("produtos/gtin", params); ok {
		t.Fatal("entry survived past its TTL")
	}
	if c.Len() != 0 {
		t.Errorf("Len = %d after purge, want 0", c.Len())
	}
}

func TestCacheEvictsOldestAtCapacity(t *testing.T) {
	c := NewResponseCache(time.Minute, 2)

	first := map[string]interface{}{"gtin": "1"}
	second := map[string]interface{}{"gtin": "2"}
	third := map[string]interface{}{"gtin": "3"}

	c.Set("produtos/gtin", first, "a", 0)
	c.Set("produtos/gtin", second, "b", 0)
	c.Set("produtos/gtin", third, "c", 0)

	if c.Len() != 2 {
		t.Fatalf("Len = %d, want 2", c.Len())
	}
	if _, ok := c.Get("produtos/gtin", first); ok {
		t.Error("oldest entry was not evicted")
	}
	if _, ok := c.Get("produtos/gtin", second); !ok {
		t.Error("second entry was evicted out of order")
	}
	if _, ok := c.Get("produtos/gtin", third); !ok {
		t.Error("newest entry missing")
	}
}

func TestCacheOverwriteDoesNotGrow(t *testing.T) {
	c := NewResponseCache(time.Minute, 2)
	params := map[string]interface{}{"gtin": "1"}

	c.Set("produtos/gtin", params, "old", 0)
	c.Set("produtos/gtin", params, "new", 0)

	if c.Len() != 1 {
		t.Fatalf("Len = %d, want 1", c.Len())
	}
	value, _ := c.Get("produtos/gtin", params)
	if value != "new" {
		t.Errorf("Get = %v, want new", value)
	}
}

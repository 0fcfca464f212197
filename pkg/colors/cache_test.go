package colors

import (
	"testing"
	"time"

	"github.com/harrisonrobin/roadmap/pkg/model"
)

func TestFixedSlots(t *testing.T) {
	c, _ := NewCache("")
	seen := make(map[int]bool)
	for _, cat := range model.Categories {
		slot := c.Slot(cat)
		if slot < 1 || slot >= firstSpare {
			t.Errorf("Expected fixed slot for %s, got %d", cat, slot)
		}
		if seen[slot] {
			t.Errorf("Slot %d assigned twice", slot)
		}
		seen[slot] = true
	}
	if got := c.Slot(""); got != NoCategory {
		t.Errorf("Expected grey slot for empty category, got %d", got)
	}
	if len(c.Categories) != 0 {
		t.Errorf("Expected fixed categories not to be cached, got %d", len(c.Categories))
	}
}

func TestPassthroughLRU(t *testing.T) {
	c, _ := NewCache("")
	clock := time.Date(2025, 11, 17, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}

	spares := len(palette) - firstSpare
	slots := make(map[string]int)
	for i := 0; i < spares; i++ {
		name := model.Category(string(rune('A' + i)))
		slots[string(name)] = c.Slot(name)
	}
	if again := c.Slot("A"); again != slots["A"] {
		t.Errorf("Expected stable slot %d for A, got %d", slots["A"], again)
	}

	// B is now the least recently used.
	got := c.Slot("NEW")
	if got != slots["B"] {
		t.Errorf("Expected NEW to recycle B's slot %d, got %d", slots["B"], got)
	}
	if _, ok := c.Categories["B"]; ok {
		t.Error("Expected B to be evicted")
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	c, err := NewCache(dir)
	if err != nil {
		t.Fatalf("NewCache() failed: %v", err)
	}
	slot := c.Slot("RESEARCH")
	if err := c.Save(); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	loaded, err := NewCache(dir)
	if err != nil {
		t.Fatalf("NewCache() failed: %v", err)
	}
	if got := loaded.Slot("RESEARCH"); got != slot {
		t.Errorf("Expected slot %d after reload, got %d", slot, got)
	}
}

func TestHexFallsBack(t *testing.T) {
	if Hex(-1) != Hex(NoCategory) || Hex(99) != Hex(NoCategory) {
		t.Error("Expected out-of-range slots to use the grey swatch")
	}
}

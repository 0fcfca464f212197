package colors

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/harrisonrobin/roadmap/pkg/model"
)

type CategoryState struct {
	ColorID  string    `json:"color_id"`
	LastUsed time.Time `json:"last_used"`
}

// Cache hands out colour slots. The five known categories own fixed slots;
// any other category borrows one of the spare slots, evicting the least
// recently used one when they are all taken.
type Cache struct {
	Path       string
	Categories map[string]*CategoryState `json:"categories"`

	mu    sync.Mutex
	dirty bool
	now   func() time.Time
}

const cacheFile = "category_colors.json"

// NewCache loads the cache stored in dir, if any. An empty dir keeps the
// cache in memory only.
func NewCache(dir string) (*Cache, error) {
	cache := &Cache{
		Categories: make(map[string]*CategoryState),
		now:        time.Now,
	}
	if dir == "" {
		return cache, nil
	}
	cache.Path = filepath.Join(dir, cacheFile)
	if _, err := os.Stat(cache.Path); err == nil {
		if err := cache.Load(); err != nil {
			return nil, err
		}
	}
	return cache, nil
}

func (c *Cache) Load() error {
	f, err := os.Open(c.Path)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewDecoder(f).Decode(&c.Categories)
}

func (c *Cache) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.dirty || c.Path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(c.Path), 0700); err != nil {
		return err
	}

	f, err := os.Create(c.Path)
	if err != nil {
		return err
	}
	defer f.Close()
	err = json.NewEncoder(f).Encode(c.Categories)
	if err == nil {
		c.dirty = false
	}
	return err
}

// Slot returns the palette slot for a category.
func (c *Cache) Slot(category model.Category) int {
	if category == "" {
		return NoCategory
	}
	if i, ok := fixed[category]; ok {
		return i
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	name := string(category)
	if state, exists := c.Categories[name]; exists {
		state.LastUsed = c.now()
		c.dirty = true
		return atoi(state.ColorID)
	}
	return c.assign(name)
}

func (c *Cache) assign(name string) int {
	used := make(map[string]bool)
	for _, s := range c.Categories {
		used[s.ColorID] = true
	}

	for i := firstSpare; i < len(palette); i++ {
		id := strconv.Itoa(i)
		if !used[id] {
			c.Categories[name] = &CategoryState{ColorID: id, LastUsed: c.now()}
			c.dirty = true
			return i
		}
	}

	// All spare slots taken -> evict the least recently used.
	var oldest string
	var oldestTime time.Time
	first := true
	for n, s := range c.Categories {
		if first || s.LastUsed.Before(oldestTime) {
			oldestTime = s.LastUsed
			oldest = n
			first = false
		}
	}
	recycled := c.Categories[oldest].ColorID
	delete(c.Categories, oldest)
	c.Categories[name] = &CategoryState{ColorID: recycled, LastUsed: c.now()}
	c.dirty = true
	return atoi(recycled)
}

func atoi(id string) int {
	i, err := strconv.Atoi(id)
	if err != nil || i < firstSpare || i >= len(palette) {
		return NoCategory
	}
	return i
}

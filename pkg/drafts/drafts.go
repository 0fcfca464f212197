// Package drafts keeps unsaved tick edits on disk so they survive a restart.
// Each edited task is one file under <base>/ticks, named by the base64 form
// of the task key.
package drafts

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"

	"github.com/hashicorp/go-hclog"
	"github.com/peterbourgon/diskv/v3"

	"github.com/harrisonrobin/roadmap/pkg/model"
)

const folder = "ticks"

type record struct {
	Key   string      `json:"key"`
	Ticks model.Ticks `json:"ticks"`
}

type Store struct {
	d        *diskv.Diskv
	basePath string
	log      hclog.Logger
}

// Open returns a draft store rooted at basePath. The directory is created on
// first write. log may be nil.
func Open(basePath string, log hclog.Logger) *Store {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Store{
		d: diskv.New(diskv.Options{
			BasePath:          basePath,
			AdvancedTransform: keyToPathTransform,
			InverseTransform:  pathToKeyTransform,
			CacheSizeMax:      64 * 1024,
		}),
		basePath: basePath,
		log:      log,
	}
}

// Load returns every stored edit. Unreadable entries are skipped.
func (s *Store) Load() (model.TickState, error) {
	out := make(model.TickState)
	if _, err := os.Stat(s.basePath); os.IsNotExist(err) {
		return out, nil
	}
	for key := range s.d.Keys(context.Background().Done()) {
		val, err := s.d.Read(key)
		if err != nil {
			return nil, fmt.Errorf("reading draft %s: %w", key, err)
		}
		var r record
		if err := json.Unmarshal(val, &r); err != nil {
			s.log.Warn("skipping unreadable draft", "file", key, "error", err)
			continue
		}
		out[r.Key] = r.Ticks
	}
	return out, nil
}

// Save replaces the stored edits with edits. An empty map clears the store.
func (s *Store) Save(edits model.TickState) error {
	keep := make(map[string]bool, len(edits))
	for key, ticks := range edits {
		name := toFileKey(key)
		keep[name] = true
		data, err := json.Marshal(record{Key: key, Ticks: ticks})
		if err != nil {
			return err
		}
		if err := s.d.Write(name, data); err != nil {
			return fmt.Errorf("writing draft for %q: %w", key, err)
		}
	}

	if _, err := os.Stat(s.basePath); os.IsNotExist(err) {
		return nil
	}
	var stale []string
	for name := range s.d.Keys(nil) {
		if !keep[name] {
			stale = append(stale, name)
		}
	}
	for _, name := range stale {
		if err := s.d.Erase(name); err != nil {
			return fmt.Errorf("erasing draft %s: %w", name, err)
		}
	}
	return nil
}

func toFileKey(taskKey string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(taskKey))
}

func keyToPathTransform(s string) *diskv.PathKey {
	return &diskv.PathKey{Path: []string{folder}, FileName: s}
}

func pathToKeyTransform(pathKey *diskv.PathKey) string {
	return pathKey.FileName
}

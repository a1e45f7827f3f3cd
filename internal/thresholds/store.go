package thresholds

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/husnusametd/spectra/internal/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const sectionKey = "thresholds"

// Snapshot is a read-only view of the store at one version.
type Snapshot struct {
	Version  int64
	LoadedAt time.Time
	Values   Set
}

// ChangeListener is called after the file changed on disk or was replaced.
type ChangeListener func(Snapshot)

// Store keeps the threshold section of a YAML file. Readers always get a
// clone; writers replace the whole set.
//
// The file is read with yaml.v3 rather than through viper so that key case
// is preserved. Non-numeric entries and other top-level sections are kept
// untouched across writes.
type Store struct {
	path string

	mu        sync.RWMutex
	snapshot  Snapshot
	extras    map[string]any
	others    map[string]any
	listeners []ChangeListener
	watcher   *viper.Viper
}

// Open loads path. A missing file yields an empty store that is created on
// the first Replace.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("threshold store requires path")
	}
	s := &Store{path: path}
	if err := s.reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the backing file.
func (s *Store) Path() string { return s.path }

// Snapshot returns the current values and version.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneSnapshot(s.snapshot)
}

// Values is shorthand for Snapshot().Values.
func (s *Store) Values() Set { return s.Snapshot().Values }

// Extras returns the non-numeric entries of the threshold section.
func (s *Store) Extras() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]any, len(s.extras))
	for k, v := range s.extras {
		out[k] = v
	}
	return out
}

// Replace persists values as the new threshold set. The previous file, if
// any, is copied to <path>.bak first.
func (s *Store) Replace(values Set) error {
	s.mu.Lock()
	next := values.Clone()
	if err := s.write(next); err != nil {
		s.mu.Unlock()
		return err
	}
	s.snapshot = Snapshot{
		Version:  s.snapshot.Version + 1,
		LoadedAt: time.Now(),
		Values:   next,
	}
	s.mu.Unlock()
	logger.Infof("[thresholds] saved %d values to %s", len(next), filepath.Base(s.path))
	s.notify()
	return nil
}

// Merge adds every key of defaults the store does not define yet and
// persists the result. Existing values are never overwritten. It returns
// the names that were added; nothing is written when the list is empty.
func (s *Store) Merge(defaults Set) ([]string, error) {
	current := s.Values()
	merged, added := MergeMissing(current, defaults)
	if len(added) == 0 {
		return nil, nil
	}
	if err := s.Replace(merged); err != nil {
		return nil, err
	}
	return added, nil
}

// Subscribe registers fn for change notifications.
func (s *Store) Subscribe(fn ChangeListener) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// Watch reloads the store whenever the file changes on disk. It is a no-op
// when already watching.
func (s *Store) Watch() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watcher != nil {
		return nil
	}
	v := viper.New()
	v.SetConfigFile(s.path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("watch thresholds failed: %w", err)
	}
	v.OnConfigChange(func(evt fsnotify.Event) {
		if err := s.reload(); err != nil {
			logger.Errorf("[thresholds] reload failed (%s): %v", evt.Name, err)
			return
		}
		s.notify()
	})
	v.WatchConfig()
	s.watcher = v
	return nil
}

func (s *Store) reload() error {
	values, extras, others, err := readFile(s.path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.snapshot = Snapshot{
		Version:  s.snapshot.Version + 1,
		LoadedAt: time.Now(),
		Values:   values,
	}
	s.extras = extras
	s.others = others
	s.mu.Unlock()
	logger.Debugf("[thresholds] loaded %d values from %s", len(values), filepath.Base(s.path))
	return nil
}

func (s *Store) notify() {
	s.mu.RLock()
	snap := cloneSnapshot(s.snapshot)
	listeners := append([]ChangeListener(nil), s.listeners...)
	s.mu.RUnlock()
	for _, fn := range listeners {
		go func(cb ChangeListener) {
			defer func() {
				if r := recover(); r != nil {
					logger.Errorf("[thresholds] listener panic: %v", r)
				}
			}()
			cb(snap)
		}(fn)
	}
}

// write must be called with s.mu held.
func (s *Store) write(values Set) error {
	section := make(map[string]any, len(values)+len(s.extras))
	for k, v := range s.extras {
		section[k] = v
	}
	for k, v := range values {
		section[k] = v
	}
	doc := make(map[string]any, len(s.others)+1)
	for k, v := range s.others {
		doc[k] = v
	}
	doc[sectionKey] = section
	raw, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode thresholds failed: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create threshold dir failed: %w", err)
	}
	if err := backup(s.path); err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write thresholds failed: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("write thresholds failed: %w", err)
	}
	return nil
}

// BackupPath is where Replace keeps the previous version of path.
func BackupPath(path string) string { return path + ".bak" }

func backup(path string) error {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read thresholds for backup failed: %w", err)
	}
	if err := os.WriteFile(BackupPath(path), raw, 0o644); err != nil {
		return fmt.Errorf("backup thresholds failed: %w", err)
	}
	return nil
}

func readFile(path string) (Set, map[string]any, map[string]any, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Warnf("[thresholds] %s does not exist yet, starting empty", path)
		return Set{}, map[string]any{}, map[string]any{}, nil
	}
	if err != nil {
		return nil, nil, nil, fmt.Errorf("read thresholds failed: %w", err)
	}
	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, nil, nil, fmt.Errorf("parse thresholds failed: %w", err)
	}
	values := Set{}
	extras := map[string]any{}
	others := map[string]any{}
	for k, v := range doc {
		if k != sectionKey {
			others[k] = v
		}
	}
	section, ok := doc[sectionKey].(map[string]any)
	if doc[sectionKey] != nil && !ok {
		return nil, nil, nil, fmt.Errorf("parse thresholds failed: %q must be a mapping", sectionKey)
	}
	for k, v := range section {
		if f, ok := asFloat(v); ok {
			values[k] = f
			continue
		}
		extras[k] = v
	}
	return values, extras, others, nil
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func cloneSnapshot(src Snapshot) Snapshot {
	return Snapshot{Version: src.Version, LoadedAt: src.LoadedAt, Values: src.Values.Clone()}
}

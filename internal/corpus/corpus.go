// Package corpus holds the bundled curated verse data: the small offline
// search corpus and the daily-verse rotation list. Both ship embedded in the
// binary; extra YAML files can be layered on from configured directories and
// reloaded at runtime.
package corpus

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/beroea/beroea/internal/models"
)

//go:embed data/*.yaml
var embedded embed.FS

// Entry is one curated verse with its per-language book names and
// per-translation texts.
type Entry struct {
	BookNames    map[string]string `yaml:"book_names"`
	Chapter      int               `yaml:"chapter"`
	Verse        int               `yaml:"verse"`
	IsJesusWords bool              `yaml:"is_jesus_words"`
	Versions     map[string]string `yaml:"versions"`
}

// file is the schema shared by embedded and user-provided corpus files.
// Either section may be absent.
type file struct {
	Verses []Entry             `yaml:"verses"`
	Daily  []models.DailyVerse `yaml:"daily"`
}

// Corpus is the loaded curated data. Safe for concurrent readers; Reload
// swaps the data atomically under the write lock.
type Corpus struct {
	mu        sync.RWMutex
	entries   []Entry
	daily     []models.DailyVerse
	extraDirs []string
	logger    *zap.Logger
}

// Load reads the embedded corpus plus any *.yaml files found in extraDirs.
func Load(extraDirs []string, logger *zap.Logger) (*Corpus, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Corpus{extraDirs: extraDirs, logger: logger}
	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// Reload re-reads everything. Used by the corpus watcher when an extra file
// changes. A broken extra file is skipped with a warning rather than taking
// the whole corpus down.
func (c *Corpus) Reload() error {
	var entries []Entry
	var daily []models.DailyVerse

	names, err := embedded.ReadDir("data")
	if err != nil {
		return fmt.Errorf("read embedded corpus: %w", err)
	}
	for _, d := range names {
		data, err := embedded.ReadFile("data/" + d.Name())
		if err != nil {
			return fmt.Errorf("read embedded corpus file %s: %w", d.Name(), err)
		}
		var f file
		if err := yaml.Unmarshal(data, &f); err != nil {
			return fmt.Errorf("parse embedded corpus file %s: %w", d.Name(), err)
		}
		entries = append(entries, f.Verses...)
		daily = append(daily, f.Daily...)
	}

	for _, dir := range c.extraDirs {
		paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
		if err != nil {
			continue
		}
		sort.Strings(paths)
		for _, p := range paths {
			data, err := os.ReadFile(p)
			if err != nil {
				c.logger.Warn("corpus file read failed", zap.String("path", p), zap.Error(err))
				continue
			}
			var f file
			if err := yaml.Unmarshal(data, &f); err != nil {
				c.logger.Warn("corpus file parse failed", zap.String("path", p), zap.Error(err))
				continue
			}
			entries = append(entries, f.Verses...)
			daily = append(daily, f.Daily...)
		}
	}

	if len(daily) == 0 {
		return fmt.Errorf("corpus has no daily verses")
	}

	c.mu.Lock()
	c.entries = entries
	c.daily = daily
	c.mu.Unlock()
	c.logger.Debug("corpus loaded", zap.Int("verses", len(entries)), zap.Int("daily", len(daily)))
	return nil
}

// Entries returns the curated search corpus.
func (c *Corpus) Entries() []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries
}

// Daily returns the daily rotation list.
func (c *Corpus) Daily() []models.DailyVerse {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.daily
}

// Package classify maps raw process identifiers to trackability,
// friendly names, categories and icon classes, backed by reloadable
// pattern tables.
package classify

import (
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/fernwall/screentime/internal/domain"
)

// DefaultIconClass is returned when neither the app nor its category
// has a configured icon.
const DefaultIconClass = "app"

// executable suffixes stripped before matching, per platform.
var exeSuffixes = []string{".exe", ".app", ".bin"}

// tables is one immutable snapshot of the three mapping tables.
// Classification calls read a snapshot; Reload swaps the whole pointer
// so no table mutates mid-tick.
type tables struct {
	blacklist  []string          // normalized names/prefixes, never trackable
	categories map[string]string // normalized name -> category
	icons      map[string]string // normalized name or category -> icon class
	friendly   map[string]string // normalized name -> display name
}

// Classifier implements domain.AppClassifier over a config file. A nil
// config path serves the compiled-in defaults, so an unconfigured agent
// still classifies sensibly.
type Classifier struct {
	configPath string
	logger     *zap.Logger

	mu   sync.RWMutex
	snap *tables
}

// New creates a classifier and performs the initial load. A load
// failure falls back to the built-in defaults rather than failing the
// agent.
func New(configPath string, logger *zap.Logger) *Classifier {
	c := &Classifier{
		configPath: configPath,
		logger:     logger,
		snap:       defaultTables(),
	}
	if configPath != "" {
		if err := c.Reload(); err != nil {
			logger.Warn("classifier config load failed, using defaults",
				zap.String("path", configPath),
				zap.Error(err))
		}
	}
	return c
}

// Reload re-reads the pattern tables from the config file and swaps the
// snapshot. Idempotent: reloading an unchanged file is a no-op beyond
// the pointer swap.
func (c *Classifier) Reload() error {
	if c.configPath == "" {
		c.mu.Lock()
		c.snap = defaultTables()
		c.mu.Unlock()
		return nil
	}

	v := viper.New()
	v.SetConfigFile(c.configPath)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read classifier config: %w", err)
	}

	next := defaultTables()
	for _, name := range v.GetStringSlice("blacklist") {
		next.blacklist = append(next.blacklist, normalize(name))
	}
	for name, cat := range v.GetStringMapString("categories") {
		next.categories[normalize(name)] = cat
	}
	for key, icon := range v.GetStringMapString("icons") {
		next.icons[normalize(key)] = icon
	}
	for name, display := range v.GetStringMapString("friendly_names") {
		next.friendly[normalize(name)] = display
	}

	c.mu.Lock()
	c.snap = next
	c.mu.Unlock()

	c.logger.Info("classifier tables reloaded",
		zap.Int("blacklist", len(next.blacklist)),
		zap.Int("categories", len(next.categories)))
	return nil
}

func (c *Classifier) snapshot() *tables {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

// IsTrackable reports whether the process is a user-facing app. Unknown
// apps are trackable by default; blacklisted system processes match
// exactly or by prefix, case-insensitively, suffix-stripped.
func (c *Classifier) IsTrackable(name string) bool {
	n := normalize(name)
	if n == "" {
		return false
	}
	for _, b := range c.snapshot().blacklist {
		if n == b || strings.HasPrefix(n, b) {
			return false
		}
	}
	return true
}

// FriendlyName returns the configured display name, or a title-cased
// fallback derived from the normalized process name.
func (c *Classifier) FriendlyName(name string) string {
	n := normalize(name)
	if display, ok := c.snapshot().friendly[n]; ok {
		return display
	}
	if n == "" {
		return name
	}
	return strings.ToUpper(n[:1]) + n[1:]
}

// Category returns the configured category, or "" when unknown.
func (c *Classifier) Category(name string) string {
	return c.snapshot().categories[normalize(name)]
}

// IconClass resolves the icon by app name first, then by the app's
// category, then the default.
func (c *Classifier) IconClass(name string) string {
	snap := c.snapshot()
	n := normalize(name)
	if icon, ok := snap.icons[n]; ok {
		return icon
	}
	if cat, ok := snap.categories[n]; ok {
		if icon, ok := snap.icons[normalize(cat)]; ok {
			return icon
		}
	}
	return DefaultIconClass
}

// normalize lowercases and strips platform executable suffixes so
// "Chrome.EXE" and "chrome" match the same tables.
func normalize(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	for _, suffix := range exeSuffixes {
		n = strings.TrimSuffix(n, suffix)
	}
	return n
}

// Ensure Classifier implements domain.AppClassifier.
var _ domain.AppClassifier = (*Classifier)(nil)

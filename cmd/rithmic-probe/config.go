package main

import (
	"fmt"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/gobuffalo/envy"
)

// fileConfig is the shape of the probe's TOML config file (SPEC_FULL.md §6
// **[NEW] example CLI configuration**): credentials only. The file has no
// plant list; Connect always logs in the Ticker, History, Order and PnL
// plants. It is intentionally flat — one file, no profiles — since the
// probe is a single-session diagnostic tool, not a fleet manager.
type fileConfig struct {
	User             string `toml:"user"`
	Password         string `toml:"password"`
	SystemName       string `toml:"system_name"`
	GatewayName      string `toml:"gateway_name"`
	DirectGatewayURL string `toml:"direct_gateway_url"`
}

// configStore holds the most recently loaded config behind a lock so the
// fsnotify watcher goroutine can swap it out without racing readers. Only
// the credentials used by the *next* Connect call are affected by a
// reload; an in-flight session is left alone (SPEC_FULL.md §6).
type configStore struct {
	mu   sync.RWMutex
	cfg  fileConfig
	path string
}

func newConfigStore(path string) (*configStore, error) {
	s := &configStore{path: path}
	if err := s.reload(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *configStore) reload() error {
	var cfg fileConfig
	if _, err := toml.DecodeFile(s.path, &cfg); err != nil {
		return fmt.Errorf("rithmic-probe: decode config %s: %w", s.path, err)
	}

	// Environment overrides take precedence over the file, matching
	// spec.md §1's carve-out that credential loading from the environment
	// is an external-collaborator concern (SPEC_FULL.md §6).
	cfg.User = envy.Get("RITHMIC_USER", cfg.User)
	cfg.Password = envy.Get("RITHMIC_PASSWORD", cfg.Password)
	cfg.SystemName = envy.Get("RITHMIC_SYSTEM_NAME", cfg.SystemName)
	cfg.GatewayName = envy.Get("RITHMIC_GATEWAY_NAME", cfg.GatewayName)
	cfg.DirectGatewayURL = envy.Get("RITHMIC_DIRECT_GATEWAY_URL", cfg.DirectGatewayURL)

	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
	return nil
}

func (s *configStore) get() fileConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

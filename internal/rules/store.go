// Package rules persists learned extraction rules, promoted adapters
// and replay samples in a single JSON state file shared across
// processes via an advisory file lock.
package rules

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/quantmind-br/webextract-go/internal/domain"
	"github.com/quantmind-br/webextract-go/internal/utils"
)

const (
	stateVersion = 1

	// ReplayMaxSamplesPerHost bounds how many captured payloads are
	// retained per host for rule evaluation.
	ReplayMaxSamplesPerHost = 20

	// ReplayMaxPayloadChars bounds the stored size of a single sample.
	ReplayMaxPayloadChars = 120_000
)

// state is the on-disk document. Missing sections are backfilled on
// load so older or hand-edited files keep working.
type state struct {
	Version          int                               `json:"version"`
	GeneratedRules   map[string]domain.AdaptiveRule    `json:"generated_rules"`
	PromotedAdapters map[string]domain.PromotedAdapter `json:"promoted_adapters"`
	ReplaySamples    map[string][]domain.ReplaySample  `json:"replay_samples"`
}

func defaultState() *state {
	return &state{
		Version:          stateVersion,
		GeneratedRules:   map[string]domain.AdaptiveRule{},
		PromotedAdapters: map[string]domain.PromotedAdapter{},
		ReplaySamples:    map[string][]domain.ReplaySample{},
	}
}

// Store reads and writes the rule state file. All operations take the
// file lock, so concurrent processes never lose updates.
type Store struct {
	path   string
	logger *utils.Logger
	now    func() time.Time
}

// StoreOption customizes a Store.
type StoreOption func(*Store)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// NewStore creates a store backed by the given file path. The file and
// its parent directory are created lazily on first use.
func NewStore(path string, logger *utils.Logger, opts ...StoreOption) *Store {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	s := &Store{
		path:   path,
		logger: logger.WithComponent("rules"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

func normalizeHost(host string) string {
	return strings.ToLower(strings.TrimSpace(host))
}

// withLockedState runs fn under the file lock. When fn reports a
// mutation the state is written back atomically within the lock.
func (s *Store) withLockedState(fn func(st *state) (bool, error)) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open state file: %w", err)
	}
	defer f.Close()

	lock := flock.New(s.path)
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("failed to lock state file: %w", err)
	}
	defer lock.Unlock()

	st := s.readState(f)
	mutated, err := fn(st)
	if err != nil {
		return err
	}
	if !mutated {
		return nil
	}

	encoded, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	if _, err := f.Seek(0, 0); err != nil {
		return fmt.Errorf("failed to rewind state file: %w", err)
	}
	if err := f.Truncate(0); err != nil {
		return fmt.Errorf("failed to truncate state file: %w", err)
	}
	if _, err := f.Write(encoded); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("failed to sync state file: %w", err)
	}
	return nil
}

// readState parses the locked file, falling back to a fresh document
// when the file is empty or corrupt.
func (s *Store) readState(f *os.File) *state {
	st := defaultState()

	if _, err := f.Seek(0, 0); err != nil {
		return st
	}
	raw, err := io.ReadAll(f)
	if err != nil || len(strings.TrimSpace(string(raw))) == 0 {
		return st
	}

	var parsed state
	if err := json.Unmarshal(raw, &parsed); err != nil {
		s.logger.Warn().Err(err).Str("path", s.path).Msg("rule state file corrupt, reinitializing")
		return st
	}
	if parsed.Version == 0 {
		parsed.Version = stateVersion
	}
	if parsed.GeneratedRules == nil {
		parsed.GeneratedRules = map[string]domain.AdaptiveRule{}
	}
	if parsed.PromotedAdapters == nil {
		parsed.PromotedAdapters = map[string]domain.PromotedAdapter{}
	}
	if parsed.ReplaySamples == nil {
		parsed.ReplaySamples = map[string][]domain.ReplaySample{}
	}
	return &parsed
}

// GeneratedRule returns the stored rule for a host, if any.
func (s *Store) GeneratedRule(host string) (*domain.AdaptiveRule, error) {
	lowered := normalizeHost(host)
	if lowered == "" {
		return nil, nil
	}
	var found *domain.AdaptiveRule
	err := s.withLockedState(func(st *state) (bool, error) {
		if rule, ok := st.GeneratedRules[lowered]; ok {
			found = &rule
		}
		return false, nil
	})
	return found, err
}

// SaveGeneratedRule persists a rule for a host, stamping the host and
// generation time when absent.
func (s *Store) SaveGeneratedRule(host string, rule domain.AdaptiveRule) error {
	lowered := normalizeHost(host)
	if lowered == "" {
		return nil
	}
	rule.Host = lowered
	if rule.GeneratedAt == 0 {
		rule.GeneratedAt = float64(s.now().UnixNano()) / float64(time.Second)
	}
	return s.withLockedState(func(st *state) (bool, error) {
		st.GeneratedRules[lowered] = rule
		return true, nil
	})
}

// SavePromotedAdapter persists a promoted adapter for a host, stamping
// the host and promotion time when absent.
func (s *Store) SavePromotedAdapter(host string, adapter domain.PromotedAdapter) error {
	lowered := normalizeHost(host)
	if lowered == "" {
		return nil
	}
	adapter.Host = lowered
	if adapter.PromotedAt == 0 {
		adapter.PromotedAt = float64(s.now().UnixNano()) / float64(time.Second)
	}
	return s.withLockedState(func(st *state) (bool, error) {
		st.PromotedAdapters[lowered] = adapter
		return true, nil
	})
}

// PromotedAdapterForHost returns the promoted adapter matching a host:
// an exact key first, then any key the host is a dot-suffix of. Suffix
// keys are scanned in sorted order so lookups are deterministic.
func (s *Store) PromotedAdapterForHost(host string) (*domain.PromotedAdapter, error) {
	lowered := normalizeHost(host)
	if lowered == "" {
		return nil, nil
	}
	var found *domain.PromotedAdapter
	err := s.withLockedState(func(st *state) (bool, error) {
		if adapter, ok := st.PromotedAdapters[lowered]; ok {
			found = &adapter
			return false, nil
		}
		keys := make([]string, 0, len(st.PromotedAdapters))
		for key := range st.PromotedAdapters {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			if lowered == key || strings.HasSuffix(lowered, "."+key) {
				adapter := st.PromotedAdapters[key]
				found = &adapter
				return false, nil
			}
		}
		return false, nil
	})
	return found, err
}

// RecordReplaySample appends a captured payload for a host, truncating
// oversized payloads and keeping only the newest samples.
func (s *Store) RecordReplaySample(host string, sample domain.ReplaySample) error {
	lowered := normalizeHost(host)
	if lowered == "" {
		return nil
	}
	if len(sample.Payload) > ReplayMaxPayloadChars {
		sample.Payload = sample.Payload[:ReplayMaxPayloadChars]
	}
	if sample.CapturedAt == 0 {
		sample.CapturedAt = float64(s.now().UnixNano()) / float64(time.Second)
	}
	return s.withLockedState(func(st *state) (bool, error) {
		samples := append(st.ReplaySamples[lowered], sample)
		if len(samples) > ReplayMaxSamplesPerHost {
			samples = samples[len(samples)-ReplayMaxSamplesPerHost:]
		}
		st.ReplaySamples[lowered] = samples
		return true, nil
	})
}

// ReplaySamples returns the newest samples for a host, up to limit.
// A non-positive limit returns all retained samples.
func (s *Store) ReplaySamples(host string, limit int) ([]domain.ReplaySample, error) {
	lowered := normalizeHost(host)
	if lowered == "" {
		return nil, nil
	}
	var out []domain.ReplaySample
	err := s.withLockedState(func(st *state) (bool, error) {
		samples := st.ReplaySamples[lowered]
		if limit > 0 && len(samples) > limit {
			samples = samples[len(samples)-limit:]
		}
		out = append([]domain.ReplaySample(nil), samples...)
		return false, nil
	})
	return out, err
}

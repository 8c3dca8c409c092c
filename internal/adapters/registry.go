// Package adapters maps hosts to extraction recipes. Promoted rules
// from the state store take precedence, then overlay adapters loaded
// from YAML, then the built-in set.
package adapters

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/quantmind-br/webextract-go/internal/domain"
	"github.com/quantmind-br/webextract-go/internal/utils"
)

// DomainAdapter is a host-specific extraction recipe.
type DomainAdapter struct {
	Name                  string   `yaml:"name"`
	HostSuffixes          []string `yaml:"host_suffixes"`
	HTMLContainerPatterns []string `yaml:"container_patterns"`
	DropTextPatterns      []string `yaml:"drop_text_patterns"`
}

// builtinAdapters are the hand-curated recipes for hosts where generic
// readability extraction is known to underperform.
var builtinAdapters = []DomainAdapter{
	{
		Name:         "medium",
		HostSuffixes: []string{"medium.com"},
		HTMLContainerPatterns: []string{
			`<article[^>]*>(.*?)</article>`,
			`<div[^>]+class=["'][^"']*section-content[^"']*["'][^>]*>(.*?)</div>`,
		},
		DropTextPatterns: []string{
			`Follow\s+Me`,
			`Sign up`,
			`Get unlimited access`,
		},
	},
	{
		Name:         "substack",
		HostSuffixes: []string{"substack.com"},
		HTMLContainerPatterns: []string{
			`<article[^>]*>(.*?)</article>`,
			`<div[^>]+class=["'][^"']*body[^"']*["'][^>]*>(.*?)</div>`,
		},
	},
	{
		Name:         "arxiv",
		HostSuffixes: []string{"arxiv.org"},
		HTMLContainerPatterns: []string{
			`<main[^>]*>(.*?)</main>`,
			`<div[^>]+id=["']abs["'][^>]*>(.*?)</div>`,
		},
		DropTextPatterns: []string{
			`Submitters?:.*`,
			`Subjects?:.*`,
		},
	},
}

// PromotedLookup resolves certified adapters learned at runtime.
type PromotedLookup interface {
	PromotedAdapterForHost(host string) (*domain.PromotedAdapter, error)
}

// Registry resolves the adapter for a host.
type Registry struct {
	promoted PromotedLookup
	overlay  []DomainAdapter
	static   []DomainAdapter
	logger   *utils.Logger
}

// NewRegistry creates a registry over the built-in adapters. The
// promoted lookup may be nil when no rule store is configured.
func NewRegistry(promoted PromotedLookup, logger *utils.Logger) *Registry {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &Registry{
		promoted: promoted,
		static:   builtinAdapters,
		logger:   logger.WithComponent("adapters"),
	}
}

type overlayFile struct {
	Adapters []DomainAdapter `yaml:"adapters"`
}

// LoadOverlay reads extra adapters from a YAML file. Overlay adapters
// are consulted before the built-in set so they can shadow it. A
// missing file is not an error.
func (r *Registry) LoadOverlay(path string) error {
	if path == "" {
		return nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read adapter overlay: %w", err)
	}

	var parsed overlayFile
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return fmt.Errorf("failed to parse adapter overlay: %w", err)
	}

	kept := parsed.Adapters[:0]
	for _, adapter := range parsed.Adapters {
		if adapter.Name == "" || len(adapter.HostSuffixes) == 0 || len(adapter.HTMLContainerPatterns) == 0 {
			r.logger.Warn().Str("adapter", adapter.Name).Msg("skipping incomplete overlay adapter")
			continue
		}
		kept = append(kept, adapter)
	}
	r.overlay = kept
	r.logger.Debug().Int("count", len(kept)).Str("path", path).Msg("loaded adapter overlay")
	return nil
}

// AdapterForHost returns the adapter for a host, or nil when no recipe
// applies. Promoted rules win over configured adapters.
func (r *Registry) AdapterForHost(host string) *DomainAdapter {
	lowered := strings.ToLower(strings.TrimSpace(host))
	if lowered == "" {
		return nil
	}

	if r.promoted != nil {
		promoted, err := r.promoted.PromotedAdapterForHost(lowered)
		if err != nil {
			r.logger.Warn().Err(err).Str("host", lowered).Msg("promoted adapter lookup failed")
		} else if promoted != nil && len(promoted.ContainerRegexes) > 0 {
			name := promoted.Name
			if name == "" {
				name = "llm-promoted:" + lowered
			}
			suffixes := promoted.HostSuffixes
			if len(suffixes) == 0 {
				suffixes = []string{lowered}
			}
			return &DomainAdapter{
				Name:                  name,
				HostSuffixes:          suffixes,
				HTMLContainerPatterns: promoted.ContainerRegexes,
				DropTextPatterns:      promoted.DropTextPatterns,
			}
		}
	}

	for _, set := range [][]DomainAdapter{r.overlay, r.static} {
		for i := range set {
			for _, suffix := range set[i].HostSuffixes {
				if strings.HasSuffix(lowered, suffix) {
					adapter := set[i]
					return &adapter
				}
			}
		}
	}
	return nil
}

package scanner

import (
	"fmt"
	"regexp"
	"strings"

	"chatscrape/pkg/config"

	"github.com/andybalholm/cascadia"
)

// Selector is a compiled CSS selector together with its source text
type Selector struct {
	Source  string
	Matcher cascadia.Selector
}

// Rules is the compiled form of config.ScannerConfig
type Rules struct {
	Containers  []ContainerStrategy
	Candidates  []Selector
	Labels      []Selector
	Counterpart []Selector

	ViewerMinX      float64
	CounterpartMaxX float64
	ViewerAliases   []string
	LabelMaxLength  int

	MaxContentLength    int
	DateMarkerMaxLength int
	FingerprintCapacity int

	noiseExact    map[string]bool
	noisePatterns []*regexp.Regexp

	// Invalid lists selectors that failed to compile and were skipped
	Invalid []string
}

// NewRules compiles scanner configuration. Invalid selectors are skipped and
// reported in Rules.Invalid; invalid noise patterns are an error.
func NewRules(cfg config.ScannerConfig) (*Rules, error) {
	r := &Rules{
		ViewerMinX:          cfg.Sender.ViewerMinX,
		CounterpartMaxX:     cfg.Sender.CounterpartMaxX,
		ViewerAliases:       cfg.Sender.ViewerAliases,
		LabelMaxLength:      cfg.Sender.LabelMaxLength,
		MaxContentLength:    cfg.MaxContentLength,
		DateMarkerMaxLength: cfg.DateMarkerMaxLength,
		FingerprintCapacity: cfg.FingerprintCapacity,
		noiseExact:          make(map[string]bool, len(cfg.Noise.Exact)),
	}

	r.Candidates = r.compileAll(cfg.Candidates)
	r.Labels = r.compileAll(cfg.Labels)
	r.Counterpart = r.compileAll(cfg.Counterpart)
	if len(r.Candidates) == 0 {
		return nil, fmt.Errorf("no valid candidate selectors")
	}

	for _, sc := range cfg.Containers {
		switch sc.Kind {
		case config.StrategySelector:
			sels := r.compileAll(sc.Selectors)
			if len(sels) > 0 {
				r.Containers = append(r.Containers, SelectorStrategy(sc.Name, sels))
			}
		case config.StrategyLayout:
			r.Containers = append(r.Containers, LayoutStrategy(sc.Name, cfg.Layout))
		default:
			return nil, fmt.Errorf("unknown container strategy kind %q", sc.Kind)
		}
	}

	for _, token := range cfg.Noise.Exact {
		r.noiseExact[strings.ToLower(strings.TrimSpace(token))] = true
	}
	for _, p := range cfg.Noise.Patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid noise pattern %q: %w", p, err)
		}
		r.noisePatterns = append(r.noisePatterns, re)
	}

	if r.LabelMaxLength <= 0 {
		r.LabelMaxLength = 50
	}
	if r.MaxContentLength <= 0 {
		r.MaxContentLength = 5000
	}
	if r.DateMarkerMaxLength <= 0 {
		r.DateMarkerMaxLength = 100
	}
	if r.FingerprintCapacity <= 0 {
		r.FingerprintCapacity = 20000
	}

	return r, nil
}

// DefaultRules compiles the built-in heuristics
func DefaultRules() *Rules {
	r, err := NewRules(config.DefaultScannerConfig())
	if err != nil {
		panic(fmt.Sprintf("default scanner rules: %v", err))
	}
	return r
}

func (r *Rules) compileAll(sources []string) []Selector {
	out := make([]Selector, 0, len(sources))
	for _, src := range sources {
		m, err := cascadia.Compile(src)
		if err != nil {
			r.Invalid = append(r.Invalid, src)
			continue
		}
		out = append(out, Selector{Source: src, Matcher: m})
	}
	return out
}

// IsNoise reports whether normalized text is UI chrome rather than content
func (r *Rules) IsNoise(text string) bool {
	if text == "" {
		return true
	}
	if r.noiseExact[strings.ToLower(text)] {
		return true
	}
	for _, re := range r.noisePatterns {
		if re.MatchString(text) {
			return true
		}
	}
	return IsTimestamp(text)
}

// isViewerAlias reports whether label names the logged-in user
func (r *Rules) isViewerAlias(label string) bool {
	for _, alias := range r.ViewerAliases {
		if strings.EqualFold(alias, label) {
			return true
		}
	}
	return false
}

// Package analysis turns raw post text and engagement numbers into scored,
// categorized, aggregated records. Everything in here is a pure function of
// its inputs so runs are reproducible.
package analysis

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// DefaultLexiconVersion is bumped whenever the built-in weights or the
// categorization rules change, so cached derived fields get recomputed
// without re-fetching raw posts.
const DefaultLexiconVersion = 1

// LexiconLoadError reports a malformed lexicon file. Fatal at startup.
type LexiconLoadError struct {
	Path string
	Err  error
}

func (e *LexiconLoadError) Error() string {
	return fmt.Sprintf("failed to load lexicon from %s: %v", e.Path, e.Err)
}

func (e *LexiconLoadError) Unwrap() error {
	return e.Err
}

// Entry maps one term (possibly multi-word) to a signed weight and the
// signal tags it carries. A zero-weight entry contributes no sentiment but
// still emits its tags.
type Entry struct {
	Term   string   `json:"term"`
	Weight float64  `json:"weight"`
	Tags   []string `json:"tags"`
}

// Lexicon is the immutable term table driving sentiment scoring. Lookup is
// case-insensitive. Loaded once at process start.
type Lexicon struct {
	version    int
	entries    []Entry
	saturation float64
}

type lexiconFile struct {
	Version    int     `json:"version"`
	Saturation float64 `json:"saturation"`
	Terms      []Entry `json:"terms"`
}

// NewLexicon builds a lexicon from entries. Terms are lowercased; the
// saturation constant bounds the raw weight sum during normalization.
func NewLexicon(version int, saturation float64, entries []Entry) *Lexicon {
	if saturation <= 0 {
		saturation = 4.0
	}

	normalized := make([]Entry, 0, len(entries))
	for _, entry := range entries {
		term := strings.ToLower(strings.TrimSpace(entry.Term))
		if term == "" {
			continue
		}
		normalized = append(normalized, Entry{
			Term:   term,
			Weight: entry.Weight,
			Tags:   append([]string(nil), entry.Tags...),
		})
	}
	sort.Slice(normalized, func(i, j int) bool { return normalized[i].Term < normalized[j].Term })

	return &Lexicon{version: version, entries: normalized, saturation: saturation}
}

// LoadLexicon reads a lexicon JSON file. An unreadable or malformed file is
// a *LexiconLoadError; callers treat it as fatal.
func LoadLexicon(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LexiconLoadError{Path: path, Err: err}
	}

	var file lexiconFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, &LexiconLoadError{Path: path, Err: err}
	}

	if len(file.Terms) == 0 {
		return nil, &LexiconLoadError{Path: path, Err: fmt.Errorf("lexicon defines no terms")}
	}
	for _, entry := range file.Terms {
		if strings.TrimSpace(entry.Term) == "" {
			return nil, &LexiconLoadError{Path: path, Err: fmt.Errorf("lexicon contains an empty term")}
		}
	}

	version := file.Version
	if version == 0 {
		version = DefaultLexiconVersion
	}

	return NewLexicon(version, file.Saturation, file.Terms), nil
}

// Version is the lexicon's cache-invalidation stamp.
func (l *Lexicon) Version() int {
	return l.version
}

// DefaultLexicon is the built-in financial sentiment table.
func DefaultLexicon() *Lexicon {
	return NewLexicon(DefaultLexiconVersion, 4.0, []Entry{
		// Positive
		{Term: "bullish", Weight: 2.0, Tags: []string{"bullish"}},
		{Term: "buy", Weight: 1.5, Tags: []string{"bullish"}},
		{Term: "pump", Weight: 1.8, Tags: []string{"bullish"}},
		{Term: "moon", Weight: 2.2, Tags: []string{"bullish"}},
		{Term: "rocket", Weight: 2.0, Tags: []string{"bullish"}},
		{Term: "gains", Weight: 1.5, Tags: []string{"bullish"}},
		{Term: "profit", Weight: 1.4, Tags: []string{"bullish"}},
		{Term: "surge", Weight: 1.6, Tags: []string{"bullish"}},
		{Term: "rally", Weight: 1.5, Tags: []string{"bullish"}},
		{Term: "boom", Weight: 1.8, Tags: []string{"bullish"}},
		{Term: "opportunity", Weight: 1.3, Tags: []string{"bullish"}},
		{Term: "optimistic", Weight: 1.4, Tags: []string{"bullish"}},
		{Term: "strong", Weight: 1.3, Tags: []string{"bullish"}},
		{Term: "growth", Weight: 1.4, Tags: []string{"bullish"}},
		{Term: "breakout", Weight: 1.7, Tags: []string{"bullish"}},
		{Term: "uptrend", Weight: 1.5, Tags: []string{"bullish"}},
		{Term: "all time high", Weight: 1.8, Tags: []string{"bullish"}},

		// Negative
		{Term: "bearish", Weight: -2.0, Tags: []string{"bearish"}},
		{Term: "sell", Weight: -1.5, Tags: []string{"bearish"}},
		{Term: "dump", Weight: -1.8, Tags: []string{"bearish"}},
		{Term: "crash", Weight: -2.5, Tags: []string{"bearish"}},
		{Term: "drop", Weight: -1.4, Tags: []string{"bearish"}},
		{Term: "loss", Weight: -1.5, Tags: []string{"bearish"}},
		{Term: "decline", Weight: -1.4, Tags: []string{"bearish"}},
		{Term: "correction", Weight: -1.6, Tags: []string{"bearish"}},
		{Term: "recession", Weight: -2.2, Tags: []string{"bearish"}},
		{Term: "fear", Weight: -1.8, Tags: []string{"bearish"}},
		{Term: "panic", Weight: -2.0, Tags: []string{"bearish"}},
		{Term: "pessimistic", Weight: -1.4, Tags: []string{"bearish"}},
		{Term: "weak", Weight: -1.3, Tags: []string{"bearish"}},
		{Term: "risk", Weight: -1.1, Tags: []string{"bearish"}},
		{Term: "breakdown", Weight: -1.7, Tags: []string{"bearish"}},
		{Term: "downtrend", Weight: -1.5, Tags: []string{"bearish"}},
		{Term: "bubble", Weight: -1.8, Tags: []string{"bearish"}},
		{Term: "sell off", Weight: -1.9, Tags: []string{"bearish"}},

		// Asset-class markers: no sentiment weight, signal only.
		{Term: "bitcoin", Tags: []string{"crypto"}},
		{Term: "btc", Tags: []string{"crypto"}},
		{Term: "ethereum", Tags: []string{"crypto"}},
		{Term: "eth", Tags: []string{"crypto"}},
		{Term: "crypto", Tags: []string{"crypto"}},
		{Term: "blockchain", Tags: []string{"crypto"}},
		{Term: "gold", Tags: []string{"commodities"}},
		{Term: "silver", Tags: []string{"commodities"}},
		{Term: "oil", Tags: []string{"commodities"}},
		{Term: "inflation", Weight: -0.8, Tags: []string{"macro"}},
		{Term: "interest rates", Tags: []string{"macro"}},
		{Term: "fed", Tags: []string{"macro"}},
	})
}

// Package cache provides fingerprinting and in-memory retention for
// calculators, so re-activating a recently used filter configuration reuses
// its settled results.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/taalatlas/dialectsearch/internal/model"
)

const fingerprintPrefix = "dialectsearch:v1"

// fingerprintFilter is the canonical wire shape for one filter. Only the
// fields that influence match outcomes participate.
type fingerprintFilter struct {
	Field         string   `json:"field"`
	Content       []string `json:"content"`
	OnlyFullMatch bool     `json:"only_full_match"`
	Index         int      `json:"index"`
}

type fingerprintSet struct {
	Generation uint64              `json:"generation"`
	Operator   string              `json:"operator"`
	Filters    []fingerprintFilter `json:"filters"`
}

// Fingerprint derives a stable identity for one dataset generation and
// filter configuration. The set is normalized first so filter order and
// omitted defaults never split the cache.
func Fingerprint(generation uint64, set model.FilterSet) (string, error) {
	norm := set.Normalized()
	fs := fingerprintSet{
		Generation: generation,
		Operator:   string(norm.Operator),
		Filters:    make([]fingerprintFilter, 0, len(norm.Filters)),
	}
	for _, f := range norm.Filters {
		content := make([]string, 0, len(f.Content))
		for _, c := range f.Content {
			if s := strings.TrimSpace(c); s != "" {
				content = append(content, s)
			}
		}
		fs.Filters = append(fs.Filters, fingerprintFilter{
			Field:         string(f.Field),
			Content:       content,
			OnlyFullMatch: f.OnlyFullMatch,
			Index:         f.Index,
		})
	}

	data, err := json.Marshal(fs)
	if err != nil {
		return "", fmt.Errorf("fingerprint filter set: %w", err)
	}
	sum := sha256.Sum256(data)
	return fingerprintPrefix + ":" + hex.EncodeToString(sum[:]), nil
}

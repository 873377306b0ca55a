// Package dataset loads questionnaire exports and the dialect hierarchy from
// disk into the model types.
package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/taalatlas/dialectsearch/internal/model"
)

// wireItem carries the type discriminator next to the raw record so each
// item decodes into its concrete type in a second pass.
type wireItem struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type wireFile struct {
	Items []wireItem `json:"items"`
}

// Loader reads datasets from disk. Every successful load advances the
// generation counter so downstream caches keyed on it invalidate.
type Loader struct {
	gen atomic.Uint64
	log zerolog.Logger
}

// NewLoader creates a dataset loader
func NewLoader(log zerolog.Logger) *Loader {
	return &Loader{log: log}
}

// Load reads a questionnaire export. Records with an unknown type are
// skipped with a warning; a file yielding zero items is an error.
func (l *Loader) Load(path string) (*model.Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	return l.Parse(data)
}

// Parse decodes an export already in memory
func (l *Loader) Parse(data []byte) (*model.Dataset, error) {
	var file wireFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode dataset: %w", err)
	}

	items := make([]model.Item, 0, len(file.Items))
	seen := make(map[string]bool, len(file.Items))
	for i, wi := range file.Items {
		item, err := decodeItem(wi)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		if item == nil {
			l.log.Warn().Int("index", i).Str("type", wi.Type).Msg("skipping record of unknown type")
			continue
		}
		if seen[item.Key()] {
			return nil, fmt.Errorf("item %d: duplicate id %q", i, item.Key())
		}
		seen[item.Key()] = true
		items = append(items, item)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("dataset contains no usable items")
	}

	gen := l.gen.Add(1)
	l.log.Info().Uint64("generation", gen).Int("items", len(items)).Msg("dataset loaded")
	return &model.Dataset{Generation: gen, Items: items}, nil
}

func decodeItem(wi wireItem) (model.Item, error) {
	switch model.ItemKind(wi.Type) {
	case model.ItemKindQuestion:
		var q model.Question
		if err := json.Unmarshal(wi.Data, &q); err != nil {
			return nil, fmt.Errorf("decode question: %w", err)
		}
		if q.ID == "" {
			return nil, fmt.Errorf("question without id")
		}
		q.Prompt = StripMarkup(q.Prompt)
		for i := range q.Answers {
			q.Answers[i].Text = StripMarkup(q.Answers[i].Text)
		}
		return &q, nil

	case model.ItemKindJudgment:
		var j model.Judgment
		if err := json.Unmarshal(wi.Data, &j); err != nil {
			return nil, fmt.Errorf("decode judgment: %w", err)
		}
		if j.ID == "" {
			return nil, fmt.Errorf("judgment without id")
		}
		j.MainQuestion = StripMarkup(j.MainQuestion)
		j.SubQuestion = StripMarkup(j.SubQuestion)
		return &j, nil

	default:
		return nil, nil
	}
}

package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/taalatlas/dialectsearch/internal/dataset"
	"github.com/taalatlas/dialectsearch/internal/dispatch"
	"github.com/taalatlas/dialectsearch/internal/hierarchy"
	"github.com/taalatlas/dialectsearch/internal/logger"
	"github.com/taalatlas/dialectsearch/internal/model"
)

var (
	dataPath     string
	dialectsPath string
	searchField  string
	exactMatch   bool
	operator     string
	extraFilters []string
	background   bool
	batchSize    int
	asJSON       bool
)

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search [terms...]",
	Short: "Search the questionnaire data with text and dialect filters",
	Long: `Search runs the filter engine over a questionnaire export and prints every
matching item with its highlights.

Terms are matched fuzzily: case and diacritics fold, and hyphens, quotes and
other joining punctuation are ignored. Quote a phrase to require the words
near each other, and join terms with & to require them in the same field.

A dialect filter matches the named dialect and everything beneath it in the
classification tree.

Example:
  dialectsearch search gistermorgen --data export.json --dialects tree.yaml
  dialectsearch search "rode appel" --field answer --op and
  dialectsearch search --filter "dialect=Brabants" --filter "answer=appel"`,
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().StringVar(&dataPath, "data", "", "questionnaire export path (JSON)")
	searchCmd.Flags().StringVar(&dialectsPath, "dialects", "", "dialect classification tree path (YAML)")
	searchCmd.Flags().StringVar(&searchField, "field", string(model.FieldWildcard), "field the positional terms apply to")
	searchCmd.Flags().BoolVar(&exactMatch, "exact", false, "require whole-field matches for the positional terms")
	searchCmd.Flags().StringVar(&operator, "op", string(model.OperatorOr), "combine filters with and / or")
	searchCmd.Flags().StringArrayVar(&extraFilters, "filter", nil, "additional filter as field=text (repeatable)")
	searchCmd.Flags().BoolVar(&background, "background", false, "evaluate on a background scheduler")
	searchCmd.Flags().IntVar(&batchSize, "batch-size", 0, "items per evaluation batch (0 = default)")
	searchCmd.Flags().BoolVar(&asJSON, "json", false, "print results as JSON")
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	if dataPath != "" {
		cfg.Data.DatasetPath = dataPath
	}
	if dialectsPath != "" {
		cfg.Data.DialectsPath = dialectsPath
	}
	if batchSize > 0 {
		cfg.Engine.BatchSize = batchSize
	}
	if cmd.Flags().Changed("background") {
		cfg.Engine.Background = background
	}
	if cfg.Data.DatasetPath == "" {
		return fmt.Errorf("no dataset: pass --data or set data.dataset_path in the config")
	}

	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	log := logger.New(logger.Config{Level: level, Pretty: cfg.Log.Pretty})

	ds, err := dataset.NewLoader(log).Load(cfg.Data.DatasetPath)
	if err != nil {
		return err
	}

	var hier *hierarchy.Hierarchy
	if cfg.Data.DialectsPath != "" {
		src, err := dataset.LoadDialects(cfg.Data.DialectsPath)
		if err != nil {
			return err
		}
		hier, err = hierarchy.Build(src, log)
		if err != nil {
			return err
		}
	}

	set, err := buildFilterSet(args)
	if err != nil {
		return err
	}

	results := make(map[string]*model.MatchedItem)
	var mu sync.Mutex
	done := make(chan struct{}, 1)
	sink := func(r dispatch.Response) {
		mu.Lock()
		defer mu.Unlock()
		if r.Err != nil {
			log.Warn().Err(r.Err).Msg("engine reported an error")
			return
		}
		for _, mi := range r.Matched {
			results[mi.ID] = mi
		}
		for _, id := range r.Unmatched {
			delete(results, id)
		}
		if r.Done {
			select {
			case done <- struct{}{}:
			default:
			}
		}
	}

	d := dispatch.NewDispatcher(ds, hier, cfg.Engine.BatchSize, sink, log)
	var s dispatch.Scheduler
	if cfg.Engine.Background {
		s = dispatch.NewThreadedScheduler(d, cfg.Engine.BatchInterval, log)
	} else {
		s = dispatch.NewInlineScheduler(d, log)
	}
	defer s.Close()

	s.Send(dispatch.Request{Op: dispatch.OpStartCalc, Filters: set})
	if cfg.Engine.Background {
		select {
		case <-done:
		case <-time.After(5 * time.Minute):
			return fmt.Errorf("evaluation did not complete in time")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	return printResults(results, len(ds.Items))
}

// buildFilterSet turns the positional terms and --filter flags into one set
func buildFilterSet(terms []string) (model.FilterSet, error) {
	var set model.FilterSet
	idx := 0

	if len(terms) > 0 {
		if !model.FieldID(searchField).Known() {
			return set, fmt.Errorf("unknown field %q", searchField)
		}
		set.Filters = append(set.Filters, model.Filter{
			Field:         model.FieldID(searchField),
			Content:       terms,
			OnlyFullMatch: exactMatch,
			Index:         idx,
		})
		idx++
	}

	for _, raw := range extraFilters {
		field, text, ok := strings.Cut(raw, "=")
		if !ok {
			return set, fmt.Errorf("invalid filter %q: expected field=text", raw)
		}
		if !model.FieldID(field).Known() {
			return set, fmt.Errorf("unknown field %q", field)
		}
		f := model.Filter{
			Field:   model.FieldID(field),
			Content: []string{text},
			Index:   idx,
		}
		// Dialect names are exact by nature
		if f.Field == model.FieldDialect {
			f.OnlyFullMatch = true
		}
		set.Filters = append(set.Filters, f)
		idx++
	}

	switch operator {
	case string(model.OperatorAnd):
		set.Operator = model.OperatorAnd
	case string(model.OperatorOr), "":
		set.Operator = model.OperatorOr
	default:
		return set, fmt.Errorf("invalid operator %q: use and / or", operator)
	}
	return set, nil
}

func printResults(results map[string]*model.MatchedItem, total int) error {
	ids := make([]string, 0, len(results))
	for id := range results {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	if asJSON {
		ordered := make([]*model.MatchedItem, 0, len(ids))
		for _, id := range ids {
			ordered = append(ordered, results[id])
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(ordered)
	}

	for _, id := range ids {
		printItem(results[id])
	}
	fmt.Printf("%d of %d items matched\n", len(ids), total)
	return nil
}

// printItem renders one matched item, bracketing the highlighted fragments
func printItem(mi *model.MatchedItem) {
	switch mi.Kind {
	case model.ItemKindQuestion:
		fmt.Printf("%s  %s\n", mi.ID, renderParts(mi.Prompt))
		for _, a := range mi.Answers {
			if !a.Match {
				continue
			}
			fmt.Printf("    %s  (%s)\n", renderParts(a.Text), renderParts(a.Participant))
		}
	case model.ItemKindJudgment:
		fmt.Printf("%s  %s\n", mi.ID, renderParts(mi.MainQuestion))
		for _, r := range mi.Responses {
			if !r.Match {
				continue
			}
			fmt.Printf("    score %s  (%s)\n", renderParts(r.Score), renderParts(r.Participant))
		}
	}
	if len(mi.MatchedDialects) > 0 {
		fmt.Printf("    dialects: %s\n", strings.Join(mi.MatchedDialects, ", "))
	}
	fmt.Println()
}

func renderParts(p model.MatchedParts) string {
	var b strings.Builder
	for _, f := range p.Parts {
		if f.Match {
			b.WriteString("[")
			b.WriteString(f.Text)
			b.WriteString("]")
		} else {
			b.WriteString(f.Text)
		}
	}
	return b.String()
}

package dataset

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/taalatlas/dialectsearch/internal/hierarchy"
)

// LoadDialects reads the dialect classification tree from a YAML file. The
// file maps dialect names to their sub-dialects, with null leaves:
//
//	Nederfrankisch:
//	  Brabants:
//	    Zuid-Brabants:
//	    Antwerps:
func LoadDialects(path string) (hierarchy.Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dialects: %w", err)
	}
	return ParseDialects(data)
}

// ParseDialects decodes a dialect tree already in memory
func ParseDialects(data []byte) (hierarchy.Source, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode dialects: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("dialect tree is empty")
	}
	return hierarchy.Source(raw), nil
}

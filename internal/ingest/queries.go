package ingest

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// DefaultQueryTemplate renders one search per region and business type.
const DefaultQueryTemplate = "{business_type} in {location}"

// Query is a single map-search query and the lead context it produces.
type Query struct {
	Text         string `json:"query"`
	Region       string `json:"region"`
	BusinessType string `json:"business_type"`
}

// QueryPlan is the YAML file describing which searches to run.
type QueryPlan struct {
	Template      string   `yaml:"query_template"`
	Regions       []string `yaml:"regions"`
	BusinessTypes []string `yaml:"business_types"`
}

// LoadQueryPlan reads and validates a query plan file.
func LoadQueryPlan(path string) (*QueryPlan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: read query plan %s", path)
	}
	return ParseQueryPlan(data)
}

// ParseQueryPlan decodes a query plan from YAML.
func ParseQueryPlan(data []byte) (*QueryPlan, error) {
	var plan QueryPlan
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return nil, eris.Wrap(err, "ingest: parse query plan")
	}
	if plan.Template == "" {
		plan.Template = DefaultQueryTemplate
	}
	if len(plan.Regions) == 0 || len(plan.BusinessTypes) == 0 {
		return nil, eris.New("ingest: query plan needs at least one region and one business type")
	}
	return &plan, nil
}

// Queries cross-joins regions and business types, region-major, in file order.
func (p *QueryPlan) Queries() []Query {
	out := make([]Query, 0, len(p.Regions)*len(p.BusinessTypes))
	for _, region := range p.Regions {
		for _, btype := range p.BusinessTypes {
			text := strings.NewReplacer(
				"{business_type}", btype,
				"{location}", region,
			).Replace(p.Template)
			out = append(out, Query{Text: text, Region: region, BusinessType: btype})
		}
	}
	return out
}

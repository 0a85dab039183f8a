package valuation

import (
	"fmt"
	"os"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// Wildcard matches any region or category type in a tax rule.
const Wildcard = "*"

// TaxRule is a tax rate applied to realized profit for one region and
// category type pair.
type TaxRule struct {
	Region       string  `toml:"region"`
	CategoryType string  `toml:"category_type"`
	Rate         float64 `toml:"rate"`
}

// TaxTable resolves the tax rate for a ledger's asset category.
type TaxTable struct {
	DefaultRate float64   `toml:"default_rate"`
	Rules       []TaxRule `toml:"rates"`
}

// LoadTaxTable reads a TOML tax table. An empty path yields an empty table
// (every rate is zero).
func LoadTaxTable(path string) (*TaxTable, error) {
	if path == "" {
		return &TaxTable{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tax table %s: %w", path, err)
	}

	table, err := ParseTaxTable(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse tax table %s: %w", path, err)
	}
	return table, nil
}

// ParseTaxTable decodes and validates a TOML tax table.
func ParseTaxTable(data []byte) (*TaxTable, error) {
	var table TaxTable
	if err := toml.Unmarshal(data, &table); err != nil {
		return nil, err
	}

	if table.DefaultRate < 0 || table.DefaultRate > 1 {
		return nil, fmt.Errorf("default_rate %v out of range [0, 1]", table.DefaultRate)
	}
	for i, r := range table.Rules {
		if r.Rate < 0 || r.Rate > 1 {
			return nil, fmt.Errorf("rates[%d]: rate %v out of range [0, 1]", i, r.Rate)
		}
		if r.Region == "" {
			table.Rules[i].Region = Wildcard
		}
		if r.CategoryType == "" {
			table.Rules[i].CategoryType = Wildcard
		}
	}
	return &table, nil
}

// Rate returns the most specific matching rate: exact region and type,
// then region only, then type only, then a full wildcard rule, then the
// table default. Matching is case-insensitive.
func (t *TaxTable) Rate(region, categoryType string) float64 {
	if t == nil {
		return 0
	}

	candidates := [][2]string{
		{region, categoryType},
		{region, Wildcard},
		{Wildcard, categoryType},
		{Wildcard, Wildcard},
	}
	for _, c := range candidates {
		for _, r := range t.Rules {
			if strings.EqualFold(r.Region, c[0]) && strings.EqualFold(r.CategoryType, c[1]) {
				return r.Rate
			}
		}
	}
	return t.DefaultRate
}

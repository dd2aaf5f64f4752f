package analysis

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// missingTokens are cell values treated as missing, matching what
// pandas recognizes when it loads a CSV.
var missingTokens = map[string]bool{
	"":     true,
	"na":   true,
	"n/a":  true,
	"null": true,
	"none": true,
	"nan":  true,
}

// Column holds one parsed CSV column with its raw values and, for
// numeric columns, the parsed floats of the non-missing cells.
type Column struct {
	Name    string
	Values  []string
	Missing int

	numeric bool
	floats  []float64
	uniques map[string]int
}

// Numeric reports whether every non-missing cell parses as a number.
func (c *Column) Numeric() bool { return c.numeric }

// Floats returns the parsed non-missing values of a numeric column.
func (c *Column) Floats() []float64 { return c.floats }

// Unique returns the number of distinct non-missing values.
func (c *Column) Unique() int { return len(c.uniques) }

// ValueCounts returns the distinct non-missing values with their counts.
func (c *Column) ValueCounts() map[string]int { return c.uniques }

// SampleValues returns up to n non-missing values in file order.
func (c *Column) SampleValues(n int) []string {
	var out []string
	for _, v := range c.Values {
		if isMissing(v) {
			continue
		}
		out = append(out, v)
		if len(out) == n {
			break
		}
	}
	return out
}

// Dataset is a parsed CSV file held column-wise.
type Dataset struct {
	Rows    int
	Columns []*Column

	byName map[string]*Column
}

// Column returns the named column, or nil if absent.
func (d *Dataset) Column(name string) *Column { return d.byName[name] }

func isMissing(v string) bool {
	return missingTokens[strings.ToLower(strings.TrimSpace(v))]
}

// ParseCSV reads an entire CSV document into a Dataset. The first
// record is the header; every subsequent record must have the same
// number of fields.
func ParseCSV(r io.Reader) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("csv file is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\uFEFF")
	}

	ds := &Dataset{byName: make(map[string]*Column, len(header))}
	for _, name := range header {
		col := &Column{Name: strings.TrimSpace(name), uniques: make(map[string]int)}
		ds.Columns = append(ds.Columns, col)
		ds.byName[col.Name] = col
	}

	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row %d: %w", ds.Rows+2, err)
		}
		for i, cell := range record {
			col := ds.Columns[i]
			col.Values = append(col.Values, cell)
			if isMissing(cell) {
				col.Missing++
			} else {
				col.uniques[cell]++
			}
		}
		ds.Rows++
	}

	for _, col := range ds.Columns {
		col.inferType()
	}
	return ds, nil
}

func (c *Column) inferType() {
	seen := 0
	for _, v := range c.Values {
		if isMissing(v) {
			continue
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			c.numeric = false
			c.floats = nil
			return
		}
		c.floats = append(c.floats, f)
		seen++
	}
	c.numeric = seen > 0
}

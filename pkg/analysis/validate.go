package analysis

import "fmt"

// Dataset validation thresholds.
const (
	minColumns          = 2
	minRowsWarning      = 10
	maxMissingPercent   = 50.0
	warnMissingPercent  = 20.0
	maxTargetMissingPct = 10.0
)

// ValidateDataset checks that a parsed dataset is usable for the
// pipeline. Hard failures return an error; soft problems come back as
// warnings.
func ValidateDataset(ds *Dataset) ([]string, error) {
	if ds.Rows == 0 {
		return nil, fmt.Errorf("csv file is empty")
	}
	if len(ds.Columns) < minColumns {
		return nil, fmt.Errorf("csv must have at least %d columns", minColumns)
	}

	totalCells := ds.Rows * len(ds.Columns)
	totalMissing := 0
	for _, col := range ds.Columns {
		totalMissing += col.Missing
	}
	missingPct := float64(totalMissing) / float64(totalCells) * 100
	if missingPct > maxMissingPercent {
		return nil, fmt.Errorf("csv has %.1f%% missing values (>%.0f%% threshold)", missingPct, maxMissingPercent)
	}

	var warnings []string
	if ds.Rows < minRowsWarning {
		warnings = append(warnings, fmt.Sprintf("csv has less than %d rows", minRowsWarning))
	}
	if dups := duplicateRows(ds); dups > 0 {
		warnings = append(warnings, fmt.Sprintf("%d duplicate rows detected", dups))
	}
	if missingPct > warnMissingPercent {
		warnings = append(warnings, fmt.Sprintf("csv has %.1f%% missing values", missingPct))
	}
	for _, col := range ds.Columns {
		if col.Unique() == 1 {
			warnings = append(warnings, fmt.Sprintf("column %q has only one unique value", col.Name))
		}
	}
	return warnings, nil
}

// ValidateTarget checks the chosen target column and returns the task
// type it implies: binary_classification, multiclass_classification,
// or regression.
func ValidateTarget(ds *Dataset, target string) (string, error) {
	col := ds.Column(target)
	if col == nil {
		return "", fmt.Errorf("target column %q not found in dataset", target)
	}
	if col.Missing == len(col.Values) {
		return "", fmt.Errorf("target column contains only null values")
	}
	missingPct := float64(col.Missing) / float64(len(col.Values)) * 100
	if missingPct > maxTargetMissingPct {
		return "", fmt.Errorf("target column has %.1f%% missing values (>%.0f%% threshold)", missingPct, maxTargetMissingPct)
	}

	switch unique := col.Unique(); {
	case unique == 1:
		return "", fmt.Errorf("target column has only one unique value")
	case unique == 2:
		return "binary_classification", nil
	case unique < 10:
		return "multiclass_classification", nil
	case col.Numeric():
		return "regression", nil
	default:
		return "", fmt.Errorf("target column %q has too many distinct non-numeric values", target)
	}
}

func duplicateRows(ds *Dataset) int {
	if len(ds.Columns) == 0 {
		return 0
	}
	seen := make(map[string]bool, ds.Rows)
	dups := 0
	for i := range ds.Rows {
		key := ""
		for _, col := range ds.Columns {
			key += col.Values[i] + "\x1f"
		}
		if seen[key] {
			dups++
		}
		seen[key] = true
	}
	return dups
}

package prompt

import (
	"fmt"
	"sort"
	"strings"

	"github.com/datakiln/datakiln/pkg/analysis"
)

// Dataset carries the experiment facts the prompts need beyond the
// statistical profile.
type Dataset struct {
	Filename     string
	TargetColumn string
	TaskType     string
	Rows         int
	Columns      int
}

// Preprocessing renders the full preprocessing prompt from the dataset
// profile. The generated code must load 'uploaded_data.csv', leave the
// cleaned frame in 'cleaned_data', and save 'cleaned_data.csv'.
func Preprocessing(p *analysis.Profile, ds Dataset) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are an expert data scientist. Analyze this dataset and create comprehensive preprocessing code.\n\n")
	fmt.Fprintf(&b, "## Dataset Information:\n")
	fmt.Fprintf(&b, "- **File**: %s (%d rows x %d columns)\n", ds.Filename, p.Shape.Rows, p.Shape.Columns)
	fmt.Fprintf(&b, "- **Target Column**: %s\n", ds.TargetColumn)
	fmt.Fprintf(&b, "- **Task Type**: %s\n\n", p.Target.TaskType)

	b.WriteString("## Summary Statistics:\n")
	b.WriteString(formatSummary(p))
	b.WriteString("\n\n## Column Details:\n")
	b.WriteString(formatColumns(p))
	b.WriteString("\n\n## Missing Data:\n")
	b.WriteString(formatMissing(p))
	b.WriteString("\n\n## Data Quality Issues:\n")
	b.WriteString(formatIssues(p))
	b.WriteString("\n\n## Target Variable:\n")
	b.WriteString(formatTarget(p))
	b.WriteString("\n\n## Preprocessing Recommendations:\n")
	b.WriteString(formatSteps(p))

	fmt.Fprintf(&b, `

## Your Task:
Create Python code that addresses all identified issues and prepares the data for ML training:

1. **Handle Missing Values**: %s
2. **Encode Categorical Variables**: %s
3. **Handle Outliers**: %s
4. **Scaling/Normalization**: StandardScaler for model compatibility
5. **Data Validation**: Ensure data integrity and consistency
6. **Export Clean Dataset**: Save as 'cleaned_data.csv'

CRITICAL REQUIREMENTS:
1. Generate COMPLETE, EXECUTABLE Python code only
2. Include ALL necessary imports at the top
3. Use MODERN scikit-learn API (version 1.0+):
   - Use sparse_output=False instead of sparse=False in OneHotEncoder
4. Handle edge cases and errors gracefully with try-except blocks
5. Use print statements to show progress and results
6. Load data from 'uploaded_data.csv'
7. Assign the final result to variable 'cleaned_data'
8. Save the final cleaned dataset using: cleaned_data.to_csv('cleaned_data.csv', index=False)
9. Exclude the target column '%s' from feature transformations but keep it in the saved output
10. Do NOT hardcode column names; detect column types programmatically
11. Drop high-cardinality categorical columns (>50 unique values) such as names and identifiers
12. Only one-hot encode low-cardinality categorical columns (<= 10 unique values)

RESPONSE FORMAT:
- Return ONLY executable Python code
- NO markdown code blocks
- NO explanations before or after the code
- Start directly with import statements
`, missingStrategy(p), encodingStrategy(p), outlierStrategy(p), ds.TargetColumn)

	return b.String()
}

func formatSummary(p *analysis.Profile) string {
	var lines []string
	for _, name := range sortedColumns(p) {
		cp := p.Columns[name]
		if cp.Numeric != nil {
			lines = append(lines, fmt.Sprintf("  - %s: skew=%.2f, outliers=%d", name, cp.Numeric.Skewness, cp.Numeric.Outliers))
		}
		if len(lines) == 3 {
			break
		}
	}
	for _, name := range sortedColumns(p) {
		cp := p.Columns[name]
		if cp.Categorical != nil {
			lines = append(lines, fmt.Sprintf("  - %s: %d unique values, cardinality=%s", name, cp.UniqueValues, cp.Categorical.Cardinality))
		}
	}
	if len(lines) == 0 {
		return "No feature statistics available."
	}
	return strings.Join(lines, "\n")
}

func formatColumns(p *analysis.Profile) string {
	var lines []string
	for _, name := range sortedColumns(p) {
		cp := p.Columns[name]
		lines = append(lines, fmt.Sprintf("- **%s**: %s, %.1f%% missing, quality_score=%.1f", name, cp.Dtype, cp.NullPercentage, cp.QualityScore))
	}
	return strings.Join(lines, "\n")
}

func formatMissing(p *analysis.Profile) string {
	if p.Missing.Total == 0 {
		return "No missing data detected."
	}
	lines := []string{fmt.Sprintf("Total missing: %d values (%.1f%%)", p.Missing.Total, p.Missing.Percentage)}
	for _, name := range sortedKeys(p.Missing.Columns) {
		mc := p.Missing.Columns[name]
		lines = append(lines, fmt.Sprintf("  - %s: %d missing (%.1f%%), suggested %s", name, mc.Count, mc.Percentage, mc.Strategy))
	}
	return strings.Join(lines, "\n")
}

func formatIssues(p *analysis.Profile) string {
	if len(p.QualityIssues) == 0 {
		return "No significant data quality issues detected."
	}
	var lines []string
	for _, issue := range p.QualityIssues {
		lines = append(lines, fmt.Sprintf("- %s: %s", issue.Type, issue.Description))
	}
	return strings.Join(lines, "\n")
}

func formatTarget(p *analysis.Profile) string {
	t := p.Target
	lines := []string{fmt.Sprintf("**%s** (%s)", t.Column, t.TaskType)}
	if t.TaskType == "classification" {
		lines = append(lines, fmt.Sprintf("- Classes: %d", t.NumClasses))
		balance := "balanced"
		if !t.IsBalanced {
			balance = "imbalanced"
		}
		lines = append(lines, fmt.Sprintf("- Balance: %s (majority %.1f%%, minority %.1f%%)", balance, t.MajorityPercentage, t.MinorityPercentage))
		for _, rec := range t.BalanceRecommendations {
			lines = append(lines, "  - "+rec)
		}
	} else if t.Stats != nil {
		lines = append(lines, fmt.Sprintf("- Range: %.2f to %.2f", t.Stats.Min, t.Stats.Max))
		lines = append(lines, fmt.Sprintf("- Distribution: %s", t.Stats.Distribution))
		if len(t.TransformSuggestions) > 0 {
			lines = append(lines, "- Suggested transforms: "+strings.Join(t.TransformSuggestions, ", "))
		}
	}
	return strings.Join(lines, "\n")
}

func formatSteps(p *analysis.Profile) string {
	if len(p.Steps) == 0 {
		return "Dataset requires no special preprocessing."
	}
	var lines []string
	for _, step := range p.Steps {
		lines = append(lines, fmt.Sprintf("%d. **%s**: %s", step.Priority, step.Step, step.Description))
	}
	return strings.Join(lines, "\n")
}

func missingStrategy(p *analysis.Profile) string {
	if p.Missing.Total == 0 {
		return "No missing data to handle"
	}
	var parts []string
	for _, name := range sortedKeys(p.Missing.Columns) {
		parts = append(parts, name+" -> "+p.Missing.Columns[name].Strategy)
		if len(parts) == 3 {
			break
		}
	}
	return strings.Join(parts, "; ")
}

func encodingStrategy(p *analysis.Profile) string {
	var parts []string
	for _, name := range sortedColumns(p) {
		cp := p.Columns[name]
		if cp.Categorical != nil && name != p.Target.Column {
			parts = append(parts, name+" -> "+cp.Categorical.Encoding)
		}
		if len(parts) == 3 {
			break
		}
	}
	if len(parts) == 0 {
		return "No categorical variables to encode"
	}
	return strings.Join(parts, "; ")
}

func outlierStrategy(p *analysis.Profile) string {
	var cols []string
	for _, name := range sortedColumns(p) {
		cp := p.Columns[name]
		if cp.Numeric != nil && cp.Numeric.Outliers > 0 {
			cols = append(cols, name)
		}
	}
	if len(cols) == 0 {
		return "No significant outliers detected"
	}
	shown := cols
	if len(shown) > 3 {
		shown = shown[:3]
	}
	return fmt.Sprintf("Apply IQR method to %d columns: %s", len(cols), strings.Join(shown, ", "))
}

func sortedColumns(p *analysis.Profile) []string {
	return p.ColumnNames
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

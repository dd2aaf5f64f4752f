package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/datakiln/datakiln/pkg/api"
)

// baselineSummaryLimit caps how much of the baseline results JSON is
// quoted into the prompt.
const baselineSummaryLimit = 500

// Tuning renders the hyperparameter-tuning prompt for the best
// baseline models.
func Tuning(baseline []api.ModelScore, topModels []string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are a machine learning optimization expert. Create hyperparameter tuning code for these top-performing models:\n\n")
	fmt.Fprintf(&b, "## Top Models to Tune:\n%s\n\n", strings.Join(topModels, ", "))
	fmt.Fprintf(&b, "## Baseline Results:\n%s\n\n", baselineSummary(baseline))

	b.WriteString(`## Requirements:
1. Load cleaned data from 'cleaned_data.csv'
2. Use GridSearchCV with 5-fold cross-validation
3. Define comprehensive parameter grids for each model
4. Track improvement over baseline
5. Save tuned models with best parameters as .pkl files
6. Collect all results into a dict named 'tuning_results'
7. Save tuning_results as 'tuning_results.json' using json.dump

## Parameter Grids:

### XGBoost:
- n_estimators: [100, 200, 300]
- max_depth: [3, 5, 7]
- learning_rate: [0.01, 0.1, 0.2]
- subsample: [0.8, 0.9, 1.0]

### Random Forest:
- n_estimators: [100, 200, 300]
- max_depth: [None, 10, 20]
- min_samples_split: [2, 5, 10]
- min_samples_leaf: [1, 2, 4]

### Decision Tree:
- max_depth: [5, 10, 15, None]
- min_samples_split: [2, 5, 10]
- min_samples_leaf: [1, 2, 5]

Generate COMPLETE, EXECUTABLE Python code with GridSearchCV implementation.
Return ONLY executable Python code without markdown fences.
`)

	return b.String()
}

func baselineSummary(baseline []api.ModelScore) string {
	if len(baseline) == 0 {
		return "No baseline results available."
	}
	raw, err := json.MarshalIndent(baseline, "", "  ")
	if err != nil {
		return "No baseline results available."
	}
	if len(raw) > baselineSummaryLimit {
		return string(raw[:baselineSummaryLimit]) + "..."
	}
	return string(raw)
}

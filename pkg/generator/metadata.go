package generator

import "strings"

// knownModels are the model names the training prompts ask for, in the
// order they are reported.
var knownModels = []string{
	"XGBoost",
	"Random_Forest",
	"Decision_Tree",
	"Naive_Bayes",
	"Linear_Regression",
}

// metricMarkers maps the sklearn call that computes a metric to the
// name it is reported under.
var metricMarkers = []struct {
	marker string
	name   string
}{
	{"accuracy_score", "accuracy"},
	{"f1_score", "f1_score"},
	{"precision_score", "precision"},
	{"recall_score", "recall"},
	{"r2_score", "r2_score"},
	{"mean_squared_error", "mse"},
	{"mean_absolute_error", "mae"},
}

// ExtractModels returns the known model names mentioned in the code.
func ExtractModels(code string) []string {
	var out []string
	for _, name := range knownModels {
		if strings.Contains(code, name) {
			out = append(out, name)
		}
	}
	return out
}

// ExtractMetrics returns the evaluation metric names the code computes.
func ExtractMetrics(code string) []string {
	var out []string
	for _, m := range metricMarkers {
		if strings.Contains(code, m.marker) {
			out = append(out, m.name)
		}
	}
	return out
}

// ExtractSearchStrategy identifies the hyperparameter search the tuning
// code uses.
func ExtractSearchStrategy(code string) string {
	switch {
	case strings.Contains(code, "GridSearchCV"):
		return "GridSearch"
	case strings.Contains(code, "RandomizedSearchCV"):
		return "RandomizedSearch"
	default:
		return "Unknown"
	}
}

// EstimatePreprocessSeconds guesses execution time from the operations
// the preprocessing code performs.
func EstimatePreprocessSeconds(code string) int {
	seconds := 10
	if strings.Contains(code, "StandardScaler") {
		seconds += 5
	}
	if strings.Contains(code, "OneHotEncoder") {
		seconds += 10
	}
	if strings.Contains(code, "fillna") {
		seconds += 5
	}
	if strings.Contains(code, "drop") {
		seconds += 2
	}
	return seconds
}

// EstimateTrainingSeconds guesses training time from the dataset size.
func EstimateTrainingSeconds(rows, cols int) int {
	seconds := 30
	if rows > 10000 {
		seconds += 30
	}
	if rows > 50000 {
		seconds += 60
	}
	if cols > 50 {
		seconds += 20
	}
	return seconds
}

// EstimateTuningSeconds guesses grid-search time per tuned model.
func EstimateTuningSeconds(numModels int) int {
	return numModels * 300
}

package prompt

import (
	"strings"
	"testing"

	"github.com/datakiln/datakiln/pkg/analysis"
	"github.com/datakiln/datakiln/pkg/api"
)

func sampleProfile() *analysis.Profile {
	return &analysis.Profile{
		Shape:       analysis.Shape{Rows: 100, Columns: 4},
		ColumnNames: []string{"age", "income", "city", "label"},
		TypeSummary: analysis.TypeSummary{Numeric: 2, Categorical: 2},
		Columns: map[string]analysis.ColumnProfile{
			"age": {
				Dtype:        "numeric",
				QualityScore: 100,
				Numeric:      &analysis.NumericStats{Skewness: 0.3, Outliers: 2, Distribution: "normal"},
			},
			"income": {
				Dtype:          "numeric",
				NullPercentage: 5,
				QualityScore:   98.5,
				Numeric:        &analysis.NumericStats{Skewness: 1.4, Distribution: "right_skewed"},
			},
			"city": {
				Dtype:        "categorical",
				UniqueValues: 3,
				QualityScore: 100,
				Categorical:  &analysis.CategoricalStats{Cardinality: "low", Encoding: "one_hot_encoding"},
			},
			"label": {
				Dtype:        "categorical",
				UniqueValues: 2,
				QualityScore: 100,
				Categorical:  &analysis.CategoricalStats{Cardinality: "low", Encoding: "label_encoding"},
			},
		},
		Missing: analysis.MissingReport{
			Total:      5,
			Percentage: 1.25,
			Columns: map[string]analysis.MissingColumn{
				"income": {Count: 5, Percentage: 5, Strategy: "median_imputation"},
			},
		},
		Target: analysis.TargetProfile{
			Column:             "label",
			TaskType:           "classification",
			NumClasses:         2,
			IsBalanced:         true,
			MajorityPercentage: 55,
			MinorityPercentage: 45,
		},
	}
}

func TestPreprocessing(t *testing.T) {
	p := Preprocessing(sampleProfile(), Dataset{
		Filename:     "churn.csv",
		TargetColumn: "label",
		TaskType:     "classification",
	})

	for _, want := range []string{
		"churn.csv",
		"100 rows x 4 columns",
		"uploaded_data.csv",
		"cleaned_data.to_csv('cleaned_data.csv', index=False)",
		"sparse_output=False",
		"income -> median_imputation",
		"city -> one_hot_encoding",
		"Target Column**: label",
	} {
		if !strings.Contains(p, want) {
			t.Errorf("preprocessing prompt missing %q", want)
		}
	}

	if strings.Contains(p, "label -> label_encoding") {
		t.Error("target column listed in encoding strategy")
	}
}

func TestTrainingClassification(t *testing.T) {
	p := Training(Dataset{TargetColumn: "label", TaskType: "classification", Rows: 100, Columns: 4})

	for _, want := range []string{
		"XGBClassifier",
		"GaussianNB",
		"model_results.json",
		"stratified sampling",
		"X = df.drop('label', axis=1)",
	} {
		if !strings.Contains(p, want) {
			t.Errorf("training prompt missing %q", want)
		}
	}
	if strings.Contains(p, "XGBRegressor") {
		t.Error("classification prompt contains regressor models")
	}
}

func TestTrainingRegression(t *testing.T) {
	p := Training(Dataset{TargetColumn: "price", TaskType: "regression", Rows: 500, Columns: 12})

	for _, want := range []string{"XGBRegressor", "LinearRegression", "r2_score"} {
		if !strings.Contains(p, want) {
			t.Errorf("regression prompt missing %q", want)
		}
	}
	if strings.Contains(p, "GaussianNB") {
		t.Error("regression prompt contains classifier models")
	}
}

func TestTuning(t *testing.T) {
	baseline := []api.ModelScore{
		{Name: "XGBoost", Accuracy: 0.93},
		{Name: "Random_Forest", Accuracy: 0.91},
	}

	p := Tuning(baseline, []string{"XGBoost", "Random_Forest"})

	for _, want := range []string{
		"XGBoost, Random_Forest",
		"GridSearchCV",
		"tuning_results.json",
		"5-fold",
	} {
		if !strings.Contains(p, want) {
			t.Errorf("tuning prompt missing %q", want)
		}
	}
}

func TestTuningNoBaseline(t *testing.T) {
	p := Tuning(nil, []string{"XGBoost"})
	if !strings.Contains(p, "No baseline results available.") {
		t.Error("missing empty-baseline placeholder")
	}
}

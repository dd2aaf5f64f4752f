package analysis

import (
	"fmt"
	"math"
	"strconv"
)

// Profile is the full dataset analysis handed to the prompt builder
// and stored on the experiment record.
type Profile struct {
	Shape         Shape                    `json:"shape"`
	ColumnNames   []string                 `json:"column_names"`
	TypeSummary   TypeSummary              `json:"type_summary"`
	Columns       map[string]ColumnProfile `json:"columns"`
	Missing       MissingReport            `json:"missing_data"`
	QualityIssues []QualityIssue           `json:"quality_issues,omitempty"`
	Target        TargetProfile            `json:"target"`
	Correlations  *CorrelationReport       `json:"correlations,omitempty"`
	Steps         []PreprocessingStep      `json:"preprocessing_steps,omitempty"`
}

type Shape struct {
	Rows    int `json:"rows"`
	Columns int `json:"columns"`
}

type TypeSummary struct {
	Numeric     int `json:"numeric"`
	Categorical int `json:"categorical"`
}

// ColumnProfile describes one column. Exactly one of Numeric and
// Categorical is set, depending on the inferred type.
type ColumnProfile struct {
	Dtype            string  `json:"dtype"`
	NullCount        int     `json:"null_count"`
	NullPercentage   float64 `json:"null_percentage"`
	UniqueValues     int     `json:"unique_values"`
	UniquePercentage float64 `json:"unique_percentage"`
	QualityScore     float64 `json:"quality_score"`

	SampleValues []string `json:"sample_values,omitempty"`

	Numeric     *NumericStats     `json:"numeric,omitempty"`
	Categorical *CategoricalStats `json:"categorical,omitempty"`
}

type NumericStats struct {
	Min          float64 `json:"min"`
	Max          float64 `json:"max"`
	Mean         float64 `json:"mean"`
	Median       float64 `json:"median"`
	Std          float64 `json:"std"`
	Skewness     float64 `json:"skewness"`
	Outliers     int     `json:"outliers"`
	ZeroCount    int     `json:"zero_count"`
	Negatives    int     `json:"negative_count"`
	Distribution string  `json:"distribution"`
}

type CategoricalStats struct {
	MostFrequent      string `json:"most_frequent,omitempty"`
	MostFrequentCount int    `json:"most_frequent_count,omitempty"`
	Cardinality       string `json:"cardinality"`
	Encoding          string `json:"encoding_recommendation"`
}

type MissingReport struct {
	Total      int                      `json:"total"`
	Percentage float64                  `json:"percentage"`
	Columns    map[string]MissingColumn `json:"columns,omitempty"`
}

type MissingColumn struct {
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
	Strategy   string  `json:"recommended_strategy"`
}

type QualityIssue struct {
	Type           string `json:"type"`
	Severity       string `json:"severity"`
	Column         string `json:"column,omitempty"`
	Count          int    `json:"count,omitempty"`
	Description    string `json:"description"`
	Recommendation string `json:"recommendation"`
}

// TargetProfile describes the prediction target. Classification and
// regression targets carry different detail blocks.
type TargetProfile struct {
	Column       string `json:"column"`
	TaskType     string `json:"task_type"`
	NullCount    int    `json:"null_count"`
	UniqueValues int    `json:"unique_values"`

	// Classification.
	NumClasses             int            `json:"num_classes,omitempty"`
	ClassDistribution      map[string]int `json:"class_distribution,omitempty"`
	IsBalanced             bool           `json:"is_balanced,omitempty"`
	MinorityPercentage     float64        `json:"minority_class_percentage,omitempty"`
	MajorityPercentage     float64        `json:"majority_class_percentage,omitempty"`
	BalanceRecommendations []string       `json:"balance_recommendations,omitempty"`

	// Regression.
	Stats                *NumericStats `json:"stats,omitempty"`
	TransformSuggestions []string      `json:"transformation_suggestions,omitempty"`
}

type CorrelationReport struct {
	// Numeric holds Pearson correlation of each numeric feature
	// against a numeric target.
	Numeric map[string]float64 `json:"numeric,omitempty"`
	// Associations holds Cramér's V of each categorical feature
	// against a categorical target.
	Associations map[string]float64 `json:"associations,omitempty"`
}

type PreprocessingStep struct {
	Step        string   `json:"step"`
	Priority    int      `json:"priority"`
	Description string   `json:"description"`
	Columns     []string `json:"affected_columns,omitempty"`
	Strategies  []string `json:"strategies,omitempty"`
}

// Analyze profiles the dataset against the chosen target column. The
// target must already have passed ValidateTarget.
func Analyze(ds *Dataset, target string) (*Profile, error) {
	targetCol := ds.Column(target)
	if targetCol == nil {
		return nil, fmt.Errorf("target column %q not found in dataset", target)
	}

	p := &Profile{
		Shape:   Shape{Rows: ds.Rows, Columns: len(ds.Columns)},
		Columns: make(map[string]ColumnProfile, len(ds.Columns)),
	}
	for _, col := range ds.Columns {
		p.ColumnNames = append(p.ColumnNames, col.Name)
		if col.Numeric() {
			p.TypeSummary.Numeric++
		} else {
			p.TypeSummary.Categorical++
		}
		p.Columns[col.Name] = profileColumn(col, ds.Rows)
	}

	p.Missing = missingReport(ds)
	p.QualityIssues = detectQualityIssues(ds, target)
	p.Target = profileTarget(targetCol)
	p.Correlations = correlations(ds, targetCol)
	p.Steps = preprocessingSteps(ds)
	return p, nil
}

func profileColumn(col *Column, rows int) ColumnProfile {
	cp := ColumnProfile{
		NullCount:    col.Missing,
		UniqueValues: col.Unique(),
		SampleValues: col.SampleValues(5),
		QualityScore: qualityScore(col, rows),
	}
	if rows > 0 {
		cp.NullPercentage = round2(float64(col.Missing) / float64(rows) * 100)
		cp.UniquePercentage = round2(float64(col.Unique()) / float64(rows) * 100)
	}

	if col.Numeric() {
		cp.Dtype = "numeric"
		cp.Numeric = numericStats(col.Floats())
	} else {
		cp.Dtype = "categorical"
		cp.Categorical = categoricalStats(col)
	}
	return cp
}

func numericStats(xs []float64) *NumericStats {
	ns := &NumericStats{
		Mean:         round4(mean(xs)),
		Median:       round4(median(xs)),
		Std:          round4(stddev(xs)),
		Skewness:     round4(skewness(xs)),
		Outliers:     countOutliersIQR(xs),
		Distribution: distributionType(xs),
	}
	if len(xs) > 0 {
		ns.Min = xs[0]
		ns.Max = xs[0]
		for _, x := range xs {
			ns.Min = math.Min(ns.Min, x)
			ns.Max = math.Max(ns.Max, x)
			if x == 0 {
				ns.ZeroCount++
			}
			if x < 0 {
				ns.Negatives++
			}
		}
	}
	return ns
}

func categoricalStats(col *Column) *CategoricalStats {
	cs := &CategoricalStats{
		Cardinality: "low",
		Encoding:    encodingRecommendation(col),
	}
	nonMissing := len(col.Values) - col.Missing
	if nonMissing > 0 && col.Unique() > nonMissing/2 {
		cs.Cardinality = "high"
	}
	for v, n := range col.ValueCounts() {
		if n > cs.MostFrequentCount {
			cs.MostFrequent = v
			cs.MostFrequentCount = n
		}
	}
	return cs
}

func encodingRecommendation(col *Column) string {
	unique := col.Unique()
	nonMissing := len(col.Values) - col.Missing

	switch {
	case unique <= 2:
		return "label_encoding"
	case unique <= 10:
		return "one_hot_encoding"
	case nonMissing > 0 && float64(unique)/float64(nonMissing) < 0.1:
		return "target_encoding"
	default:
		return "frequency_encoding"
	}
}

func distributionType(xs []float64) string {
	if len(xs) < 10 {
		return "insufficient_data"
	}
	skew := skewness(xs)
	switch {
	case math.Abs(skew) < 0.5:
		return "normal"
	case skew > 1:
		return "right_skewed"
	case skew < -1:
		return "left_skewed"
	default:
		return "moderately_skewed"
	}
}

func qualityScore(col *Column, rows int) float64 {
	score := 100.0
	if rows > 0 {
		score -= float64(col.Missing) / float64(rows) * 30
	}
	switch {
	case col.Unique() <= 1:
		score -= 50
	case rows > 0 && float64(col.Unique())/float64(rows) < 0.01:
		score -= 20
	}
	return math.Max(0, round1(score))
}

func missingReport(ds *Dataset) MissingReport {
	report := MissingReport{Columns: make(map[string]MissingColumn)}
	for _, col := range ds.Columns {
		report.Total += col.Missing
		if col.Missing == 0 {
			continue
		}
		report.Columns[col.Name] = MissingColumn{
			Count:      col.Missing,
			Percentage: round2(float64(col.Missing) / float64(ds.Rows) * 100),
			Strategy:   imputationStrategy(col),
		}
	}
	if cells := ds.Rows * len(ds.Columns); cells > 0 {
		report.Percentage = round2(float64(report.Total) / float64(cells) * 100)
	}
	return report
}

func imputationStrategy(col *Column) string {
	if !col.Numeric() {
		return "mode_imputation"
	}
	if countOutliersIQR(col.Floats()) > 0 {
		return "median_imputation"
	}
	return "mean_imputation"
}

func detectQualityIssues(ds *Dataset, target string) []QualityIssue {
	var issues []QualityIssue

	if dups := duplicateRows(ds); dups > 0 {
		issues = append(issues, QualityIssue{
			Type:           "duplicate_rows",
			Severity:       "medium",
			Count:          dups,
			Description:    fmt.Sprintf("found %d duplicate rows", dups),
			Recommendation: "remove duplicate rows or verify they are legitimate",
		})
	}

	for _, col := range ds.Columns {
		if col.Unique() <= 1 {
			issues = append(issues, QualityIssue{
				Type:           "constant_column",
				Severity:       "high",
				Column:         col.Name,
				Description:    fmt.Sprintf("column %q has a constant or single value", col.Name),
				Recommendation: "remove this column, it provides no information",
			})
		}
	}

	for _, col := range ds.Columns {
		if col.Numeric() || ds.Rows == 0 {
			continue
		}
		if ratio := float64(col.Unique()) / float64(ds.Rows); ratio > 0.9 {
			issues = append(issues, QualityIssue{
				Type:           "high_cardinality",
				Severity:       "medium",
				Column:         col.Name,
				Count:          col.Unique(),
				Description:    fmt.Sprintf("column %q has very high cardinality (%d unique values)", col.Name, col.Unique()),
				Recommendation: "group rare categories or engineer features",
			})
		}
	}

	for _, col := range ds.Columns {
		if col.Name != target && col.Unique() == ds.Rows && ds.Rows > 0 {
			issues = append(issues, QualityIssue{
				Type:           "potential_id_column",
				Severity:       "low",
				Column:         col.Name,
				Description:    fmt.Sprintf("column %q appears to be an identifier (all values unique)", col.Name),
				Recommendation: "remove if not needed for prediction",
			})
		}
	}
	return issues
}

func profileTarget(col *Column) TargetProfile {
	tp := TargetProfile{
		Column:       col.Name,
		NullCount:    col.Missing,
		UniqueValues: col.Unique(),
	}

	if col.Numeric() && col.Unique() > 10 {
		tp.TaskType = "regression"
		tp.Stats = numericStats(col.Floats())
		tp.TransformSuggestions = targetTransformSuggestions(col.Floats())
		return tp
	}

	tp.TaskType = "classification"
	tp.NumClasses = col.Unique()
	tp.ClassDistribution = col.ValueCounts()

	total := len(col.Values) - col.Missing
	if total > 0 {
		minCount, maxCount := math.MaxInt, 0
		for _, n := range col.ValueCounts() {
			minCount = min(minCount, n)
			maxCount = max(maxCount, n)
		}
		minProp := float64(minCount) / float64(total)
		maxProp := float64(maxCount) / float64(total)
		tp.MinorityPercentage = round2(minProp * 100)
		tp.MajorityPercentage = round2(maxProp * 100)
		tp.IsBalanced = maxProp-minProp <= 0.2
		tp.BalanceRecommendations = balanceRecommendations(maxProp)
	}
	return tp
}

func targetTransformSuggestions(xs []float64) []string {
	var out []string
	if math.Abs(skewness(xs)) > 1 {
		out = append(out, "log_transformation", "box_cox_transformation")
	}
	for _, x := range xs {
		if x <= 0 {
			out = append(out, "add_constant_before_log")
			break
		}
	}
	return out
}

func balanceRecommendations(maxProp float64) []string {
	switch {
	case maxProp > 0.8:
		return []string{"severe_imbalance_detected", "consider_smote_oversampling", "use_stratified_sampling"}
	case maxProp > 0.6:
		return []string{"moderate_imbalance_detected", "consider_class_weights", "use_stratified_cv"}
	}
	return nil
}

func correlations(ds *Dataset, target *Column) *CorrelationReport {
	report := &CorrelationReport{}

	if target.Numeric() {
		report.Numeric = make(map[string]float64)
		targetVals := columnAsFloats(target)
		for _, col := range ds.Columns {
			if col == target || !col.Numeric() {
				continue
			}
			report.Numeric[col.Name] = round3(pearson(columnAsFloats(col), targetVals))
		}
	}

	if !target.Numeric() || target.Unique() < 10 {
		report.Associations = make(map[string]float64)
		for _, col := range ds.Columns {
			if col == target || col.Numeric() {
				continue
			}
			report.Associations[col.Name] = round3(cramersV(col, target))
		}
	}

	if len(report.Numeric) == 0 && len(report.Associations) == 0 {
		return nil
	}
	return report
}

// columnAsFloats returns the column row-aligned, with missing and
// unparsable cells as NaN so pearson can skip those pairs.
func columnAsFloats(col *Column) []float64 {
	out := make([]float64, len(col.Values))
	for i, v := range col.Values {
		if isMissing(v) {
			out[i] = math.NaN()
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			out[i] = math.NaN()
			continue
		}
		out[i] = f
	}
	return out
}

func preprocessingSteps(ds *Dataset) []PreprocessingStep {
	var steps []PreprocessingStep

	var missingCols, outlierCols, categoricalCols, numericCols []string
	for _, col := range ds.Columns {
		if col.Missing > 0 {
			missingCols = append(missingCols, col.Name)
		}
		if col.Numeric() {
			numericCols = append(numericCols, col.Name)
			if countOutliersIQR(col.Floats()) > 0 {
				outlierCols = append(outlierCols, col.Name)
			}
		} else {
			categoricalCols = append(categoricalCols, col.Name)
		}
	}

	if len(missingCols) > 0 {
		steps = append(steps, PreprocessingStep{
			Step:        "handle_missing_data",
			Priority:    1,
			Description: fmt.Sprintf("handle missing data in %d columns", len(missingCols)),
			Columns:     missingCols,
			Strategies:  []string{"imputation", "removal", "indicator_variables"},
		})
	}
	if len(outlierCols) > 0 {
		steps = append(steps, PreprocessingStep{
			Step:        "handle_outliers",
			Priority:    2,
			Description: fmt.Sprintf("handle outliers in %d numeric columns", len(outlierCols)),
			Columns:     outlierCols,
			Strategies:  []string{"winsorization", "transformation", "removal"},
		})
	}
	if len(categoricalCols) > 0 {
		steps = append(steps, PreprocessingStep{
			Step:        "encode_categorical",
			Priority:    3,
			Description: fmt.Sprintf("encode %d categorical columns", len(categoricalCols)),
			Columns:     categoricalCols,
			Strategies:  []string{"label_encoding", "one_hot_encoding", "target_encoding"},
		})
	}
	if len(numericCols) > 1 {
		steps = append(steps, PreprocessingStep{
			Step:        "feature_scaling",
			Priority:    4,
			Description: "scale numeric features for model compatibility",
			Columns:     numericCols,
			Strategies:  []string{"standard_scaler", "min_max_scaler", "robust_scaler"},
		})
	}
	return steps
}

func round1(x float64) float64 { return math.Round(x*10) / 10 }
func round2(x float64) float64 { return math.Round(x*100) / 100 }
func round3(x float64) float64 { return math.Round(x*1000) / 1000 }
func round4(x float64) float64 { return math.Round(x*10000) / 10000 }

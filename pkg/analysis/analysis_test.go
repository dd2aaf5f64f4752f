package analysis

import (
	"strings"
	"testing"
)

const sampleCSV = `id,age,income,city,label
1,34,55000,NYC,yes
2,29,48000,LA,no
3,41,,NYC,yes
4,35,61000,SF,yes
5,28,52000,LA,no
6,52,75000,NYC,yes
7,33,49000,SF,no
8,45,68000,LA,yes
9,38,57000,NYC,yes
10,30,51000,SF,no
`

func parseSample(t *testing.T) *Dataset {
	t.Helper()
	ds, err := ParseCSV(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("parse sample csv: %v", err)
	}
	return ds
}

func TestParseCSV(t *testing.T) {
	ds := parseSample(t)

	if ds.Rows != 10 {
		t.Errorf("rows = %d, want 10", ds.Rows)
	}
	if len(ds.Columns) != 5 {
		t.Errorf("columns = %d, want 5", len(ds.Columns))
	}

	age := ds.Column("age")
	if age == nil || !age.Numeric() {
		t.Fatal("age column missing or not numeric")
	}
	city := ds.Column("city")
	if city == nil || city.Numeric() {
		t.Fatal("city column missing or wrongly numeric")
	}
	income := ds.Column("income")
	if income.Missing != 1 {
		t.Errorf("income missing = %d, want 1", income.Missing)
	}
	if city.Unique() != 3 {
		t.Errorf("city unique = %d, want 3", city.Unique())
	}
}

func TestParseCSVStripsBOM(t *testing.T) {
	ds, err := ParseCSV(strings.NewReader("\uFEFFa,b\n1,2\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if ds.Column("a") == nil {
		t.Error("BOM not stripped from first header field")
	}
}

func TestParseCSVEmpty(t *testing.T) {
	if _, err := ParseCSV(strings.NewReader("")); err == nil {
		t.Error("expected error for empty file")
	}
}

func TestValidateDataset(t *testing.T) {
	ds := parseSample(t)

	warnings, err := ValidateDataset(ds)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}
}

func TestValidateDatasetSingleColumn(t *testing.T) {
	ds, err := ParseCSV(strings.NewReader("a\n1\n2\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, err := ValidateDataset(ds); err == nil {
		t.Error("expected error for single-column csv")
	}
}

func TestValidateDatasetMostlyMissing(t *testing.T) {
	ds, err := ParseCSV(strings.NewReader("a,b\n,\n,\n1,2\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, err := ValidateDataset(ds); err == nil {
		t.Error("expected error for mostly missing csv")
	}
}

func TestValidateTarget(t *testing.T) {
	ds := parseSample(t)

	tests := []struct {
		target   string
		wantType string
		wantErr  bool
	}{
		{"label", "binary_classification", false},
		{"city", "multiclass_classification", false},
		{"missing_column", "", true},
	}

	for _, tt := range tests {
		taskType, err := ValidateTarget(ds, tt.target)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ValidateTarget(%q): expected error", tt.target)
			}
			continue
		}
		if err != nil {
			t.Errorf("ValidateTarget(%q): %v", tt.target, err)
			continue
		}
		if taskType != tt.wantType {
			t.Errorf("ValidateTarget(%q) = %q, want %q", tt.target, taskType, tt.wantType)
		}
	}
}

func TestValidateTargetRegression(t *testing.T) {
	var b strings.Builder
	b.WriteString("x,y\n")
	for i := range 20 {
		b.WriteString(strings.Repeat("a", i%3+1))
		b.WriteString(",")
		b.WriteString(strings.Repeat("1", i+1))
		b.WriteString("\n")
	}
	ds, err := ParseCSV(strings.NewReader(b.String()))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	taskType, err := ValidateTarget(ds, "y")
	if err != nil {
		t.Fatalf("ValidateTarget: %v", err)
	}
	if taskType != "regression" {
		t.Errorf("task type = %q, want regression", taskType)
	}
}

func TestAnalyze(t *testing.T) {
	ds := parseSample(t)

	p, err := Analyze(ds, "label")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if p.Shape.Rows != 10 || p.Shape.Columns != 5 {
		t.Errorf("shape = %+v, want 10x5", p.Shape)
	}
	if p.TypeSummary.Numeric != 3 || p.TypeSummary.Categorical != 2 {
		t.Errorf("type summary = %+v, want 3 numeric, 2 categorical", p.TypeSummary)
	}

	if p.Target.TaskType != "classification" {
		t.Errorf("target task type = %q, want classification", p.Target.TaskType)
	}
	if p.Target.NumClasses != 2 {
		t.Errorf("num classes = %d, want 2", p.Target.NumClasses)
	}

	if p.Missing.Total != 1 {
		t.Errorf("missing total = %d, want 1", p.Missing.Total)
	}
	if _, ok := p.Missing.Columns["income"]; !ok {
		t.Error("income not listed in missing columns")
	}

	age := p.Columns["age"]
	if age.Dtype != "numeric" || age.Numeric == nil {
		t.Fatalf("age profile = %+v, want numeric", age)
	}
	if age.Numeric.Min != 28 || age.Numeric.Max != 52 {
		t.Errorf("age range = [%v, %v], want [28, 52]", age.Numeric.Min, age.Numeric.Max)
	}

	city := p.Columns["city"]
	if city.Dtype != "categorical" || city.Categorical == nil {
		t.Fatalf("city profile = %+v, want categorical", city)
	}
	if city.Categorical.MostFrequent != "NYC" {
		t.Errorf("city most frequent = %q, want NYC", city.Categorical.MostFrequent)
	}

	foundID := false
	for _, issue := range p.QualityIssues {
		if issue.Type == "potential_id_column" && issue.Column == "id" {
			foundID = true
		}
	}
	if !foundID {
		t.Errorf("id column not flagged as identifier: %+v", p.QualityIssues)
	}

	if p.Correlations == nil || len(p.Correlations.Associations) == 0 {
		t.Error("expected categorical associations for classification target")
	}
}

func TestAnalyzeUnknownTarget(t *testing.T) {
	ds := parseSample(t)
	if _, err := Analyze(ds, "nope"); err == nil {
		t.Error("expected error for unknown target")
	}
}

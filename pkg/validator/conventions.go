package validator

import (
	"regexp"
	"strings"

	"github.com/datakiln/datakiln/pkg/api"
)

var (
	oneHotSparsePattern = regexp.MustCompile(`OneHotEncoder\([^)]*sparse=False[^)]*\)`)
	sparseArgPattern    = regexp.MustCompile(`sparse=False`)
)

var requiredImports = []string{
	"import pandas as pd",
	"import numpy as np",
}

// resultAliases maps, per pipeline kind, variable names the model tends
// to use instead of the name the execution harness expects. When none
// of the expected names appear, an aliasing assignment is appended.
var resultAliases = map[api.Kind][]string{
	api.KindPreprocess: {"cleaned_df", "processed_data", "final_data", "X_processed", "df_processed"},
	api.KindTrain:      {"results", "training_results", "model_scores"},
	api.KindTune:       {"results", "tuning_output", "best_results"},
}

// saveCall returns the substring whose presence shows the code saves
// its primary artifact.
func saveCall(kind api.Kind) string {
	if kind == api.KindPreprocess {
		return "to_csv("
	}
	return "json.dump("
}

// checkConventions applies the library-level checks and fixes: the
// deprecated OneHotEncoder sparse argument, required imports, the
// harness result variable, and the artifact save call. It returns the
// possibly-fixed code plus accumulated issues and fixes.
func checkConventions(code string, kind api.Kind) (string, []string, []string) {
	var issues, fixes []string
	fixed := code

	if oneHotSparsePattern.MatchString(fixed) {
		issues = append(issues, "deprecated 'sparse=False' parameter in OneHotEncoder")
		fixed = sparseArgPattern.ReplaceAllString(fixed, "sparse_output=False")
		fixes = append(fixes, "replaced 'sparse=False' with 'sparse_output=False'")
	}

	for _, imp := range requiredImports {
		if !strings.Contains(fixed, imp) {
			issues = append(issues, "missing required import: "+imp)
		}
	}

	resultVar := kind.ResultVariable()
	if !strings.Contains(fixed, resultVar) {
		aliased := false
		for _, alias := range resultAliases[kind] {
			if strings.Contains(fixed, alias) {
				fixed += "\n\n# Expose the result under the name the harness reads\n" +
					resultVar + " = " + alias + "\n"
				fixes = append(fixes, "aliased '"+alias+"' to '"+resultVar+"'")
				aliased = true
				break
			}
		}
		if !aliased {
			issues = append(issues, "no '"+resultVar+"' variable found")
		}
	}

	if !strings.Contains(fixed, saveCall(kind)) {
		issues = append(issues, "no artifact save call found ("+saveCall(kind)+")")
	}

	return fixed, issues, fixes
}

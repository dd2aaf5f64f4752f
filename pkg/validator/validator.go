package validator

import "github.com/datakiln/datakiln/pkg/api"

// Result is the outcome of validating one piece of generated code.
// Code always holds runnable text: the repaired version when a repair
// succeeded, the original otherwise. Valid is the overall verdict:
// structurally sound and no convention issues remain.
type Result struct {
	Code         string
	Valid        bool
	SyntaxValid  bool
	Issues       []string
	FixesApplied []string
}

// ValidateAndFix runs the structural syntax check, attempts a repair
// when it fails, and then applies the convention checks. Convention
// checks are skipped while the code is structurally broken, since
// string matching against malformed code produces noise.
func ValidateAndFix(code string, kind api.Kind) Result {
	res := Result{Code: code, SyntaxValid: true}

	if issues := CheckSyntax(code); len(issues) > 0 {
		repaired, ok := RepairTryBlocks(code)
		if ok {
			res.Code = repaired
			res.FixesApplied = append(res.FixesApplied, "added missing except block to incomplete try statement")
		} else {
			res.SyntaxValid = false
			res.Issues = append(res.Issues, issues...)
			return res
		}
	}

	fixed, issues, fixes := checkConventions(res.Code, kind)
	res.Code = fixed
	res.Issues = append(res.Issues, issues...)
	res.FixesApplied = append(res.FixesApplied, fixes...)
	res.Valid = len(res.Issues) == 0
	return res
}

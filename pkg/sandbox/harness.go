package sandbox

import (
	"fmt"
	"strings"

	"github.com/datakiln/datakiln/pkg/api"
)

// Harness markers printed by the epilogue. They make the save outcome
// visible in captured stdout independent of file readback.
const (
	SavedMarker   = "RESULT_SAVED:"
	MissingMarker = "RESULT_MISSING:"
)

// BuildHarness wraps generated code in the fixed three-part harness:
// a preamble that imports the baseline libraries and loads the staged
// input dataset, the generated code verbatim, and an epilogue that
// saves the stage's result variable to the expected output file if the
// code left it behind. The harness is what turns unpredictable
// generated code into a stable I/O contract.
func BuildHarness(kind api.Kind, code string) string {
	var b strings.Builder

	b.WriteString("import json\n")
	b.WriteString("import numpy as np\n")
	b.WriteString("import pandas as pd\n")
	b.WriteString("\n")
	fmt.Fprintf(&b, "df = pd.read_csv(%q)\n", kind.InputFilename())
	b.WriteString("\n")

	b.WriteString(strings.TrimRight(code, "\n"))
	b.WriteString("\n\n")

	resultVar := kind.ResultVariable()
	output := kind.OutputFilename()

	fmt.Fprintf(&b, "if %q in dir():\n", resultVar)
	if kind == api.KindPreprocess {
		fmt.Fprintf(&b, "    %s.to_csv(%q, index=False)\n", resultVar, output)
	} else {
		fmt.Fprintf(&b, "    with open(%q, \"w\") as _f:\n", output)
		fmt.Fprintf(&b, "        json.dump(%s, _f, indent=2, default=str)\n", resultVar)
	}
	fmt.Fprintf(&b, "    print(%q)\n", SavedMarker+" "+output)
	b.WriteString("else:\n")
	fmt.Fprintf(&b, "    print(%q)\n", MissingMarker+" "+resultVar)

	return b.String()
}

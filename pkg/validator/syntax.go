package validator

import (
	"fmt"
	"strings"
)

// blockKeywords are the Python statements that open an indented block
// when the line ends with a colon.
var blockKeywords = []string{
	"def ", "class ", "if ", "elif ", "else", "for ", "while ",
	"try", "except", "finally", "with ",
}

type stripState struct {
	inTriple bool
	triple   string
}

// stripLine removes comments and blanks out string contents so that
// bracket counting and keyword detection only see structural code.
// Indentation and statement shape are preserved.
func stripLine(line string, st *stripState) string {
	var b strings.Builder
	i := 0
	for i < len(line) {
		if st.inTriple {
			end := strings.Index(line[i:], st.triple)
			if end < 0 {
				return b.String()
			}
			i += end + len(st.triple)
			st.inTriple = false
			continue
		}
		c := line[i]
		if c == '#' {
			return b.String()
		}
		if c == '"' || c == '\'' {
			q := string(c)
			if strings.HasPrefix(line[i:], q+q+q) {
				st.inTriple = true
				st.triple = q
				i += 3
				continue
			}
			// Single-quoted string: skip to the closing quote,
			// honoring backslash escapes.
			j := i + 1
			for j < len(line) {
				if line[j] == '\\' {
					j += 2
					continue
				}
				if line[j] == c {
					break
				}
				j++
			}
			if j >= len(line) {
				// Unterminated on this line; drop the rest.
				return b.String()
			}
			i = j + 1
			continue
		}
		b.WriteByte(c)
		i++
	}
	return b.String()
}

func indentOf(line string) int {
	return len(line) - len(strings.TrimLeft(line, " \t"))
}

func isBlockHeader(stripped string) bool {
	trimmed := strings.TrimSpace(stripped)
	if !strings.HasSuffix(trimmed, ":") {
		return false
	}
	for _, kw := range blockKeywords {
		if trimmed == strings.TrimSpace(kw)+":" || strings.HasPrefix(trimmed, kw) {
			return true
		}
	}
	return false
}

// CheckSyntax runs a structural check over Python source and returns a
// list of problems found. An empty slice means the code passed.
func CheckSyntax(code string) []string {
	var issues []string
	lines := strings.Split(code, "\n")
	st := &stripState{}
	depth := 0

	type pendingTry struct {
		line   int
		indent int
	}
	var tries []pendingTry

	stripped := make([]string, len(lines))
	for i, line := range lines {
		stripped[i] = stripLine(line, st)
	}
	if st.inTriple {
		issues = append(issues, "unterminated triple-quoted string")
	}

	for i, s := range stripped {
		for _, c := range s {
			switch c {
			case '(', '[', '{':
				depth++
			case ')', ']', '}':
				depth--
				if depth < 0 {
					issues = append(issues, fmt.Sprintf("unbalanced closing bracket at line %d", i+1))
					depth = 0
				}
			}
		}
		if depth > 0 {
			// Inside a bracketed continuation; indentation rules do
			// not apply until it closes.
			continue
		}

		trimmed := strings.TrimSpace(s)
		if trimmed == "" {
			continue
		}
		indent := indentOf(s)

		// Resolve pending try blocks that dedent past this line.
		for len(tries) > 0 {
			top := tries[len(tries)-1]
			if indent > top.indent {
				break
			}
			if indent == top.indent && (strings.HasPrefix(trimmed, "except") || strings.HasPrefix(trimmed, "finally")) {
				tries = tries[:len(tries)-1]
				continue
			}
			issues = append(issues, fmt.Sprintf("try block at line %d has no except or finally", top.line))
			tries = tries[:len(tries)-1]
		}

		if trimmed == "try:" {
			tries = append(tries, pendingTry{line: i + 1, indent: indent})
		}

		if isBlockHeader(s) && strings.HasSuffix(trimmed, ":") {
			if !hasIndentedBody(stripped, i, indent) {
				issues = append(issues, fmt.Sprintf("block at line %d has no indented body", i+1))
			}
		}
	}

	for _, tr := range tries {
		issues = append(issues, fmt.Sprintf("try block at line %d has no except or finally", tr.line))
	}
	if depth > 0 {
		issues = append(issues, "unbalanced opening bracket at end of code")
	}
	return issues
}

func hasIndentedBody(stripped []string, header, indent int) bool {
	for i := header + 1; i < len(stripped); i++ {
		if strings.TrimSpace(stripped[i]) == "" {
			continue
		}
		return indentOf(stripped[i]) > indent
	}
	return false
}

// RepairTryBlocks inserts a generic except handler after every try
// block that is missing one. The repaired code is returned only if it
// passes CheckSyntax; otherwise the input is returned unchanged and
// repaired is false.
func RepairTryBlocks(code string) (string, bool) {
	lines := strings.Split(code, "\n")
	st := &stripState{}
	var out []string
	tryIndent := -1
	inserted := false

	handler := func(indent int) []string {
		return []string{
			strings.Repeat(" ", indent) + "except Exception as e:",
			strings.Repeat(" ", indent+4) + `print(f"Error: {e}")`,
		}
	}

	for _, line := range lines {
		s := stripLine(line, st)
		trimmed := strings.TrimSpace(s)

		if tryIndent >= 0 && trimmed != "" {
			indent := indentOf(s)
			handled := strings.HasPrefix(trimmed, "except") || strings.HasPrefix(trimmed, "finally")
			if indent <= tryIndent && !handled {
				out = append(out, handler(tryIndent)...)
				inserted = true
				tryIndent = -1
			} else if indent <= tryIndent {
				tryIndent = -1
			}
		}
		if trimmed == "try:" {
			tryIndent = indentOf(s)
		}
		out = append(out, line)
	}
	if tryIndent >= 0 {
		out = append(out, handler(tryIndent)...)
		inserted = true
	}

	if !inserted {
		return code, false
	}
	repaired := strings.Join(out, "\n")
	if len(CheckSyntax(repaired)) > 0 {
		return code, false
	}
	return repaired, true
}

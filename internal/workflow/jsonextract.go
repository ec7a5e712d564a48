package workflow

import (
	"encoding/json"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	coreerrors "github.com/mediar-ai/terminator/internal/errors"
)

// extractTrailingJSON implements spec.md §4.F's "Result parsing": the
// subprocess stdout may be mixed with whatever else the workflow printed,
// so the host scans backward for the last top-level `{…}` object and
// parses that, repairing it first when it isn't valid JSON on its own —
// mirroring the teacher's tool_executor.go fallback-to-jsonrepair shape for
// malformed LLM tool-call arguments.
func extractTrailingJSON(stdout string) (RunResult, bool) {
	raw, ok := lastJSONObject(stdout)
	if !ok {
		return RunResult{}, false
	}

	var result RunResult
	if err := json.Unmarshal([]byte(raw), &result); err == nil {
		return result, true
	}

	repaired, err := jsonrepair.JSONRepair(raw)
	if err != nil {
		return RunResult{}, false
	}
	if err := json.Unmarshal([]byte(repaired), &result); err != nil {
		return RunResult{}, false
	}
	return result, true
}

// lastJSONObject scans stdout from the end for the last balanced `{…}`
// span, tolerating braces embedded in string literals.
func lastJSONObject(s string) (string, bool) {
	end := strings.LastIndexByte(s, '}')
	for end >= 0 {
		start := matchingBraceStart(s, end)
		if start >= 0 {
			return s[start : end+1], true
		}
		end = strings.LastIndexByte(s[:end], '}')
	}
	return "", false
}

// matchingBraceStart finds the '{' that balances the '}' at index end,
// scanning backward, respecting (best-effort) string quoting so braces
// inside a JSON string value don't throw off the count.
func matchingBraceStart(s string, end int) int {
	depth := 0
	inString := false
	escaped := false
	for i := end; i >= 0; i-- {
		c := s[i]
		if inString {
			if escaped {
				escaped = false
			} else if c == '\\' {
				escaped = true
			} else if c == '"' {
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '}':
			depth++
		case '{':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// buildSubprocessError assembles the single internal error spec.md §4.F
// requires on non-zero exit: exit code, stderr, the extracted JSON (if
// any), and captured logs, all as error details rather than a bespoke type.
func buildSubprocessError(exitCode int, stdout, stderr string, result *RunResult, logs []LogEntry) *coreerrors.CoreError {
	details := map[string]any{
		"exit_code": exitCode,
		"stderr":    stderr,
		"logs":      logs,
	}
	if result != nil {
		details["workflow_result"] = result
	} else {
		details["stdout_fallback"] = stdout
	}
	return coreerrors.Platform("workflow subprocess exited with an error", nil, details)
}

package logexec

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// transformRunCommandJS applies the YAML->SDK rewrite passes of spec.md
// §4.G to a `run_command` body already classified as JavaScript and emits
// it inline (per the tool table: "unclassified code runs inline, shell code
// is wrapped in desktop.run(...)"). Per the design notes (§9
// "YAML-runtime compatibility"), this is a bounded, pattern-oriented
// transformer implemented as an explicit sequence of small passes — not a
// full parser.
func transformRunCommandJS(body string) string {
	body = rewriteConsoleLog(body)
	body = rewriteValueAccessors(body)
	body = rewritePressKey(body)
	body = rewriteJSONParseEnv(body)
	body = rewriteTypeofGuards(body)
	body = rewriteOutputsEnvToState(body)
	body = rewriteArchiveExtraction(body)
	body, setEnvState := extractSetEnvPatterns(body)
	body = mergeStateReturn(body, setEnvState)
	return strings.TrimSpace(body)
}

var bareLogCall = regexp.MustCompile(`(^|[^.\w])log\(`)

// rewriteConsoleLog turns bare `log(` calls into `console.log(` without
// touching existing `.log(`/`console.log(` calls.
func rewriteConsoleLog(body string) string {
	return bareLogCall.ReplaceAllString(body, "${1}console.log(")
}

var valueAccessor = regexp.MustCompile(`\.value\(\)`)

func rewriteValueAccessors(body string) string {
	return valueAccessor.ReplaceAllString(body, ".getValue()")
}

var pressKeyAccessor = regexp.MustCompile(`\.press_key\(`)

func rewritePressKey(body string) string {
	return pressKeyAccessor.ReplaceAllString(body, ".pressKey(")
}

var outputsResultRef = regexp.MustCompile(`\b(?:outputs|env)\.([A-Za-z_][A-Za-z0-9_]*)_result\b`)
var outputsOrEnvRef = regexp.MustCompile(`\b(?:outputs|env)\.([A-Za-z_][A-Za-z0-9_]*)\b`)

// rewriteOutputsEnvToState rewrites `outputs.X_result` / `outputs.X` /
// `env.X` references to `context.state.X`. The `_result`-suffixed form is
// rewritten first so its suffix isn't left dangling by the plain-form pass.
func rewriteOutputsEnvToState(body string) string {
	body = outputsResultRef.ReplaceAllString(body, "context.state.$1")
	return outputsOrEnvRef.ReplaceAllString(body, "context.state.$1")
}

var typeofGuard = regexp.MustCompile(`typeof\s+(?:outputs|env)(\.[A-Za-z_][A-Za-z0-9_]*)?\s*!==?\s*['"]undefined['"]`)

// rewriteTypeofGuards rewrites `typeof env|outputs ... !== 'undefined'`
// guards: bare `typeof env !== 'undefined'` becomes the literal `true`
// (the state object always exists once rewritten), while a property form
// becomes an explicit undefined check against the new state path.
func rewriteTypeofGuards(body string) string {
	return typeofGuard.ReplaceAllStringFunc(body, func(m string) string {
		sub := typeofGuard.FindStringSubmatch(m)
		if sub[1] == "" {
			return "true"
		}
		prop := strings.TrimPrefix(sub[1], ".")
		return fmt.Sprintf("context.state.%s !== undefined", prop)
	})
}

var jsonParseEnv = regexp.MustCompile(`JSON\.parse\((env\.[A-Za-z_][A-Za-z0-9_]*)\)`)

func rewriteJSONParseEnv(body string) string {
	return jsonParseEnv.ReplaceAllString(body, "$1")
}

var tarExtract = regexp.MustCompile(`\btar\s+-x[a-zA-Z]*f\s+(\S+)`)

// rewriteArchiveExtraction rewrites a `tar -xf <archive>` invocation
// (typically run through the JS exec API) into a process.platform ternary
// so the snippet is portable: `tar.exe -xf <archive>` on Windows, the
// original command as a quoted string elsewhere.
func rewriteArchiveExtraction(body string) string {
	return tarExtract.ReplaceAllStringFunc(body, func(m string) string {
		sub := tarExtract.FindStringSubmatch(m)
		archive := sub[1]
		return fmt.Sprintf("(process.platform === 'win32' ? `tar.exe -xf %s` : %q)", archive, m)
	})
}

var setEnvPattern = regexp.MustCompile(`console\.log\(\s*['"]::set-env name=([A-Za-z_][A-Za-z0-9_]*)::(.*?)['"]\s*\)\s*;?`)

// extractSetEnvPatterns finds every `console.log('::set-env name=X::...')`
// call, removes it from the body, and returns the collected {name: value}
// assignments to merge into a trailing state return.
func extractSetEnvPatterns(body string) (string, map[string]string) {
	state := make(map[string]string)
	cleaned := setEnvPattern.ReplaceAllStringFunc(body, func(m string) string {
		sub := setEnvPattern.FindStringSubmatch(m)
		state[sub[1]] = sub[2]
		return ""
	})
	return cleaned, state
}

var existingStateReturn = regexp.MustCompile(`return\s*\{\s*state\s*:\s*\{([^}]*)\}\s*\}\s*;?`)

// mergeStateReturn folds collected set-env assignments into a single
// `return { state: { ... } }`, merging with any state-return already
// present in the body rather than emitting a second one.
func mergeStateReturn(body string, collected map[string]string) string {
	if len(collected) == 0 {
		return body
	}

	keys := make([]string, 0, len(collected))
	for k := range collected {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var fields []string
	for _, k := range keys {
		fields = append(fields, fmt.Sprintf("%s: %s", k, textLiteral(collected[k])))
	}
	newFields := strings.Join(fields, ", ")

	if existingStateReturn.MatchString(body) {
		return existingStateReturn.ReplaceAllStringFunc(body, func(m string) string {
			sub := existingStateReturn.FindStringSubmatch(m)
			existing := strings.TrimSpace(sub[1])
			merged := newFields
			if existing != "" {
				merged = existing + ", " + newFields
			}
			return fmt.Sprintf("return { state: { %s } };", merged)
		})
	}

	return strings.TrimRight(body, "\n") + fmt.Sprintf("\nreturn { state: { %s } };\n", newFields)
}

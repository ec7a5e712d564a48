package logexec

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// renderSnippet produces the `<prefix>.ts` artifact: a human-readable
// snippet expressing entry's tool call in the high-level SDK (spec.md §4.G
// "Tool→snippet rendering"). Rendering never fails the caller: an unknown
// tool or a malformed argument set degrades to a commented JSON block.
func renderSnippet(entry ExecutionLog) string {
	header := "// Status: FAILURE\n"
	if entry.Status == StatusOK {
		header = "// Status: SUCCESS\n"
	}
	if entry.Error != "" {
		header += "// Error: " + entry.Error + "\n"
	}

	render, ok := snippetTable[entry.Tool]
	if !ok {
		return header + commentedJSONBlock(entry)
	}

	body := render(entry.Args)
	return header + body + "\n"
}

// snippetTable is the closed tool name -> render function map of spec.md
// §4.G. It is the single source of truth for `.ts` rendering.
var snippetTable = map[string]func(map[string]any) string{
	"click_element":          renderClick,
	"type_into_element":      renderTypeInto,
	"press_key":               renderPressKey,
	"global_key":              renderGlobalKey,
	"delay":                   renderDelay,
	"open_application":        renderOpenApplication,
	"navigate_browser":        renderNavigateBrowser,
	"get_window_tree":         renderGetWindowTree,
	"capture_screenshot":      renderCaptureScreenshot,
	"run_command":             renderRunCommand,
	"mouse_drag":              renderMouseDrag,
	"scroll_element":          renderLocatorMethod("scroll"),
	"wait_for_element":        renderLocatorMethod("waitFor"),
	"select_option":           renderLocatorMethod("selectOption"),
	"set_value":               renderLocatorMethod("setValue"),
	"highlight_element":       renderLocatorMethod("highlight"),
	"validate_element":        renderLocatorMethod("validate"),
	"invoke_element":          renderLocatorMethod("invoke"),
	"set_selected":            renderLocatorMethod("setSelected"),
	"activate_element":        renderLocatorMethod("activate"),
	"close_element":           renderLocatorMethod("close"),
	"get_applications":        renderGetApplications,
	"execute_browser_script":  renderExecuteBrowserScript,
	"stop_highlighting":       renderNoArgCall("stopHighlighting"),
	"stop_execution":          renderNoArgCall("stopExecution"),
	"gemini_computer_use":     renderGeminiComputerUse,
}

func commentedJSONBlock(entry ExecutionLog) string {
	payload := map[string]any{"tool": entry.Tool, "args": entry.Args}
	data, err := json.MarshalIndent(payload, "// ", "  ")
	if err != nil {
		return fmt.Sprintf("// %s\n", entry.Tool)
	}
	lines := strings.Split(string(data), "\n")
	var b strings.Builder
	b.WriteString("// unrecognized tool call:\n// ")
	b.WriteString(strings.Join(lines, "\n"))
	b.WriteString("\n")
	return b.String()
}

// --- click_element: coordinate / index / selector modes ---

func renderClick(args map[string]any) string {
	if x, xok := numArg(args, "x"); xok {
		if y, yok := numArg(args, "y"); yok {
			return fmt.Sprintf("desktop.click(%s, %s);", formatNumber(x), formatNumber(y))
		}
	}

	if idx, ok := numArg(args, "index"); ok {
		visionType := stringArg(args, "vision_type", "omniparser")
		fn := "clickOmniparserItem"
		switch visionType {
		case "ocr":
			fn = "clickOcrItem"
		case "accessibility":
			fn = "clickAccessibilityItem"
		}
		opts := clickOptsLiteral(args)
		if opts == "" {
			return fmt.Sprintf("desktop.%s(tree, %d);", fn, int(idx))
		}
		return fmt.Sprintf("desktop.%s(tree, %d, %s);", fn, int(idx), opts)
	}

	return renderLocatorChain(args, "click", clickOptsLiteral(args))
}

func clickOptsLiteral(args map[string]any) string {
	var parts []string
	if b, ok := args["button"].(string); ok && b != "" {
		parts = append(parts, fmt.Sprintf("button: %s", textLiteral(b)))
	}
	if n, ok := numArg(args, "click_count"); ok {
		parts = append(parts, fmt.Sprintf("clickCount: %d", int(n)))
	}
	if len(parts) == 0 {
		return ""
	}
	sort.Strings(parts)
	return "{ " + strings.Join(parts, ", ") + " }"
}

// --- locator-based tools ---

func renderTypeInto(args map[string]any) string {
	text := stringArg(args, "text", "")
	return renderLocatorChain(args, "typeText", textLiteral(text))
}

func renderLocatorMethod(method string) func(map[string]any) string {
	return func(args map[string]any) string {
		extra := ""
		if v, ok := args["value"]; ok {
			extra = valueLiteral(v)
		}
		return renderLocatorChain(args, method, extra)
	}
}

// renderLocatorChain builds `desktop.locator("...").first(timeoutMs).method(extra)`.
func renderLocatorChain(args map[string]any, method, extraArg string) string {
	locator := buildLocatorString(args)
	timeout := timeoutMS(args)
	call := fmt.Sprintf("desktop.locator(%s).first(%d).%s(", textLiteral(locator), timeout, method)
	call += extraArg
	call += ");"
	return call
}

func timeoutMS(args map[string]any) int {
	if n, ok := numArg(args, "timeout_ms"); ok {
		return int(n)
	}
	return 5000
}

// --- process/window-scoped calls ---

func renderPressKey(args map[string]any) string {
	key := stringArg(args, "key", "")
	return renderLocatorChain(args, "pressKey", textLiteral(key))
}

func renderGlobalKey(args map[string]any) string {
	key := stringArg(args, "key", "")
	return fmt.Sprintf("desktop.pressGlobalKey(%s);", textLiteral(key))
}

func renderDelay(args map[string]any) string {
	ms, _ := numArg(args, "duration_ms")
	return fmt.Sprintf("await delay(%d);", int(ms))
}

func renderOpenApplication(args map[string]any) string {
	name := stringArg(args, "name", "")
	return fmt.Sprintf("desktop.openApplication(%s);", textLiteral(name))
}

func renderNavigateBrowser(args map[string]any) string {
	url := stringArg(args, "url", "")
	browser := stringArg(args, "browser", "")
	if browser != "" {
		return fmt.Sprintf("desktop.navigateBrowser(%s, %s);", textLiteral(url), textLiteral(browser))
	}
	return fmt.Sprintf("desktop.navigateBrowser(%s);", textLiteral(url))
}

func renderGetWindowTree(args map[string]any) string {
	proc := stringArg(args, "process", "")
	return fmt.Sprintf("const tree = desktop.getWindowTree(%s);", textLiteral(proc))
}

func renderCaptureScreenshot(args map[string]any) string {
	_ = args
	return "const screenshot = desktop.captureScreenshot();"
}

func renderMouseDrag(args map[string]any) string {
	startX, _ := numArg(args, "start_x")
	startY, _ := numArg(args, "start_y")
	endX, _ := numArg(args, "end_x")
	endY, _ := numArg(args, "end_y")
	return fmt.Sprintf("desktop.mouseDrag(%s, %s, %s, %s);",
		formatNumber(startX), formatNumber(startY), formatNumber(endX), formatNumber(endY))
}

func renderGetApplications(args map[string]any) string {
	_ = args
	return "const apps = desktop.getApplications();"
}

func renderExecuteBrowserScript(args map[string]any) string {
	script := stringArg(args, "script", "")
	return fmt.Sprintf("const result = desktop.executeBrowserScript(%s);", valueLiteral(script))
}

func renderGeminiComputerUse(args map[string]any) string {
	instruction := stringArg(args, "instruction", "")
	return fmt.Sprintf("await desktop.geminiComputerUse(%s);", textLiteral(instruction))
}

func renderNoArgCall(method string) func(map[string]any) string {
	return func(map[string]any) string {
		return fmt.Sprintf("desktop.%s();", method)
	}
}

// --- run_command: shell vs JS body, with the YAML->SDK transform applied ---

var shellIndicators = regexp.MustCompile(`(?m)^\s*(\$\w+\s*=|#!)|(&&|\|\|)`)
var powershellCmdlet = regexp.MustCompile(`(?i)\b(Get|Set|New|Remove|Invoke|Write|Start|Stop)-[A-Za-z]+\b`)

func renderRunCommand(args map[string]any) string {
	body := stringArg(args, "command", "")
	shell := stringArg(args, "shell", "")
	cwd := stringArg(args, "cwd", "")

	if isShellLike(body) {
		parts := []string{valueLiteral(body)}
		if shell != "" || cwd != "" {
			parts = append(parts, textLiteral(shell))
		}
		if cwd != "" {
			parts = append(parts, textLiteral(cwd))
		}
		return fmt.Sprintf("desktop.run(%s);", strings.Join(parts, ", "))
	}

	return transformRunCommandJS(body)
}

func isShellLike(body string) bool {
	return shellIndicators.MatchString(body) || powershellCmdlet.MatchString(body)
}

// --- build_locator_string ---

// buildLocatorString composes `process:<proc> >> <window_selector> >> <selector>`
// with empty parts omitted, per spec.md §4.G.
func buildLocatorString(args map[string]any) string {
	var parts []string
	if proc := stringArg(args, "process", ""); proc != "" {
		parts = append(parts, "process:"+proc)
	}
	if win := stringArg(args, "window", ""); win != "" {
		parts = append(parts, win)
	}
	sel := stringArg(args, "selector", "")
	if sel != "" {
		parts = append(parts, normalizeFallbackSelector(sel))
	}
	return strings.Join(parts, " >> ")
}

// normalizeFallbackSelector converts a legacy pipe-separated selector
// fallback (bare, untyped segments with no "kind:value" prefix) into the
// `&&`-joined grammar the Selector Engine parses. A pipe-joined selector
// whose segments already carry a typed prefix (e.g. "role:Button|name:OK")
// is the Selector Engine's own attribute-chaining grammar and is passed
// through unchanged.
func normalizeFallbackSelector(sel string) string {
	if !strings.Contains(sel, "|") || strings.Contains(sel, ">>") {
		return sel
	}
	pieces := strings.Split(sel, "|")
	for _, p := range pieces {
		if strings.Contains(strings.TrimSpace(p), ":") {
			return sel
		}
	}
	for i, p := range pieces {
		pieces[i] = strings.TrimSpace(p)
	}
	return strings.Join(pieces, " && ")
}

// --- text value classification ---

var pureVariable = regexp.MustCompile(`^\$\{[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*\}$`)

// textLiteral classifies s as pure-variable, interpolating, or plain and
// emits the matching TypeScript literal (spec.md §4.G "Text values").
func textLiteral(s string) string {
	switch {
	case pureVariable.MatchString(s):
		return strings.TrimSuffix(strings.TrimPrefix(s, "${"), "}")
	case strings.Contains(s, "${"):
		escaped := strings.NewReplacer("\\", "\\\\", "`", "\\`").Replace(s)
		return "`" + escaped + "`"
	default:
		escaped := strings.NewReplacer("\\", "\\\\", "\"", "\\\"", "\n", "\\n").Replace(s)
		return "\"" + escaped + "\""
	}
}

// valueLiteral emits a literal for an arbitrary argument value: strings go
// through textLiteral's classifier, everything else is JSON-encoded.
func valueLiteral(v any) string {
	if s, ok := v.(string); ok {
		return textLiteral(s)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(data)
}

// --- argument helpers ---

func stringArg(args map[string]any, key, def string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return def
}

func numArg(args map[string]any, key string) (float64, bool) {
	switch v := args[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func formatNumber(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

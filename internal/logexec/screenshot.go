package logexec

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// screenshotFields are the top-level result keys the logger inspects before
// falling back to a content[] walk (spec.md §4.G "Screenshot detection order").
var screenshotFields = map[string]bool{
	"screenshot":         true,
	"image":              true,
	"screenshot_before":  true,
	"screenshot_after":   true,
	"before_screenshot":  true,
	"after_screenshot":   true,
	"screenshot_base64":  true,
}

var beforeFields = map[string]bool{"screenshot_before": true, "before_screenshot": true}
var afterFields = map[string]bool{"screenshot_after": true, "after_screenshot": true}

const redactedPlaceholder = "[extracted to file]"

// extractScreenshots strips embedded base64 screenshots out of value,
// writes each to `<prefix>_before.png` / `<prefix>_after[_k].png` under dir,
// and returns the redacted value plus the file references recorded
// (spec.md §4.G, invariant E4).
func extractScreenshots(ctx context.Context, dir, prefix string, value any) (any, Screenshots, error) {
	if value == nil {
		return nil, Screenshots{}, nil
	}

	// Normalize to a generic JSON tree so both native Go values and
	// already-decoded JSON (maps/slices) walk the same way, and so
	// content[].text fields that are themselves JSON-encoded strings can be
	// recursed into (spec.md's "including JSON-in-text").
	raw, err := json.Marshal(value)
	if err != nil {
		return value, Screenshots{}, fmt.Errorf("marshal result for screenshot scan: %w", err)
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return value, Screenshots{}, fmt.Errorf("normalize result for screenshot scan: %w", err)
	}

	ex := &extractor{dir: dir, prefix: prefix}
	stripped := ex.walk(generic)
	if ex.firstErr != nil {
		return stripped, ex.shots, ex.firstErr
	}
	return stripped, ex.shots, nil
}

type extractor struct {
	dir      string
	prefix   string
	shots    Screenshots
	afterN   int
	firstErr error
}

// walk recurses through a normalized JSON tree, redacting and extracting any
// value that looks like a base64 screenshot.
func (ex *extractor) walk(node any) any {
	switch v := node.(type) {
	case map[string]any:
		return ex.walkObject(v)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = ex.walk(item)
		}
		return out
	case string:
		// JSON-in-text: a text content part may itself be a JSON document.
		if looksLikeJSONObjectOrArray(v) {
			var nested any
			if err := json.Unmarshal([]byte(v), &nested); err == nil {
				redacted := ex.walk(nested)
				if out, err := json.Marshal(redacted); err == nil {
					return string(out)
				}
			}
		}
		return v
	default:
		return v
	}
}

func (ex *extractor) walkObject(obj map[string]any) map[string]any {
	out := make(map[string]any, len(obj))

	// content[] items of shape {type:"image", data: "..."} (spec.md's
	// "content[] array" detection).
	if isImageContentPart(obj) {
		if data, ok := obj["data"].(string); ok && isLikelyBase64Image(data) {
			if ref, err := ex.capture(data, slotAuto); err == nil {
				out["data"] = redactedPlaceholder
				out["__screenshot_file"] = ref
				for k, val := range obj {
					if k == "data" {
						continue
					}
					out[k] = ex.walk(val)
				}
				return out
			} else if ex.firstErr == nil {
				ex.firstErr = err
			}
		}
	}

	for key, val := range obj {
		if screenshotFields[key] {
			if s, ok := val.(string); ok && isLikelyBase64Image(s) {
				if _, err := ex.capture(s, slotFor(key)); err != nil {
					if ex.firstErr == nil {
						ex.firstErr = err
					}
					out[key] = ex.walk(val)
					continue
				}
				out[key] = redactedPlaceholder
				continue
			}
		}
		out[key] = ex.walk(val)
	}

	// content may live at result.content or, when walkObject is called on
	// the top-level result itself, at obj["content"] — already covered by
	// the generic field loop above recursing into it.
	return out
}

func isImageContentPart(obj map[string]any) bool {
	t, _ := obj["type"].(string)
	_, hasData := obj["data"]
	return t == "image" && hasData
}

// slot is which screenshot role a captured field fills.
type slot int

const (
	slotAuto   slot = iota // generic field: before if unset, else after
	slotBefore             // explicitly a "before" field
	slotAfter              // explicitly an "after" field
)

func slotFor(key string) slot {
	switch {
	case beforeFields[key]:
		return slotBefore
	case afterFields[key]:
		return slotAfter
	default:
		return slotAuto
	}
}

// capture decodes and writes one screenshot, recording it in ex.shots per
// its slot (invariant E4: at most one "before", an ordered "after" vector).
func (ex *extractor) capture(encoded string, s slot) (string, error) {
	data, err := decodeImageBase64(encoded)
	if err != nil {
		return "", err
	}

	asBefore := s == slotBefore || (s == slotAuto && ex.shots.Before == "" && len(ex.shots.After) == 0)

	var name string
	if asBefore && ex.shots.Before == "" {
		name = ex.prefix + "_before.png"
		ex.shots.Before = name
	} else {
		name = ex.nextAfterName()
		ex.shots.After = append(ex.shots.After, name)
	}

	path := filepath.Join(ex.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write screenshot %s: %w", name, err)
	}
	return name, nil
}

func (ex *extractor) nextAfterName() string {
	ex.afterN++
	if ex.afterN == 1 {
		return ex.prefix + "_after.png"
	}
	return ex.prefix + fmt.Sprintf("_after_%d.png", ex.afterN)
}

// isLikelyBase64Image applies spec.md's minimum signature: length >= 80 and
// starts with `iVBOR` (PNG) or `/9j/` (JPEG) or contains `base64,` (data URL).
func isLikelyBase64Image(s string) bool {
	if len(s) < 80 {
		return false
	}
	return strings.HasPrefix(s, "iVBOR") || strings.HasPrefix(s, "/9j/") || strings.Contains(s, "base64,")
}

func looksLikeJSONObjectOrArray(s string) bool {
	t := strings.TrimSpace(s)
	if len(t) < 2 {
		return false
	}
	return (t[0] == '{' && t[len(t)-1] == '}') || (t[0] == '[' && t[len(t)-1] == ']')
}

// decodeImageBase64 strips an optional data-URL prefix before decoding.
func decodeImageBase64(s string) ([]byte, error) {
	if idx := strings.Index(s, "base64,"); idx >= 0 {
		s = s[idx+len("base64,"):]
	}
	return base64.StdEncoding.DecodeString(s)
}

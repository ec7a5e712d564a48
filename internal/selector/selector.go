// Package selector implements the composable selector language of spec.md
// §3/§4.B/§6: a sum-type AST, a recursive-descent parser/serializer for the
// string grammar, and the evaluator lives in matcher.go.
package selector

import (
	"fmt"
	"strconv"
	"strings"

	coreerrors "github.com/mediar-ai/terminator/internal/errors"
)

// Kind identifies which variant of the Selector sum type is populated.
type Kind int

const (
	KindRole Kind = iota
	KindName
	KindText
	KindID
	KindNativeID
	KindClassName
	KindLocalizedRole
	KindVisible
	KindChain
	KindNth
	KindAttributes
	KindFilter
	KindRightOf
	KindLeftOf
	KindAbove
	KindBelow
	KindNear
	KindHas
	KindInvalid
)

func (k Kind) String() string {
	switch k {
	case KindRole:
		return "Role"
	case KindName:
		return "Name"
	case KindText:
		return "Text"
	case KindID:
		return "Id"
	case KindNativeID:
		return "NativeId"
	case KindClassName:
		return "ClassName"
	case KindLocalizedRole:
		return "LocalizedRole"
	case KindVisible:
		return "Visible"
	case KindChain:
		return "Chain"
	case KindNth:
		return "Nth"
	case KindAttributes:
		return "Attributes"
	case KindFilter:
		return "Filter"
	case KindRightOf:
		return "RightOf"
	case KindLeftOf:
		return "LeftOf"
	case KindAbove:
		return "Above"
	case KindBelow:
		return "Below"
	case KindNear:
		return "Near"
	case KindHas:
		return "Has"
	case KindInvalid:
		return "Invalid"
	default:
		return "Unknown"
	}
}

// Selector is the sum type described in spec.md §3. Only the fields relevant
// to Kind are populated; the zero value of the rest is ignored.
type Selector struct {
	Kind Kind

	Role string // Role
	Name string // Role (optional name filter), Name, NativeId-adjacent steps reuse Value below

	Value string // Name/Text/ClassName/LocalizedRole/NativeId/Id/Filter payload
	Bool  bool   // Visible

	Chain []Selector // Chain
	Index int        // Nth (may be negative)

	Attributes map[string]string // Attributes

	Anchor *Selector // RightOf/LeftOf/Above/Below/Near
	Inner  *Selector // Has

	Reason string // Invalid
}

// Role builds a Role{role, name?} selector.
func Role(role, name string) Selector { return Selector{Kind: KindRole, Role: role, Name: name} }

// Name builds a Name(s) selector.
func Name(s string) Selector { return Selector{Kind: KindName, Value: s} }

// Text builds a Text(s) selector.
func Text(s string) Selector { return Selector{Kind: KindText, Value: s} }

// ID builds an Id(prefix) selector.
func ID(prefix string) Selector { return Selector{Kind: KindID, Value: prefix} }

// NativeID builds a NativeId(id) selector.
func NativeID(id string) Selector { return Selector{Kind: KindNativeID, Value: id} }

// ClassName builds a ClassName(s) selector.
func ClassName(s string) Selector { return Selector{Kind: KindClassName, Value: s} }

// LocalizedRole builds a LocalizedRole(s) selector.
func LocalizedRole(s string) Selector { return Selector{Kind: KindLocalizedRole, Value: s} }

// Visible builds a Visible(bool) selector.
func Visible(b bool) Selector { return Selector{Kind: KindVisible, Bool: b} }

// Attrs builds an Attributes(map) selector.
func Attrs(m map[string]string) Selector { return Selector{Kind: KindAttributes, Attributes: m} }

// Invalid builds an error-carrier selector.
func Invalid(reason string) Selector { return Selector{Kind: KindInvalid, Reason: reason} }

// Nth builds a positional selector, only meaningful inside a Chain.
func Nth(i int) Selector { return Selector{Kind: KindNth, Index: i} }

// Has builds a Has(inner) structural selector.
func Has(inner Selector) Selector { return Selector{Kind: KindHas, Inner: &inner} }

func spatial(kind Kind, anchor Selector) Selector {
	return Selector{Kind: kind, Anchor: &anchor}
}

func RightOf(anchor Selector) Selector { return spatial(KindRightOf, anchor) }
func LeftOf(anchor Selector) Selector  { return spatial(KindLeftOf, anchor) }
func Above(anchor Selector) Selector   { return spatial(KindAbove, anchor) }
func Below(anchor Selector) Selector   { return spatial(KindBelow, anchor) }
func Near(anchor Selector) Selector    { return spatial(KindNear, anchor) }

// Chain builds a Chain([...]) selector, ordered refinement with Nth allowed
// only as a non-first step. An empty chain is invalid per spec.md §3.
func Chain(steps ...Selector) Selector {
	if len(steps) == 0 {
		return Invalid("Chain([]) is not a valid selector")
	}
	return Selector{Kind: KindChain, Chain: steps}
}

// Validate checks the structural invariants from spec.md §3: Chain([]) is
// invalid (caught at construction by Chain()), bare Nth outside a chain is
// invalid, and bare Has outside a chain is invalid.
func (s Selector) Validate() error {
	switch s.Kind {
	case KindInvalid:
		return coreerrors.InvalidSelector(s.Reason, nil)
	case KindChain:
		if len(s.Chain) == 0 {
			return coreerrors.InvalidSelector("Chain([]) is not a valid selector", nil)
		}
		for i, step := range s.Chain {
			if step.Kind == KindNth && i == 0 {
				return coreerrors.InvalidSelector("bare Nth as the first chain step has nothing to index", nil)
			}
			if step.Kind == KindChain {
				if err := step.Validate(); err != nil {
					return err
				}
			}
		}
		return nil
	case KindNth:
		return coreerrors.InvalidSelector("bare Nth outside a chain is invalid", nil)
	case KindHas:
		return coreerrors.InvalidSelector("bare Has outside a chain is invalid", nil)
	case KindRightOf, KindLeftOf, KindAbove, KindBelow, KindNear:
		if s.Anchor == nil {
			return coreerrors.InvalidSelector(fmt.Sprintf("%s requires an anchor selector", s.Kind), nil)
		}
		return nil
	default:
		return nil
	}
}

// ---- string grammar parsing (spec.md §6) ----

const chainSep = " >> "

// Parse parses the selector string grammar of spec.md §6. An Nth step is
// only valid as a non-leading step of a multi-step chain, and a Has step
// only inside a multi-step chain (at any position); this function enforces
// that via Validate before returning.
func Parse(s string) (Selector, error) {
	steps := splitSteps(strings.TrimSpace(s))
	if len(steps) == 0 {
		return Selector{}, coreerrors.InvalidSelector("empty selector", nil)
	}
	parsed := make([]Selector, 0, len(steps))
	for _, raw := range steps {
		step, err := parseStep(strings.TrimSpace(raw))
		if err != nil {
			return Selector{}, err
		}
		parsed = append(parsed, step)
	}
	var result Selector
	if len(parsed) == 1 {
		result = parsed[0]
	} else {
		result = Selector{Kind: KindChain, Chain: parsed}
	}
	if err := result.Validate(); err != nil {
		return Selector{}, err
	}
	return result, nil
}

func splitSteps(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, chainSep)
}

// spatialPrefixes maps a wire token to the Kind it builds; each takes an
// inner selector string as its remaining payload.
var spatialPrefixes = map[string]Kind{
	"rightof:": KindRightOf,
	"leftof:":  KindLeftOf,
	"above:":   KindAbove,
	"below:":   KindBelow,
	"near:":    KindNear,
}

func parseStep(tok string) (Selector, error) {
	switch {
	case tok == "":
		return Selector{}, coreerrors.InvalidSelector("empty selector step", nil)
	case strings.HasPrefix(tok, "#"):
		return ID(strings.TrimPrefix(tok, "#")), nil
	case strings.HasPrefix(tok, "role:"):
		rest := strings.TrimPrefix(tok, "role:")
		if idx := strings.Index(rest, "|name:"); idx >= 0 {
			return Role(rest[:idx], rest[idx+len("|name:"):]), nil
		}
		return Role(rest, ""), nil
	case strings.HasPrefix(tok, "name:"):
		return Name(strings.TrimPrefix(tok, "name:")), nil
	case strings.HasPrefix(tok, "text:"):
		return Text(strings.TrimPrefix(tok, "text:")), nil
	case strings.HasPrefix(tok, "nativeid:"):
		return NativeID(strings.TrimPrefix(tok, "nativeid:")), nil
	case strings.HasPrefix(tok, "classname:"):
		return ClassName(strings.TrimPrefix(tok, "classname:")), nil
	case strings.HasPrefix(tok, "visible:"):
		b, err := strconv.ParseBool(strings.TrimPrefix(tok, "visible:"))
		if err != nil {
			return Selector{}, coreerrors.InvalidSelector("visible: expects true/false", nil)
		}
		return Visible(b), nil
	case strings.HasPrefix(tok, "nth="):
		n, err := strconv.Atoi(strings.TrimPrefix(tok, "nth="))
		if err != nil {
			return Selector{}, coreerrors.InvalidSelector("nth= expects an integer", nil)
		}
		return Nth(n), nil
	case strings.HasPrefix(tok, "has:"):
		inner, err := parseStep(strings.TrimPrefix(tok, "has:"))
		if err != nil {
			return Selector{}, err
		}
		return Has(inner), nil
	default:
		for prefix, kind := range spatialPrefixes {
			if strings.HasPrefix(tok, prefix) {
				inner, err := parseStep(strings.TrimPrefix(tok, prefix))
				if err != nil {
					return Selector{}, err
				}
				return spatial(kind, inner), nil
			}
		}
		return Selector{}, coreerrors.InvalidSelector(fmt.Sprintf("unrecognised selector token %q", tok), nil)
	}
}

// Serialize renders sel back into the §6 string grammar. It is the inverse
// of Parse for every selector Parse can produce (P1: parse(serialize(s))==s
// up to whitespace normalisation).
func Serialize(sel Selector) string {
	switch sel.Kind {
	case KindRole:
		if sel.Name != "" {
			return fmt.Sprintf("role:%s|name:%s", sel.Role, sel.Name)
		}
		return "role:" + sel.Role
	case KindName:
		return "name:" + sel.Value
	case KindText:
		return "text:" + sel.Value
	case KindID:
		return "#" + sel.Value
	case KindNativeID:
		return "nativeid:" + sel.Value
	case KindClassName:
		return "classname:" + sel.Value
	case KindLocalizedRole:
		return "localizedrole:" + sel.Value
	case KindVisible:
		return "visible:" + strconv.FormatBool(sel.Bool)
	case KindNth:
		return "nth=" + strconv.Itoa(sel.Index)
	case KindHas:
		return "has:" + Serialize(*sel.Inner)
	case KindRightOf:
		return "rightof:" + Serialize(*sel.Anchor)
	case KindLeftOf:
		return "leftof:" + Serialize(*sel.Anchor)
	case KindAbove:
		return "above:" + Serialize(*sel.Anchor)
	case KindBelow:
		return "below:" + Serialize(*sel.Anchor)
	case KindNear:
		return "near:" + Serialize(*sel.Anchor)
	case KindChain:
		parts := make([]string, len(sel.Chain))
		for i, step := range sel.Chain {
			parts[i] = Serialize(step)
		}
		return strings.Join(parts, chainSep)
	case KindInvalid:
		return "invalid:" + sel.Reason
	default:
		return ""
	}
}

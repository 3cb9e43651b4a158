package engine

import (
	"errors"
	"sort"
	"strings"

	"github.com/shibata-rui-dn/OneAgent-sub001/tool"
)

// ErrorKind is the actionable category of a failed tool call. It is reported
// back to the model together with a suggestion so it can recover.
type ErrorKind string

const (
	// ErrKindParse means the model-produced argument text was not valid JSON.
	ErrKindParse ErrorKind = "ArgumentParseError"
	// ErrKindMissingArgument means a required argument was absent.
	ErrKindMissingArgument ErrorKind = "MissingRequiredArgument"
	// ErrKindInvalidArgument means an argument had a wrong type or value.
	ErrKindInvalidArgument ErrorKind = "InvalidArgument"
	// ErrKindPermission means the caller is not authorized; not recoverable
	// by retrying with different arguments.
	ErrKindPermission ErrorKind = "PermissionError"
	// ErrKindNotFound means a referenced resource does not exist.
	ErrKindNotFound ErrorKind = "ResourceNotFound"
	// ErrKindTimeout means the tool did not finish in time.
	ErrKindTimeout ErrorKind = "TimeoutError"
	// ErrKindUnknown is the fallback category.
	ErrKindUnknown ErrorKind = "Unknown"
)

// classification carries everything the engine attaches to a failed outcome.
type classification struct {
	Kind        ErrorKind
	Suggestion  string
	Recoverable bool
}

// classifyToolError routes a tool failure to an actionable category. Typed
// tool errors are consulted first; otherwise the registry's error wording is
// pattern matched, so this is best-effort and intentionally isolated from
// the state machine.
func classifyToolError(err error) classification {
	var toolErr *tool.ToolError
	if errors.As(err, &toolErr) {
		switch toolErr.Code {
		case tool.CodePermission:
			return classification{ErrKindPermission, "This tool requires authorization the caller does not have. Use a tool that needs no authorization, or tell the user what access is missing.", false}
		case tool.CodeTimeout:
			return classification{ErrKindTimeout, "The tool timed out. Retry once; if it fails again, explain the delay to the user.", true}
		case tool.CodeValidation:
			return classifyValidation(toolErr.Message)
		}
	}
	return classifyMessage(strings.ToLower(err.Error()))
}

func classifyValidation(msg string) classification {
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "required") || strings.Contains(lower, "missing") {
		return classification{ErrKindMissingArgument, "A required argument is missing. Supply every required field, or ask the user for the missing information.", true}
	}
	return classification{ErrKindInvalidArgument, "An argument has a wrong type or value. Check the tool's parameter schema and retry with corrected arguments.", true}
}

func classifyMessage(lower string) classification {
	switch {
	case strings.Contains(lower, "permission") ||
		strings.Contains(lower, "unauthorized") ||
		strings.Contains(lower, "forbidden") ||
		strings.Contains(lower, "access denied"):
		return classification{ErrKindPermission, "This tool requires authorization the caller does not have. Use a tool that needs no authorization, or tell the user what access is missing.", false}
	case strings.Contains(lower, "required") && (strings.Contains(lower, "argument") || strings.Contains(lower, "parameter") || strings.Contains(lower, "field")),
		strings.Contains(lower, "missing required"):
		return classification{ErrKindMissingArgument, "A required argument is missing. Supply every required field, or ask the user for the missing information.", true}
	case strings.Contains(lower, "invalid") ||
		strings.Contains(lower, "validation") ||
		strings.Contains(lower, "must be") ||
		strings.Contains(lower, "wrong type"):
		return classification{ErrKindInvalidArgument, "An argument has a wrong type or value. Check the tool's parameter schema and retry with corrected arguments.", true}
	case strings.Contains(lower, "not found") ||
		strings.Contains(lower, "no such") ||
		strings.Contains(lower, "does not exist"):
		return classification{ErrKindNotFound, "The referenced resource does not exist. Verify the identifier, try an alternative, or ask the user to confirm it.", true}
	case strings.Contains(lower, "timeout") ||
		strings.Contains(lower, "timed out") ||
		strings.Contains(lower, "deadline exceeded"):
		return classification{ErrKindTimeout, "The tool timed out. Retry once; if it fails again, explain the delay to the user.", true}
	default:
		return classification{ErrKindUnknown, "The tool failed for an unexpected reason. Try an alternative tool or explain the failure to the user.", true}
	}
}

// alternativeTools proposes up to three same-capability tools for a failed
// call: keyword overlap between tool descriptions, or for permission errors
// tools that require no authorization at all.
func alternativeTools(failed tool.Tool, kind ErrorKind, available []tool.Tool) []string {
	const maxAlternatives = 3

	if kind == ErrKindPermission {
		var names []string
		for _, t := range available {
			if t.Name() == failed.Name() || requiresAuth(t) {
				continue
			}
			names = append(names, t.Name())
			if len(names) == maxAlternatives {
				break
			}
		}
		return names
	}

	keywords := descriptionKeywords(failed.Description())
	type scored struct {
		name  string
		score int
	}
	var candidates []scored
	for _, t := range available {
		if t.Name() == failed.Name() {
			continue
		}
		score := 0
		for word := range descriptionKeywords(t.Description()) {
			if keywords[word] {
				score++
			}
		}
		if score > 0 {
			candidates = append(candidates, scored{t.Name(), score})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })
	var names []string
	for _, c := range candidates {
		names = append(names, c.name)
		if len(names) == maxAlternatives {
			break
		}
	}
	return names
}

func requiresAuth(t tool.Tool) bool {
	if ar, ok := t.(tool.AuthRequirer); ok {
		return ar.RequiresAuth()
	}
	return false
}

// descriptionKeywords tokenizes a description into significant lowercase words.
func descriptionKeywords(desc string) map[string]bool {
	words := strings.FieldsFunc(strings.ToLower(desc), func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	})
	out := make(map[string]bool, len(words))
	for _, w := range words {
		if len(w) >= 4 {
			out[w] = true
		}
	}
	return out
}

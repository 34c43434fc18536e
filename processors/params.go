package processors

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/upb/dtn-ai-router/services"
)

// Prompt extracts the prompt from parameter 0.
// When allowList is set a string[] prompt is accepted and joined with newlines.
func Prompt(parameters []any, types []string, allowList bool) (string, error) {
	if len(parameters) < 1 {
		return "", services.NewAPIError(services.CodeInvalidParameters, "Text generation requires at least 1 parameter (prompt)")
	}
	if len(types) < 1 {
		return "", promptTypeError(allowList)
	}

	switch types[0] {
	case TypeString:
		s, ok := parameters[0].(string)
		if !ok {
			return "", promptTypeError(allowList)
		}
		return s, nil
	case TypeStringArray:
		if !allowList {
			return "", promptTypeError(allowList)
		}
		lines, err := stringSlice(parameters[0])
		if err != nil {
			return "", promptTypeError(allowList)
		}
		return strings.Join(lines, "\n"), nil
	default:
		return "", promptTypeError(allowList)
	}
}

func promptTypeError(allowList bool) error {
	if allowList {
		return services.NewAPIError(services.CodeInvalidParameters, "First parameter must be a string or string[] (prompt)")
	}
	return services.NewAPIError(services.CodeInvalidParameters, "First parameter must be a string (prompt)")
}

func stringSlice(v any) ([]string, error) {
	switch vals := v.(type) {
	case []string:
		return vals, nil
	case []any:
		out := make([]string, 0, len(vals))
		for i, item := range vals {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("element %d is %T, not string", i, item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%T is not a string list", v)
	}
}

// Uint64At returns parameter i as uint64, or def when the parameter is absent.
// A present parameter must be tagged uint64 and hold a non-negative integer.
func Uint64At(parameters []any, types []string, i int, def uint64) (uint64, error) {
	if i >= len(parameters) {
		return def, nil
	}
	if i >= len(types) || types[i] != TypeUint64 {
		return 0, services.NewAPIError(services.CodeInvalidParameters, fmt.Sprintf("Parameter %d must be a uint64", i))
	}

	n, err := toUint64(parameters[i])
	if err != nil {
		return 0, services.WrapAPIError(services.CodeInvalidParameters, fmt.Sprintf("Parameter %d must be a uint64", i), err)
	}
	return n, nil
}

func toUint64(v any) (uint64, error) {
	switch n := v.(type) {
	case json.Number:
		return strconv.ParseUint(n.String(), 10, 64)
	case string:
		return strconv.ParseUint(n, 10, 64)
	case uint64:
		return n, nil
	case int:
		if n < 0 {
			return 0, fmt.Errorf("negative value %d", n)
		}
		return uint64(n), nil
	case int64:
		if n < 0 {
			return 0, fmt.Errorf("negative value %d", n)
		}
		return uint64(n), nil
	case float64:
		if n < 0 || n != math.Trunc(n) || n >= math.MaxUint64 {
			return 0, fmt.Errorf("%v is not an unsigned integer", n)
		}
		return uint64(n), nil
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
}

// SanitizeText trims model output and strips a surrounding markdown code fence.
// Empty output after sanitization is a NO_SANITIZED_TEXT failure.
func SanitizeText(text string) (string, error) {
	out := strings.TrimSpace(text)
	if strings.HasPrefix(out, "```") && strings.HasSuffix(out, "```") && len(out) >= 6 {
		out = strings.TrimSuffix(strings.TrimPrefix(out, "```"), "```")
		// Drop the info string (e.g. "json") on the opening fence line
		if nl := strings.IndexByte(out, '\n'); nl >= 0 && !strings.ContainsAny(out[:nl], " \t") {
			out = out[nl+1:]
		}
		out = strings.TrimSpace(out)
	}
	if out == "" {
		return "", services.NewAPIError(services.CodeNoSanitizedText, "No text left after sanitizing the model response")
	}
	return out, nil
}

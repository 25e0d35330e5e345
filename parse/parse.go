// Package parse extracts structured data from raw LLM text output. Models
// frequently wrap JSON in markdown code fences or produce slightly malformed
// JSON (single quotes, unquoted keys, trailing commas), so unmarshaling is
// attempted in layers: fence stripping, direct unmarshal, then automatic
// repair via jsonrepair before giving up with a clear error.
package parse

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// ParseStringAs parses LLM output into the target type T. For complex types
// (structs, maps, slices) it unmarshals JSON with automatic repair of
// malformed output; plain strings are returned as-is after fence stripping.
//
// Example:
//
//	type verdict struct {
//	    HasContext bool `json:"has_context"`
//	}
//
//	// Parses even sloppy model output such as {has_context: True}
//	v, err := parse.ParseStringAs[verdict](response.Content)
func ParseStringAs[T any](content string) (T, error) {
	var result T

	candidate := StripCodeFences(content)

	// Plain string targets need no decoding.
	if stringResult, isString := any(&result).(*string); isString {
		*stringResult = candidate
		return result, nil
	}

	if err := json.Unmarshal([]byte(candidate), &result); err == nil {
		return result, nil
	}

	repaired, repairErr := jsonrepair.JSONRepair(candidate)
	if repairErr != nil {
		return result, fmt.Errorf("content is not valid JSON for %T and could not be repaired: %w", result, repairErr)
	}

	if err := json.Unmarshal([]byte(repaired), &result); err != nil {
		return result, fmt.Errorf("failed to unmarshal repaired JSON as %T: %w (repaired: %s)", result, err, repaired)
	}

	return result, nil
}

// StripCodeFences removes a surrounding markdown code fence (``` or
// ```json) from the content, if present, and trims whitespace.
func StripCodeFences(content string) string {
	trimmed := strings.TrimSpace(content)

	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	trimmed = strings.TrimPrefix(trimmed, "```")
	// Drop an optional language tag on the opening fence line.
	if newlineIndex := strings.IndexByte(trimmed, '\n'); newlineIndex >= 0 {
		firstLine := strings.TrimSpace(trimmed[:newlineIndex])
		if firstLine != "" && !strings.ContainsAny(firstLine, "{}[]\"") {
			trimmed = trimmed[newlineIndex+1:]
		}
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")

	return strings.TrimSpace(trimmed)
}

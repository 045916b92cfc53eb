package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseFile parses and validates a job file, detecting the format from the
// extension and falling back to content sniffing.
func ParseFile(filepath string) *Result {
	format := DetectFormat(filepath)

	var parsed *ParseResult
	switch format {
	case "json":
		parsed = parseJSONFile(filepath)
	case "yaml":
		parsed = parseYAMLFile(filepath)
	default:
		content, err := os.ReadFile(filepath)
		if err != nil {
			return &Result{
				FilePath: filepath,
				ParseErrors: []ParseError{{
					Path:    filepath,
					Message: fmt.Sprintf("failed to read file: %v", err),
					Type:    ErrorTypeIO,
				}},
			}
		}
		if isJSON(string(content)) {
			parsed = parseJSONString(string(content))
		} else {
			parsed = parseYAMLString(string(content))
		}
		parsed.FilePath = filepath
	}

	result := &Result{
		Data:        parsed.Data,
		ParseErrors: parsed.Errors,
		FilePath:    filepath,
		Format:      parsed.Format,
	}
	if !parsed.IsValid() {
		return result
	}

	validation := ValidateJob(parsed.Data)
	result.ValidationErrors = validation.Errors
	return result
}

// DetectFormat infers the format from the file extension. Unknown
// extensions return "".
func DetectFormat(filepath string) string {
	switch strings.ToLower(path.Ext(filepath)) {
	case ".json":
		return "json"
	case ".yaml", ".yml":
		return "yaml"
	default:
		return ""
	}
}

func isJSON(content string) bool {
	trimmed := strings.TrimSpace(content)
	return strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[")
}

func parseJSONFile(filepath string) *ParseResult {
	result := &ParseResult{FilePath: filepath, Format: "json"}
	content, err := os.ReadFile(filepath)
	if err != nil {
		result.Errors = append(result.Errors, ParseError{
			Path:    filepath,
			Message: fmt.Sprintf("failed to read file: %v", err),
			Type:    ErrorTypeIO,
		})
		return result
	}
	parsed := parseJSONString(string(content))
	result.Data = parsed.Data
	result.Errors = parsed.Errors
	for i := range result.Errors {
		if result.Errors[i].Path == "" {
			result.Errors[i].Path = filepath
		}
	}
	return result
}

func parseJSONString(content string) *ParseResult {
	result := &ParseResult{Format: "json"}
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		result.Errors = append(result.Errors, ParseError{
			Message: "empty content: expected a JSON object",
			Type:    ErrorTypeFormat,
		})
		return result
	}

	var data map[string]interface{}
	if err := json.Unmarshal([]byte(content), &data); err != nil {
		result.Errors = append(result.Errors, jsonParseError(err, content))
		return result
	}
	result.Data = data
	return result
}

// jsonParseError extracts line/column information from the standard
// library's offset-bearing error types.
func jsonParseError(err error, content string) ParseError {
	perr := ParseError{Message: err.Error(), Type: ErrorTypeSyntax}

	var offset int64 = -1
	if syntaxErr, ok := err.(*json.SyntaxError); ok {
		offset = syntaxErr.Offset
	} else if typeErr, ok := err.(*json.UnmarshalTypeError); ok {
		offset = typeErr.Offset
		perr.Type = ErrorTypeFormat
	}
	if offset >= 0 {
		perr.Line, perr.Column = offsetToLineColumn(content, offset)
	}
	return perr
}

func offsetToLineColumn(content string, offset int64) (line, column int) {
	line, column = 1, 1
	for i, r := range content {
		if int64(i) >= offset {
			break
		}
		if r == '\n' {
			line++
			column = 1
		} else {
			column++
		}
	}
	return line, column
}

func parseYAMLFile(filepath string) *ParseResult {
	result := &ParseResult{FilePath: filepath, Format: "yaml"}
	content, err := os.ReadFile(filepath)
	if err != nil {
		result.Errors = append(result.Errors, ParseError{
			Path:    filepath,
			Message: fmt.Sprintf("failed to read file: %v", err),
			Type:    ErrorTypeIO,
		})
		return result
	}
	parsed := parseYAMLString(string(content))
	result.Data = parsed.Data
	result.Errors = parsed.Errors
	for i := range result.Errors {
		if result.Errors[i].Path == "" {
			result.Errors[i].Path = filepath
		}
	}
	return result
}

func parseYAMLString(content string) *ParseResult {
	result := &ParseResult{Format: "yaml"}
	if strings.TrimSpace(content) == "" {
		result.Errors = append(result.Errors, ParseError{
			Message: "empty content: expected a YAML mapping",
			Type:    ErrorTypeFormat,
		})
		return result
	}

	var data map[string]interface{}
	if err := yaml.Unmarshal([]byte(content), &data); err != nil {
		result.Errors = append(result.Errors, ParseError{
			Message: err.Error(),
			Type:    ErrorTypeSyntax,
		})
		return result
	}
	if data == nil {
		result.Errors = append(result.Errors, ParseError{
			Message: "document is not a mapping",
			Type:    ErrorTypeFormat,
		})
		return result
	}
	result.Data = data
	return result
}

package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	pkgerrors "github.com/angelmondragon/pdv-terminal/pkg/errors"
)

const nonFieldErrorsKey = "non_field_errors"

// CodeForStatus maps a backend HTTP status onto an error code.
func CodeForStatus(status int) pkgerrors.Code {
	switch {
	case status == http.StatusBadRequest:
		return pkgerrors.CodeValidation
	case status == http.StatusUnauthorized:
		return pkgerrors.CodeUnauthorized
	case status == http.StatusForbidden:
		return pkgerrors.CodeForbidden
	case status == http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case status == http.StatusConflict:
		return pkgerrors.CodeConflict
	case status == http.StatusUnprocessableEntity:
		return pkgerrors.CodeStateConflict
	case status == http.StatusTooManyRequests:
		return pkgerrors.CodeRateLimit
	case status >= 500:
		return pkgerrors.CodeDependency
	case status >= 400:
		return pkgerrors.CodeValidation
	default:
		return pkgerrors.CodeDependency
	}
}

// StatusError carries the HTTP status of a failed backend call.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend responded %d", e.Status)
}

func errorFromResponse(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
	message := FlattenMessage(raw)
	if message == "" {
		message = fmt.Sprintf("request failed with status %d", resp.StatusCode)
	}
	apiErr := pkgerrors.Wrap(CodeForStatus(resp.StatusCode), &StatusError{Status: resp.StatusCode, Body: string(raw)}, message)

	var details any
	if len(raw) > 0 && json.Unmarshal(raw, &details) == nil && details != nil {
		apiErr = apiErr.WithDetails(details)
	}
	return apiErr
}

// StatusOf returns the backend HTTP status behind err, or 0 when err did not
// come from a backend response.
func StatusOf(err error) int {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Status
	}
	return 0
}

// FlattenMessage extracts a readable message from an error body: the "error"
// field, then "detail", then a field-by-field join of validation errors.
// Non-JSON bodies yield "" so callers fall back to a generic message.
func FlattenMessage(body []byte) string {
	if len(strings.TrimSpace(string(body))) == 0 {
		return ""
	}
	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return ""
	}
	switch v := decoded.(type) {
	case map[string]any:
		if msg := textOf(v["error"]); msg != "" {
			return msg
		}
		if msg := textOf(v["detail"]); msg != "" {
			return msg
		}
		return joinFields("", v)
	default:
		return textOf(v)
	}
}

func joinFields(prefix string, fields map[string]any) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		name := key
		if prefix != "" {
			name = prefix + "." + key
		}
		var msg string
		if nested, ok := fields[key].(map[string]any); ok {
			msg = joinFields(name, nested)
			if msg != "" {
				parts = append(parts, msg)
			}
			continue
		}
		msg = textOf(fields[key])
		if msg == "" {
			continue
		}
		if key == nonFieldErrorsKey {
			parts = append(parts, msg)
			continue
		}
		parts = append(parts, name+": "+msg)
	}
	return strings.Join(parts, "; ")
}

func textOf(value any) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case []any:
		items := make([]string, 0, len(v))
		for _, item := range v {
			if text := textOf(item); text != "" {
				items = append(items, text)
			}
		}
		return strings.Join(items, ", ")
	case map[string]any:
		return joinFields("", v)
	default:
		return ""
	}
}

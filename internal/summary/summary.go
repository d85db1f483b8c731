// Package summary turns a context document of commits and diffs into a
// structured summary by asking a Gemini model, either through the gemini
// command-line tool or through the API directly.
package summary

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Stone-IT-Cloud/devreport/internal/log"
)

var (
	// ErrBackendUnavailable means the configured backend cannot be reached at all.
	ErrBackendUnavailable = errors.New("AI backend unavailable")
	// ErrMissingCredential means the API backend has no key or credentials file.
	ErrMissingCredential = errors.New("missing AI credential")
	// ErrNoResult means one summarization produced nothing usable. The run goes on
	// without a report row.
	ErrNoResult = errors.New("no summary result")
)

// rawPreviewLen bounds how much of an unparseable reply is echoed to the log.
const rawPreviewLen = 500

// Prompt is sent ahead of the context document.
const Prompt = `You are a data analysis and JSON extraction assistant. Your only job is to read the git commits and diffs that follow and return one strict JSON object.

The object must have exactly these keys:
- "projects": a list of the project or repository names that were worked on.
- "completed_summary": one concise technical paragraph describing the work completed, bugs fixed and features implemented.
- "next_steps": one sentence inferring the logical next steps from the code changes.

Return valid JSON only. Do not write an introduction, a conclusion or any analysis outside the object. Do not use markdown formatting or code fences.

INPUT DATA TO PROCESS:
`

// Summarizer submits a context document and returns its summary.
// contextPath names the scratch file holding the document.
type Summarizer interface {
	Name() string
	Summarize(ctx context.Context, contextPath string) (*Result, error)
}

// Result is the object the model is instructed to return. Missing keys decode
// to empty values.
type Result struct {
	Projects         Projects `json:"projects"`
	CompletedSummary Text     `json:"completed_summary"`
	NextSteps        Text     `json:"next_steps"`
}

// IsEmpty reports whether the result carries nothing worth writing.
func (r *Result) IsEmpty() bool {
	return r == nil || (len(r.Projects) == 0 && r.CompletedSummary == "" && r.NextSteps == "")
}

// Projects accepts either a JSON list or a single scalar; a scalar becomes a
// one-element list.
type Projects []string

// UnmarshalJSON implements json.Unmarshaler.
func (p *Projects) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*p = nil
		return nil
	}
	if len(data) > 0 && data[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		out := make(Projects, 0, len(items))
		for _, item := range items {
			if bytes.Equal(bytes.TrimSpace(item), []byte("null")) {
				continue
			}
			out = append(out, scalarString(item))
		}
		*p = out
		return nil
	}
	*p = Projects{scalarString(data)}
	return nil
}

// Text is a string field that tolerates a model answering with a list of
// sentences or a non-string scalar.
type Text string

// UnmarshalJSON implements json.Unmarshaler.
func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}
	if len(data) > 0 && data[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		parts := make([]string, 0, len(items))
		for _, item := range items {
			parts = append(parts, scalarString(item))
		}
		*t = Text(strings.Join(parts, " "))
		return nil
	}
	*t = Text(scalarString(data))
	return nil
}

// scalarString renders a JSON string as its value and anything else as its JSON text.
func scalarString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(raw))
}

// DecodeResponse parses a backend reply into a Result. Markdown code fences are
// stripped, and a top-level "response" envelope is unwrapped once, whether it
// holds the object itself or the object encoded as a JSON string.
func DecodeResponse(raw string) (*Result, error) {
	body := StripCodeFences(raw)

	var top map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &top); err != nil {
		return nil, fmt.Errorf("reply is not a JSON object: %w", err)
	}

	if inner, ok := top["response"]; ok {
		var encoded string
		if err := json.Unmarshal(inner, &encoded); err == nil {
			log.Debug("Unwrapped response envelope:\n%s", encoded)
			body = StripCodeFences(encoded)
		} else {
			body = string(inner)
		}
	}

	var result Result
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		return nil, fmt.Errorf("response is not a summary object: %w", err)
	}
	return &result, nil
}

// StripCodeFences removes a surrounding ```json ... ``` block, if any.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl != -1 && !strings.ContainsAny(s[:nl], "{[") {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// decodeOrWarn is the shared tail of both backends: a reply that does not decode
// is logged with a preview and reported as ErrNoResult.
func decodeOrWarn(raw string) (*Result, error) {
	result, err := DecodeResponse(raw)
	if err != nil {
		log.Warn("AI output was not valid JSON: %v", err)
		log.Warn("Raw Output start: %s", log.Truncate(strings.TrimSpace(raw), rawPreviewLen))
		return nil, fmt.Errorf("%w: %v", ErrNoResult, err)
	}
	if result.IsEmpty() {
		log.Warn("AI output has no projects, summary or next steps.")
		return nil, fmt.Errorf("%w: empty summary object", ErrNoResult)
	}
	return result, nil
}

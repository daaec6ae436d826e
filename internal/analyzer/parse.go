package analyzer

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ibeckermayer/hnpulse/internal/types"
)

const maxViewpoints = 5

var (
	// ErrMalformedResponse means the model reply could not be read as the
	// expected JSON object.
	ErrMalformedResponse = errors.New("malformed llm response")
	// ErrNoComments is returned when a perspective is requested for an empty discussion.
	ErrNoComments = errors.New("no comments to analyze")
)

// GenerationError reports a failed generation call.
type GenerationError struct {
	Kind string // "perspective" or "summary"
	Err  error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generate %s: %v", e.Kind, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// extractJSON returns the text between the first '{' and the last '}'.
func extractJSON(s string) (string, error) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end < start {
		return "", fmt.Errorf("%w: no JSON object in response", ErrMalformedResponse)
	}
	return s[start : end+1], nil
}

// percent accepts 40, 40.5, "40" and "40%".
type percent float64

func (p *percent) UnmarshalJSON(b []byte) error {
	var n float64
	if err := json.Unmarshal(b, &n); err == nil {
		*p = percent(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("support_percentage: %w", err)
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%")), 64)
	if err != nil {
		return fmt.Errorf("support_percentage %q: %w", s, err)
	}
	*p = percent(n)
	return nil
}

type rawPerspective struct {
	Title      string `json:"title"`
	Summary    string `json:"summary"`
	Sentiment  string `json:"sentiment"`
	Viewpoints []struct {
		Statement         string  `json:"statement"`
		SupportPercentage percent `json:"support_percentage"`
	} `json:"viewpoints"`
}

func parsePerspective(response string) (*types.Perspective, error) {
	jsonStr, err := extractJSON(response)
	if err != nil {
		return nil, err
	}

	var raw rawPerspective
	if err := json.Unmarshal([]byte(jsonStr), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if strings.TrimSpace(raw.Summary) == "" && len(raw.Viewpoints) == 0 {
		return nil, fmt.Errorf("%w: empty perspective", ErrMalformedResponse)
	}

	p := &types.Perspective{
		Title:      strings.TrimSpace(raw.Title),
		Summary:    strings.TrimSpace(raw.Summary),
		Sentiment:  strings.ToLower(strings.TrimSpace(raw.Sentiment)),
		Viewpoints: make([]types.Viewpoint, 0, len(raw.Viewpoints)),
	}
	for _, v := range raw.Viewpoints {
		if strings.TrimSpace(v.Statement) == "" {
			continue
		}
		if len(p.Viewpoints) == maxViewpoints {
			break
		}
		p.Viewpoints = append(p.Viewpoints, types.Viewpoint{
			Statement:         strings.TrimSpace(v.Statement),
			SupportPercentage: float64(v.SupportPercentage),
		})
	}
	return p, nil
}

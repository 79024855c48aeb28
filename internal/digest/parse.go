package digest

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	closingFence = regexp.MustCompile("```\\s*$")
	openingFence = regexp.MustCompile("```[A-Za-z]*\\s*$")

	errNoPayload = errors.New("no structured payload in reply")
)

// ParseDegradation explains why a reply yielded no cover card. It is not a
// failure: the digest still succeeds with the whole reply as its summary.
type ParseDegradation struct {
	Err error
}

func (d *ParseDegradation) Error() string {
	return fmt.Sprintf("cover card unavailable: %v", d.Err)
}

func (d *ParseDegradation) Unwrap() error { return d.Err }

// ParseResult is the split of a generated reply into narrative and cover
// card. Degradation is nil when a cover card was decoded.
type ParseResult struct {
	Summary     string
	CoverCard   map[string]any
	Degradation *ParseDegradation
}

// Degraded reports whether the reply carried no usable cover card.
func (r ParseResult) Degraded() bool { return r.Degradation != nil }

// ParseReply splits a reply into narrative and the object literal at its end.
// The payload starts at the last '{' in the text; when that does not decode
// (a nested object, say) earlier '{' positions are tried, nearest first.
func ParseReply(text string) ParseResult {
	var firstErr error
	for end := len(text); end > 0; {
		idx := strings.LastIndex(text[:end], "{")
		if idx < 0 {
			break
		}
		card, err := decodeCard(text[idx:])
		if err == nil {
			summary := openingFence.ReplaceAllString(text[:idx], "")
			return ParseResult{Summary: strings.TrimSpace(summary), CoverCard: card}
		}
		if firstErr == nil {
			firstErr = err
		}
		end = idx
	}

	if firstErr == nil {
		firstErr = errNoPayload
	}
	return ParseResult{
		Summary:     text,
		CoverCard:   map[string]any{},
		Degradation: &ParseDegradation{Err: firstErr},
	}
}

func decodeCard(region string) (map[string]any, error) {
	region = strings.TrimSpace(closingFence.ReplaceAllString(region, ""))
	var card map[string]any
	if err := json.Unmarshal([]byte(region), &card); err != nil {
		return nil, err
	}
	if card == nil {
		return nil, errNoPayload
	}
	return card, nil
}

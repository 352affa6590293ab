package provider

import (
	"context"
	"errors"

	"github.com/talkcircle/sentinel/internal/repository"
)

// ErrProviderUnavailable covers fetch timeouts and provider-side failures.
// The finalizer degrades to the accumulated transcript when it sees this.
var ErrProviderUnavailable = errors.New("transcript provider unavailable")

// Token is one unit of speech-to-text output.
type Token struct {
	Text      string  `json:"text"`
	Speaker   string  `json:"speaker"`
	StartTime float64 `json:"startTime"`
	EndTime   float64 `json:"endTime"`
	Language  string  `json:"language,omitempty"`
}

// TranscriptProvider fetches the authoritative final transcript for a
// session, identified by an external reference.
type TranscriptProvider interface {
	FetchTranscript(ctx context.Context, ref string) ([]Token, error)
}

// MergeTokens folds consecutive same-speaker tokens into segments. A speaker
// change closes the current segment; the segment's language is the first
// non-empty token language seen.
func MergeTokens(tokens []Token) []repository.Segment {
	var segments []repository.Segment
	for _, tok := range tokens {
		if tok.Speaker == "" {
			continue
		}
		if n := len(segments); n > 0 && segments[n-1].Speaker == tok.Speaker {
			current := &segments[n-1]
			if current.Text != "" && tok.Text != "" {
				current.Text += " "
			}
			current.Text += tok.Text
			if tok.EndTime > current.EndTime {
				current.EndTime = tok.EndTime
			}
			if current.Language == "" {
				current.Language = tok.Language
			}
			continue
		}
		segments = append(segments, repository.Segment{
			Speaker:   tok.Speaker,
			Text:      tok.Text,
			StartTime: tok.StartTime,
			EndTime:   tok.EndTime,
			Language:  tok.Language,
		})
	}
	return segments
}

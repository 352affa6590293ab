package session

import (
	"fmt"
	"strings"

	"github.com/talkcircle/sentinel/internal/repository"
)

func validateSegments(segments []repository.Segment) error {
	if len(segments) == 0 {
		return &InvalidSegmentError{Index: 0, Reason: "batch is empty"}
	}
	for i, seg := range segments {
		if strings.TrimSpace(seg.Speaker) == "" {
			return &InvalidSegmentError{Index: i, Reason: "speaker is required"}
		}
		if seg.StartTime < 0 {
			return &InvalidSegmentError{Index: i, Reason: "startTime must be non-negative"}
		}
		if seg.EndTime < seg.StartTime {
			return &InvalidSegmentError{Index: i, Reason: "endTime must not precede startTime"}
		}
	}
	return nil
}

func validateParticipationConfig(cfg *repository.ParticipationConfig) error {
	if cfg == nil {
		return nil
	}
	check := func(name string, v *float64) error {
		if v != nil && (*v < 0 || *v > 1) {
			return fmt.Errorf("%w: %s must be within [0,1], got %v", ErrInvalidConfig, name, *v)
		}
		return nil
	}
	if err := check("dominanceThreshold", cfg.DominanceThreshold); err != nil {
		return err
	}
	return check("silenceThreshold", cfg.SilenceThreshold)
}

package appendclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/talkcircle/sentinel/internal/repository"
)

// ErrRetriesExhausted is returned when the appender still hits a cursor
// conflict after its final attempt.
var ErrRetriesExhausted = errors.New("segment append retries exhausted")

// SegmentSender is the transport the appender retries over. SendSegments must
// surface cursor conflicts as *repository.CursorConflictError so the appender
// can realign its buffer.
type SegmentSender interface {
	SendSegments(ctx context.Context, sessionID string, fromIndex int, segments []repository.Segment) (*repository.Session, error)
}

// Policy controls the retry schedule. Delay for attempt n is
// BaseDelay * 2^n capped at MaxDelay, plus up to Jitter fraction of itself.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Jitter      float64
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 5,
		BaseDelay:   100 * time.Millisecond,
		MaxDelay:    2 * time.Second,
		Jitter:      0.2,
	}
}

// Appender submits segment batches and absorbs cursor conflicts on behalf of
// the caller. On a conflict it trusts the server's actual cursor: whatever
// prefix of the buffer the server already holds is dropped and the rest is
// resubmitted from the new position, so a retried batch can never commit
// twice.
type Appender struct {
	sender SegmentSender
	policy Policy
}

func NewAppender(sender SegmentSender, policy Policy) *Appender {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	return &Appender{sender: sender, policy: policy}
}

// Append sends segments expecting the session cursor to be at fromIndex.
// A nil error means every segment in the batch is durably committed, even if
// an earlier attempt committed part of it.
func (a *Appender) Append(ctx context.Context, sessionID string, fromIndex int, segments []repository.Segment) (*repository.Session, error) {
	buffer := append([]repository.Segment(nil), segments...)
	cursor := fromIndex

	var lastConflict *repository.CursorConflictError
	for attempt := 0; attempt < a.policy.MaxAttempts; attempt++ {
		if attempt > 0 {
			if err := a.sleep(ctx, attempt-1); err != nil {
				return nil, err
			}
		}

		sess, err := a.sender.SendSegments(ctx, sessionID, cursor, buffer)
		if err == nil {
			return sess, nil
		}
		var conflict *repository.CursorConflictError
		if !errors.As(err, &conflict) {
			return nil, err
		}
		lastConflict = conflict

		committed := conflict.Actual - cursor
		if committed < 0 {
			// The server cursor is behind our position: the session was
			// rewound or we are talking to the wrong session. Not recoverable
			// by resubmission.
			return nil, fmt.Errorf("server cursor %d behind local position %d: %w", conflict.Actual, cursor, err)
		}
		if committed >= len(buffer) {
			// The whole buffer landed on a previous attempt whose response we
			// never saw.
			slog.Debug("segment batch already committed", "session_id", sessionID, "cursor", conflict.Actual)
			return nil, nil
		}
		slog.Debug("cursor conflict; dropping committed prefix", "session_id", sessionID, "expected", conflict.Expected, "actual", conflict.Actual, "committed", committed)
		buffer = buffer[committed:]
		cursor = conflict.Actual
	}
	return nil, fmt.Errorf("%w: last conflict expected=%d actual=%d", ErrRetriesExhausted, lastConflict.Expected, lastConflict.Actual)
}

func (a *Appender) sleep(ctx context.Context, exponent int) error {
	delay := a.policy.BaseDelay << exponent
	if a.policy.MaxDelay > 0 && delay > a.policy.MaxDelay {
		delay = a.policy.MaxDelay
	}
	if a.policy.Jitter > 0 {
		delay += time.Duration(rand.Float64() * a.policy.Jitter * float64(delay))
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

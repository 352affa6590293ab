package httpapi

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/talkcircle/sentinel/internal/identity"
	"github.com/talkcircle/sentinel/internal/repository"
	"github.com/talkcircle/sentinel/internal/session"
)

const localsIdentity = "caller_identity"

// requireIdentity resolves the bearer token on every route before the
// handler runs.
func (s *Server) requireIdentity(c *fiber.Ctx) error {
	token := strings.TrimPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
	id, err := s.resolver.Resolve(c.UserContext(), token)
	if err != nil {
		if errors.Is(err, identity.ErrUnauthenticated) {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid or missing bearer token")
		}
		slog.Error("identity resolution failed", "error", err)
		return fiber.ErrBadGateway
	}
	c.Locals(localsIdentity, id)
	return c.Next()
}

func callerIdentity(c *fiber.Ctx) *identity.Identity {
	id, _ := c.Locals(localsIdentity).(*identity.Identity)
	return id
}

type createSessionRequest struct {
	Language            string                          `json:"language"`
	TopicPrompt         string                          `json:"topicPrompt"`
	TopicKeywords       []string                        `json:"topicKeywords"`
	ParticipationConfig *repository.ParticipationConfig `json:"participationConfig"`
}

func (s *Server) handleCreateSession(c *fiber.Ctx) error {
	var req createSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "request body is not valid JSON")
	}
	caller := callerIdentity(c)
	sess, err := s.sessions.CreateSession(c.UserContext(), caller.UserID, caller.DisplayName, session.CreateSessionInput{
		Language:            req.Language,
		TopicPrompt:         req.TopicPrompt,
		TopicKeywords:       req.TopicKeywords,
		ParticipationConfig: req.ParticipationConfig,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(sess)
}

// segmentRequest uses pointers for the timing fields so an absent field is
// distinguishable from an explicit zero.
type segmentRequest struct {
	Speaker   string   `json:"speaker"`
	Text      string   `json:"text"`
	StartTime *float64 `json:"startTime"`
	EndTime   *float64 `json:"endTime"`
	Language  string   `json:"language"`
}

type appendSegmentsRequest struct {
	FromIndex *int             `json:"fromIndex"`
	Segments  []segmentRequest `json:"segments"`
}

func (s *Server) handleAppendSegments(c *fiber.Ctx) error {
	var req appendSegmentsRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "request body is not valid JSON")
	}
	if req.FromIndex == nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "fromIndex is required")
	}
	segments := make([]repository.Segment, len(req.Segments))
	for i, seg := range req.Segments {
		if seg.StartTime == nil || seg.EndTime == nil {
			return fiber.NewError(fiber.StatusUnprocessableEntity, "startTime and endTime are required on every segment")
		}
		segments[i] = repository.Segment{
			Speaker:   seg.Speaker,
			Text:      seg.Text,
			StartTime: *seg.StartTime,
			EndTime:   *seg.EndTime,
			Language:  seg.Language,
		}
	}
	sess, err := s.sessions.AppendSegments(c.UserContext(), callerIdentity(c).UserID, c.Params("id"), *req.FromIndex, segments)
	if err != nil {
		return err
	}
	return c.JSON(sess)
}

type finalizeSessionRequest struct {
	DurationSeconds *float64 `json:"durationSeconds"`
	TranscriptRef   string   `json:"transcriptRef"`
}

func (s *Server) handleFinalizeSession(c *fiber.Ctx) error {
	var req finalizeSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "request body is not valid JSON")
	}
	if req.DurationSeconds == nil || *req.DurationSeconds < 0 {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "durationSeconds is required and must be non-negative")
	}
	sess, err := s.finalizer.FinalizeSession(c.UserContext(), callerIdentity(c).UserID, c.Params("id"), *req.DurationSeconds, req.TranscriptRef)
	if err != nil {
		return err
	}
	return c.JSON(sess)
}

func (s *Server) handleGetSession(c *fiber.Ctx) error {
	detail, err := s.sessions.GetSession(c.UserContext(), callerIdentity(c).UserID, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(detail)
}

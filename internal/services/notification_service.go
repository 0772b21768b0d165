// Package services – NotificationService
//
// This file implements the notification trigger pipeline and the ad-hoc admin
// fan-out path. A scheduled run evaluates every active trigger against the
// user base, writes one notification-log row per (trigger, matched user), and
// dispatches batched pushes to whatever device tokens exist. The log row is
// the contract: it is written whether or not a push-capable token exists, and
// push failure never suppresses it. "Users notified" therefore counts
// successful log writes, not deliveries.
//
// Per-user and per-trigger failures are isolated: they are collected into the
// run summary's error list with enough detail to retry manually and never
// abort processing of the remaining entities. Only malformed configuration
// (caught at config load, before this service exists) is fatal to a run.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/rs/zerolog/log"

	"github.com/fitstack/go-fitness-backend/internal/domain"
	"github.com/fitstack/go-fitness-backend/internal/push"
)

// BroadcastWeekday is the fixed day the weekly_summary trigger fires on.
const BroadcastWeekday = time.Monday

// noLoginWindow is the inactivity window for the no_login_3_days trigger.
// The comparison against the cutoff is strict: exactly three days of
// inactivity does not match, three days and one second does.
const noLoginWindow = 72 * time.Hour

// NotificationRepo defines the repository contract required by
// NotificationService.
type NotificationRepo interface {
	// GetProfile fetches a profile row (admin check, target validation).
	GetProfile(ctx context.Context, db *gorm.DB, userID string) (*domain.Profile, error)

	// ListActiveTriggers returns the triggers to evaluate this run.
	ListActiveTriggers(ctx context.Context, db *gorm.DB) ([]domain.NotificationTrigger, error)

	// ListUserIDs returns all user ids (broadcast triggers).
	ListUserIDs(ctx context.Context, db *gorm.DB) ([]string, error)

	// ListInactiveUserIDs returns users whose last login predates cutoff.
	ListInactiveUserIDs(ctx context.Context, db *gorm.DB, cutoff time.Time) ([]string, error)

	// ListUserIDsWithoutWorkoutSince returns users with no workout since.
	ListUserIDsWithoutWorkoutSince(ctx context.Context, db *gorm.DB, since time.Time) ([]string, error)

	// ListUserIDsWithoutMealSince returns users with no meal logged since.
	ListUserIDsWithoutMealSince(ctx context.Context, db *gorm.DB, since time.Time) ([]string, error)

	// ListUserIDsWithStreak returns users at exactly the given streak.
	ListUserIDsWithStreak(ctx context.Context, db *gorm.DB, streak int) ([]string, error)

	// ListDeviceTokens returns one user's registered push tokens.
	ListDeviceTokens(ctx context.Context, db *gorm.DB, userID string) ([]domain.DeviceToken, error)

	// CreateNotificationLog writes the durable per-user record.
	CreateNotificationLog(ctx context.Context, db *gorm.DB, l *domain.NotificationLog) error

	// MarkNotificationSent transitions a log row draft -> sent.
	MarkNotificationSent(ctx context.Context, db *gorm.DB, id string, at time.Time) error

	// CountNotifications returns one user's total log rows.
	CountNotifications(ctx context.Context, db *gorm.DB, userID string) (int64, error)

	// ListNotificationsPage returns a page of one user's log, newest first.
	ListNotificationsPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.NotificationLog, error)

	// NotificationStats returns aggregate log counts across all users.
	NotificationStats(ctx context.Context, db *gorm.DB) (total, sent int64, err error)
}

// Pusher dispatches push messages to the gateway. Implementations chunk to
// the gateway's batch limit internally.
type Pusher interface {
	Send(ctx context.Context, msgs []push.Message) (push.Report, error)
}

// RunError is one isolated failure inside a pipeline run, detailed enough to
// retry by hand: which user, which trigger, what went wrong.
type RunError struct {
	UserID      string `json:"user_id,omitempty"`
	TriggerType string `json:"trigger_type,omitempty"`
	Message     string `json:"message"`
}

// TriggerResult reports how many users one trigger matched.
type TriggerResult struct {
	TriggerID   string `json:"trigger_id"`
	TriggerType string `json:"trigger_type"`
	Matched     int    `json:"matched"`
}

// RunSummary is the report of one pipeline run.
type RunSummary struct {
	StartedAt         time.Time       `json:"started_at"`
	FinishedAt        time.Time       `json:"finished_at"`
	TriggersEvaluated int             `json:"triggers_evaluated"`
	Results           []TriggerResult `json:"results"`
	LogsWritten       int             `json:"logs_written"`
	PushBatches       int             `json:"push_batches"`
	Errors            []RunError      `json:"errors"`
}

// NotifyRequest is the payload of the ad-hoc admin fan-out. An empty UserID
// broadcasts to every user.
type NotifyRequest struct {
	UserID  string            `json:"user_id,omitempty"`
	Title   string            `json:"title"`
	Message string            `json:"message"`
	Type    string            `json:"type,omitempty"`
	Data    map[string]string `json:"data,omitempty"`
}

// NotifyResult reports the outcome of one ad-hoc fan-out.
type NotifyResult struct {
	NotificationID string     `json:"notification_id"`
	Recipients     int        `json:"recipients"`
	LogsWritten    int        `json:"logs_written"`
	PushBatches    int        `json:"push_batches"`
	Errors         []RunError `json:"errors,omitempty"`
}

// NotificationService owns the trigger pipeline and ad-hoc fan-out.
type NotificationService struct {
	DB   *gorm.DB
	Repo NotificationRepo
	Push Pusher

	// Now is a seam for tests; defaults to time.Now when nil.
	Now func() time.Time
}

func (s *NotificationService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// RunTriggers evaluates every active trigger once and fans out the matches.
// The returned error is non-nil only when the trigger list itself cannot be
// read; every downstream failure lands in the summary's error list instead.
func (s *NotificationService) RunTriggers(ctx context.Context) (*RunSummary, error) {
	tr := otel.Tracer("services/NotificationService")
	ctx, span := tr.Start(ctx, "RunTriggers")
	defer span.End()

	summary := &RunSummary{StartedAt: s.now()}

	triggers, err := s.Repo.ListActiveTriggers(ctx, s.DB)
	if err != nil {
		return nil, err
	}
	summary.TriggersEvaluated = len(triggers)

	for _, t := range triggers {
		users, err := s.matchUsers(ctx, t)
		if err != nil {
			summary.Errors = append(summary.Errors, RunError{
				TriggerType: t.TriggerType,
				Message:     err.Error(),
			})
			continue
		}
		users = dedupe(users)
		summary.Results = append(summary.Results, TriggerResult{
			TriggerID:   t.ID,
			TriggerType: t.TriggerType,
			Matched:     len(users),
		})

		for _, userID := range users {
			s.deliver(ctx, summary, t, userID)
		}
	}

	summary.FinishedAt = s.now()
	span.SetAttributes(
		attribute.Int("pipeline.triggers", summary.TriggersEvaluated),
		attribute.Int("pipeline.logs", summary.LogsWritten),
		attribute.Int("pipeline.errors", len(summary.Errors)),
	)
	log.Info().
		Int("triggers", summary.TriggersEvaluated).
		Int("logs_written", summary.LogsWritten).
		Int("push_batches", summary.PushBatches).
		Int("errors", len(summary.Errors)).
		Msg("notification pipeline run complete")
	return summary, nil
}

// deliver handles one (trigger, user) pair: log first, then best-effort push.
// Every failure is recorded and contained here so the caller's loop survives.
func (s *NotificationService) deliver(ctx context.Context, summary *RunSummary, t domain.NotificationTrigger, userID string) {
	triggerID := t.ID
	entry := &domain.NotificationLog{
		ID:        uuid.NewString(),
		UserID:    userID,
		TriggerID: &triggerID,
		Title:     t.Title,
		Message:   t.Message,
		Type:      t.Type,
		Status:    domain.NotificationDraft,
		CreatedAt: s.now(),
	}
	if err := s.Repo.CreateNotificationLog(ctx, s.DB, entry); err != nil {
		summary.Errors = append(summary.Errors, RunError{
			UserID:      userID,
			TriggerType: t.TriggerType,
			Message:     "log: " + err.Error(),
		})
		return
	}
	summary.LogsWritten++

	tokens, err := s.Repo.ListDeviceTokens(ctx, s.DB, userID)
	if err != nil {
		summary.Errors = append(summary.Errors, RunError{
			UserID:      userID,
			TriggerType: t.TriggerType,
			Message:     "tokens: " + err.Error(),
		})
		return
	}
	if len(tokens) == 0 {
		// No push-capable device; the log row is still the notification.
		s.markSent(ctx, summary, entry.ID, userID, t.TriggerType)
		return
	}

	msgs := make([]push.Message, 0, len(tokens))
	for _, tok := range tokens {
		msgs = append(msgs, push.Message{
			To:    tok.Token,
			Title: t.Title,
			Body:  t.Message,
			Data:  map[string]string{"type": t.Type, "trigger_id": t.ID},
		})
	}
	report, err := s.Push.Send(ctx, msgs)
	summary.PushBatches += report.Batches
	if err != nil {
		summary.Errors = append(summary.Errors, RunError{
			UserID:      userID,
			TriggerType: t.TriggerType,
			Message:     "push: " + err.Error(),
		})
		return
	}
	s.markSent(ctx, summary, entry.ID, userID, t.TriggerType)
}

func (s *NotificationService) markSent(ctx context.Context, summary *RunSummary, logID, userID, triggerType string) {
	if err := s.Repo.MarkNotificationSent(ctx, s.DB, logID, s.now()); err != nil {
		summary.Errors = append(summary.Errors, RunError{
			UserID:      userID,
			TriggerType: triggerType,
			Message:     "mark sent: " + err.Error(),
		})
	}
}

// matchUsers computes the target user set for one trigger.
func (s *NotificationService) matchUsers(ctx context.Context, t domain.NotificationTrigger) ([]string, error) {
	now := s.now()
	switch t.TriggerType {
	case domain.TriggerNoLogin3Days:
		return s.Repo.ListInactiveUserIDs(ctx, s.DB, now.Add(-noLoginWindow))
	case domain.TriggerNoWorkoutToday:
		return s.Repo.ListUserIDsWithoutWorkoutSince(ctx, s.DB, startOfDay(now))
	case domain.TriggerNoMealToday:
		return s.Repo.ListUserIDsWithoutMealSince(ctx, s.DB, startOfDay(now))
	case domain.TriggerWeeklySummary:
		if now.Weekday() != BroadcastWeekday {
			return nil, nil
		}
		return s.Repo.ListUserIDs(ctx, s.DB)
	case domain.TriggerDailyReminder:
		return s.Repo.ListUserIDs(ctx, s.DB)
	}
	if n, ok := domain.StreakMilestone(t.TriggerType); ok {
		return s.Repo.ListUserIDsWithStreak(ctx, s.DB, n)
	}
	return nil, ErrUnknownTriggerType
}

// Notify is the ad-hoc admin fan-out: a single-user or broadcast push issued
// from the dashboard. The actor's admin flag is verified before any other
// data is touched; the payload is validated before any write.
func (s *NotificationService) Notify(ctx context.Context, actorID string, req NotifyRequest) (*NotifyResult, error) {
	tr := otel.Tracer("services/NotificationService")
	ctx, span := tr.Start(ctx, "Notify",
		trace.WithAttributes(attribute.String("actor.id", actorID)),
	)
	defer span.End()

	actor, err := s.Repo.GetProfile(ctx, s.DB, actorID)
	if err != nil || !actor.IsAdmin {
		return nil, ErrNotAdmin
	}

	if !validNotifyRequest(req) {
		return nil, ErrInvalidNotification
	}
	if req.Type == "" {
		req.Type = "announcement"
	}

	var targets []string
	if req.UserID != "" {
		if _, err := s.Repo.GetProfile(ctx, s.DB, req.UserID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrProfileNotFound
			}
			return nil, err
		}
		targets = []string{req.UserID}
	} else {
		if targets, err = s.Repo.ListUserIDs(ctx, s.DB); err != nil {
			return nil, err
		}
	}

	result := &NotifyResult{
		NotificationID: uuid.NewString(),
		Recipients:     len(targets),
	}
	meta, _ := json.Marshal(map[string]string{
		"notification_id": result.NotificationID,
		"sent_by":         actorID,
	})

	for _, userID := range targets {
		entry := &domain.NotificationLog{
			ID:        uuid.NewString(),
			UserID:    userID,
			Title:     req.Title,
			Message:   req.Message,
			Type:      req.Type,
			Status:    domain.NotificationDraft,
			Metadata:  string(meta),
			CreatedAt: s.now(),
		}
		if err := s.Repo.CreateNotificationLog(ctx, s.DB, entry); err != nil {
			result.Errors = append(result.Errors, RunError{UserID: userID, Message: "log: " + err.Error()})
			continue
		}
		result.LogsWritten++

		tokens, err := s.Repo.ListDeviceTokens(ctx, s.DB, userID)
		if err != nil {
			result.Errors = append(result.Errors, RunError{UserID: userID, Message: "tokens: " + err.Error()})
			continue
		}
		if len(tokens) == 0 {
			s.markSentAdHoc(ctx, result, entry.ID, userID)
			continue
		}

		msgs := make([]push.Message, 0, len(tokens))
		data := map[string]string{"notification_id": result.NotificationID, "type": req.Type}
		for k, v := range req.Data {
			data[k] = v
		}
		for _, tok := range tokens {
			msgs = append(msgs, push.Message{To: tok.Token, Title: req.Title, Body: req.Message, Data: data})
		}
		report, err := s.Push.Send(ctx, msgs)
		result.PushBatches += report.Batches
		if err != nil {
			result.Errors = append(result.Errors, RunError{UserID: userID, Message: "push: " + err.Error()})
			continue
		}
		s.markSentAdHoc(ctx, result, entry.ID, userID)
	}

	return result, nil
}

func (s *NotificationService) markSentAdHoc(ctx context.Context, result *NotifyResult, logID, userID string) {
	if err := s.Repo.MarkNotificationSent(ctx, s.DB, logID, s.now()); err != nil {
		result.Errors = append(result.Errors, RunError{UserID: userID, Message: "mark sent: " + err.Error()})
	}
}

// ListPage returns a page of one user's notification log, newest first, plus
// the total count for pagination metadata.
func (s *NotificationService) ListPage(ctx context.Context, userID string, page, pageSize int) ([]domain.NotificationLog, int64, error) {
	tr := otel.Tracer("services/NotificationService")
	ctx, span := tr.Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := s.Repo.CountNotifications(ctx, s.DB, userID)
	if err != nil {
		return nil, 0, err
	}
	items, err := s.Repo.ListNotificationsPage(ctx, s.DB, userID, offset, pageSize)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// AuthorizeAdmin returns nil when actorID's profile carries the admin flag,
// ErrNotAdmin otherwise. An unreadable profile also denies.
func (s *NotificationService) AuthorizeAdmin(ctx context.Context, actorID string) error {
	actor, err := s.Repo.GetProfile(ctx, s.DB, actorID)
	if err != nil || !actor.IsAdmin {
		return ErrNotAdmin
	}
	return nil
}

// Stats returns aggregate log counts across all users. Admin only.
func (s *NotificationService) Stats(ctx context.Context, actorID string) (total, sent int64, err error) {
	tr := otel.Tracer("services/NotificationService")
	ctx, span := tr.Start(ctx, "Stats",
		trace.WithAttributes(attribute.String("user.id", actorID)),
	)
	defer span.End()

	if err := s.AuthorizeAdmin(ctx, actorID); err != nil {
		return 0, 0, err
	}
	return s.Repo.NotificationStats(ctx, s.DB)
}

// validNotifyRequest requires a non-blank title and message.
func validNotifyRequest(req NotifyRequest) bool {
	return strings.TrimSpace(req.Title) != "" && strings.TrimSpace(req.Message) != ""
}

// startOfDay truncates t to midnight in its own location.
func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// dedupe removes repeated ids while preserving first-seen order.
func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

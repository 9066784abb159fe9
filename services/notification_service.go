package services

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"scoutQuestAPI/internal/apperr"
	"scoutQuestAPI/internal/types/challenge"
	"scoutQuestAPI/internal/types/notification"
	"scoutQuestAPI/internal/types/submission"
)

// PushProvider delivers a notification to device tokens. Delivery is best
// effort; the stored notification is the source of truth.
type PushProvider interface {
	SendPush(ctx context.Context, tokens []notification.DeviceToken, title, body string, data map[string]any) error
}

type NotificationService struct {
	db           *pgxpool.Pool
	pushProvider PushProvider
}

func NewNotificationService(db *pgxpool.Pool) *NotificationService {
	return &NotificationService{db: db}
}

func (s *NotificationService) SetPushProvider(p PushProvider) {
	s.pushProvider = p
}

// NotifySubmissionPending tells every currently authorized validator that a
// submission awaits them: active-linked parents plus the group's leaders.
func (s *NotificationService) NotifySubmissionPending(ctx context.Context, sub *submission.Submission, c *challenge.Challenge) error {
	query := `
	SELECT pl.parent_id FROM parent_links pl WHERE pl.scout_id = $1 AND pl.active = TRUE
	UNION
	SELECT leader.id
	FROM users leader
	JOIN users scout ON scout.id = $1
	WHERE leader.role = 'leader' AND leader.group_id IS NOT NULL AND leader.group_id = scout.group_id
	`

	rows, err := s.db.Query(ctx, query, sub.ScoutID)
	if err != nil {
		return fmt.Errorf("failed to find validators: %w", err)
	}
	defer rows.Close()

	var validatorIDs []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("failed to scan validator id: %w", err)
		}
		validatorIDs = append(validatorIDs, id)
	}
	if err = rows.Err(); err != nil {
		return err
	}

	title := "Proof submitted"
	body := fmt.Sprintf("A submission for %q is waiting for validation.", c.Title)
	for _, validatorID := range validatorIDs {
		if err := s.create(ctx, validatorID, notification.TypeSubmissionPending, title, body, sub.ID); err != nil {
			log.Printf("NotifySubmissionPending: failed for validator %s: %v", validatorID, err)
		}
	}
	return nil
}

// NotifyValidationResult tells the scout their submission was accepted or
// rejected.
func (s *NotificationService) NotifyValidationResult(ctx context.Context, sub *submission.Submission, c *challenge.Challenge, accepted bool) error {
	var (
		notifType = notification.TypeSubmissionRejected
		title     = "Submission rejected"
		body      = fmt.Sprintf("Your proof for %q was rejected. You can try again.", c.Title)
	)
	if accepted {
		notifType = notification.TypeSubmissionAccepted
		title = "Challenge completed!"
		body = fmt.Sprintf("Your proof for %q was accepted. You earned %d points.", c.Title, c.PointValue)
	}
	return s.create(ctx, sub.ScoutID, notifType, title, body, sub.ID)
}

func (s *NotificationService) create(ctx context.Context, userID uuid.UUID, notifType notification.Type, title, body string, submissionID uuid.UUID) error {
	query := `
	INSERT INTO notifications (id, user_id, type, title, body, created_at)
	VALUES ($1, $2, $3, $4, $5, NOW())
	`
	_, err := s.db.Exec(ctx, query, uuid.New(), userID, notifType, title, body)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}

	if s.pushProvider != nil {
		tokens, err := s.deviceTokens(ctx, userID)
		if err != nil {
			log.Printf("Notification push skipped, token lookup failed for %s: %v", userID, err)
			return nil
		}
		if err := s.pushProvider.SendPush(ctx, tokens, title, body, map[string]any{
			"type":          string(notifType),
			"submission_id": submissionID.String(),
		}); err != nil {
			log.Printf("Notification push failed for %s: %v", userID, err)
		}
	}
	return nil
}

func (s *NotificationService) deviceTokens(ctx context.Context, userID uuid.UUID) ([]notification.DeviceToken, error) {
	rows, err := s.db.Query(ctx, `SELECT user_id, token, platform FROM user_devices WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []notification.DeviceToken
	for rows.Next() {
		var t notification.DeviceToken
		if err := rows.Scan(&t.UserID, &t.Token, &t.Platform); err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

func (s *NotificationService) List(ctx context.Context, clerkID string, limit int) ([]*notification.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	query := `
	SELECT n.id, n.user_id, n.type, n.title, n.body, n.read, n.created_at
	FROM notifications n
	JOIN users u ON u.id = n.user_id
	WHERE u.clerk_id = $1
	ORDER BY n.created_at DESC
	LIMIT $2
	`

	rows, err := s.db.Query(ctx, query, clerkID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var notifs []*notification.Notification
	for rows.Next() {
		n := &notification.Notification{}
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Body, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifs = append(notifs, n)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	if notifs == nil {
		notifs = []*notification.Notification{}
	}
	return notifs, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, clerkID string) (int, error) {
	var count int
	query := `
	SELECT COUNT(*)
	FROM notifications n
	JOIN users u ON u.id = n.user_id
	WHERE u.clerk_id = $1 AND n.read = FALSE
	`
	if err := s.db.QueryRow(ctx, query, clerkID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

func (s *NotificationService) MarkAsRead(ctx context.Context, notificationID uuid.UUID, clerkID string) error {
	query := `
	UPDATE notifications n
	SET read = TRUE
	FROM users u
	WHERE n.id = $1 AND n.user_id = u.id AND u.clerk_id = $2
	`
	result, err := s.db.Exec(ctx, query, notificationID, clerkID)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFoundf("no notification %s for this account", notificationID)
	}
	return nil
}

func (s *NotificationService) RegisterDevice(ctx context.Context, clerkID string, req *notification.RegisterDeviceRequest) error {
	if req.Token == "" {
		return apperr.InvalidArgumentf("device token is required")
	}

	query := `
	INSERT INTO user_devices (user_id, token, platform, created_at)
	SELECT u.id, $2, $3, NOW() FROM users u WHERE u.clerk_id = $1
	ON CONFLICT (user_id, token) DO UPDATE SET platform = $3
	`
	result, err := s.db.Exec(ctx, query, clerkID, req.Token, req.Platform)
	if err != nil {
		return fmt.Errorf("failed to register device: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFoundf("no account for clerk id %s", clerkID)
	}
	return nil
}

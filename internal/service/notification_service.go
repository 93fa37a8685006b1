package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/workspace-service/internal/config"
	"github.com/spec-kit/workspace-service/internal/events"
)

// NotificationSender delivers a message to a recipient. The email subsystem
// behind it is external to this service; the default sender only logs.
type NotificationSender interface {
	Send(ctx context.Context, recipient, subject, body string) error
}

// NotificationService forwards domain events to the notification sink.
type NotificationService struct {
	dispatcher events.Dispatcher
	sender     NotificationSender
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service. sender may be nil, in which
// case a logging sender is used.
func NewNotificationService(dispatcher events.Dispatcher, sender NotificationSender, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	if sender == nil {
		sender = &loggingSender{logger: logger}
	}
	return &NotificationService{
		dispatcher: dispatcher,
		sender:     sender,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventUserRegistered, n.handleUserRegistered)
	n.dispatcher.Subscribe(events.EventPasswordResetRequested, n.handlePasswordResetRequested)
	n.dispatcher.Subscribe(events.EventPasswordChanged, n.handlePasswordChanged)
	n.dispatcher.Subscribe(events.EventSessionFamilyRevoked, n.handleSessionFamilyRevoked)
	n.dispatcher.Subscribe(events.EventTaskAssigned, n.handleTaskAssigned)
}

func (n *NotificationService) handleUserRegistered(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.UserRegisteredPayload)
	if !ok {
		return nil
	}
	return n.send(ctx, payload.Email, "Welcome", "Your workspace account is ready.")
}

func (n *NotificationService) handlePasswordResetRequested(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.PasswordResetRequestedPayload)
	if !ok {
		return nil
	}
	return n.send(ctx, payload.Email, "Password reset", "Reset token: "+payload.ResetToken)
}

func (n *NotificationService) handlePasswordChanged(ctx context.Context, event events.Event) error {
	n.logger.Info("password changed", zap.String("subject_id", event.SubjectID))
	return nil
}

func (n *NotificationService) handleSessionFamilyRevoked(ctx context.Context, event events.Event) error {
	n.logger.Warn("session family revoked", zap.String("subject_id", event.SubjectID), zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) handleTaskAssigned(ctx context.Context, event events.Event) error {
	n.logger.Info("task assigned", zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) send(ctx context.Context, recipient, subject, body string) error {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return nil
	}
	return n.sender.Send(ctx, recipient, subject, body)
}

type loggingSender struct {
	logger *zap.Logger
}

func (s *loggingSender) Send(_ context.Context, recipient, subject, _ string) error {
	s.logger.Debug("notification",
		zap.String("recipient", recipient),
		zap.String("subject", subject))
	return nil
}

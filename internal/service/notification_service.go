package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/events"
)

// NotificationService handles emitting notifications for domain events.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleTicketChanged)
	n.dispatcher.Subscribe(events.EventTicketDeadlineChanged, n.handleTicketChanged)
	n.dispatcher.Subscribe(events.EventMessagePosted, n.handleMessagePosted)
	n.dispatcher.Subscribe(events.EventAccountRoleChanged, n.handleRoleChanged)
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	n.logEvent("TicketCreated", event)
	n.sendEmailNotificationStub(ctx, event)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleTicketChanged(ctx context.Context, event events.Event) error {
	n.logEvent("TicketChanged", event)
	n.sendEmailNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleMessagePosted(ctx context.Context, event events.Event) error {
	n.logEvent("MessagePosted", event)
	return nil
}

func (n *NotificationService) handleRoleChanged(ctx context.Context, event events.Event) error {
	n.logEvent("AccountRoleChanged", event)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) logEvent(name string, event events.Event) {
	n.logger.Info(name,
		zap.String("event_id", event.ID),
		zap.Int64("subject_id", event.SubjectID),
		zap.Int64("actor_id", event.Actor.AccountID),
		zap.String("actor_role", string(event.Actor.Role)),
		zap.Any("payload", event.Payload))
}

func (n *NotificationService) sendEmailNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.Int64("subject_id", event.SubjectID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.Int64("subject_id", event.SubjectID),
		zap.String("event_type", string(event.Type)))
}

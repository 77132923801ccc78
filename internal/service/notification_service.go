package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/account-service/internal/config"
	"github.com/spec-kit/account-service/internal/domain"
	"github.com/spec-kit/account-service/internal/events"
)

const maxOutbox = 256

// Delivery records one simulated send on a channel.
type Delivery struct {
	EventID   string
	UserID    string
	Channel   domain.Channel
	Recipient string
	Message   string
	SentAt    time.Time
}

// RecipientLookup resolves the user a notification is addressed to.
type RecipientLookup interface {
	User(id string) (domain.User, bool)
}

// NotificationService fans notification events out to the channels each
// recipient has enabled. Nothing leaves the process: sends are logged and kept
// in a bounded in-memory outbox.
type NotificationService struct {
	dispatcher events.Dispatcher
	users      RecipientLookup
	logger     *zap.Logger
	cfg        config.NotificationConfig

	mu     sync.Mutex
	outbox []Delivery
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, users RecipientLookup, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		users:      users,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventUserSuspended, n.handleUserSuspended)
	n.dispatcher.Subscribe(events.EventSuspensionLifted, n.handleNotification)
	n.dispatcher.Subscribe(events.EventNotificationAdded, n.handleNotification)
	n.dispatcher.Subscribe(events.EventUserRegistered, n.handleUserRegistered)
}

// Outbox returns the simulated deliveries, oldest first.
func (n *NotificationService) Outbox() []Delivery {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Delivery(nil), n.outbox...)
}

func (n *NotificationService) handleUserSuspended(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.UserSuspendedPayload)
	if !ok {
		return nil
	}
	n.logger.Info("UserSuspended", zap.String("user_id", event.UserID), zap.String("until", payload.Until))
	n.deliver(ctx, event, payload.Message)
	return nil
}

func (n *NotificationService) handleNotification(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.NotificationPayload)
	if !ok {
		return nil
	}
	n.logger.Info(string(event.Type), zap.String("user_id", event.UserID), zap.String("notification_id", payload.NotificationID))
	n.deliver(ctx, event, payload.Message)
	return nil
}

func (n *NotificationService) handleUserRegistered(_ context.Context, event events.Event) error {
	n.logger.Info("UserRegistered", zap.String("user_id", event.UserID), zap.String("actor_id", event.ActorID))
	return nil
}

func (n *NotificationService) deliver(ctx context.Context, event events.Event, message string) {
	user, ok := n.users.User(event.UserID)
	if !ok {
		n.logger.Debug("notification recipient gone", zap.String("user_id", event.UserID))
		return
	}
	for _, ch := range user.Preferences.EnabledChannels() {
		switch ch {
		case domain.ChannelPush:
			n.sendPushNotificationStub(ctx, event, user, message)
		case domain.ChannelEmail:
			n.sendEmailNotificationStub(ctx, event, user, message)
		case domain.ChannelSMS:
			n.sendSMSNotificationStub(ctx, event, user, message)
		}
	}
}

func (n *NotificationService) sendPushNotificationStub(_ context.Context, event events.Event, user domain.User, message string) {
	if strings.TrimSpace(n.cfg.PushTopic) == "" {
		return
	}
	n.logger.Debug("sendPushNotificationStub",
		zap.String("topic", n.cfg.PushTopic),
		zap.String("user_id", user.ID),
		zap.String("event_type", string(event.Type)))
	n.record(event, user.ID, domain.ChannelPush, n.cfg.PushTopic, message)
}

func (n *NotificationService) sendEmailNotificationStub(_ context.Context, event events.Event, user domain.User, message string) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" || user.Email == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("to", user.Email),
		zap.String("event_type", string(event.Type)))
	n.record(event, user.ID, domain.ChannelEmail, user.Email, message)
}

func (n *NotificationService) sendSMSNotificationStub(_ context.Context, event events.Event, user domain.User, message string) {
	if strings.TrimSpace(n.cfg.SMSFrom) == "" || user.Phone == "" {
		return
	}
	n.logger.Debug("sendSMSNotificationStub",
		zap.String("from", n.cfg.SMSFrom),
		zap.String("to", user.Phone),
		zap.String("event_type", string(event.Type)))
	n.record(event, user.ID, domain.ChannelSMS, user.Phone, message)
}

func (n *NotificationService) record(event events.Event, userID string, ch domain.Channel, recipient, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.outbox = append(n.outbox, Delivery{
		EventID:   event.ID,
		UserID:    userID,
		Channel:   ch,
		Recipient: recipient,
		Message:   message,
		SentAt:    event.Timestamp,
	})
	if len(n.outbox) > maxOutbox {
		n.outbox = append([]Delivery(nil), n.outbox[len(n.outbox)-maxOutbox:]...)
	}
}

package service

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	fcm "firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// PushSender delivers out-of-app notifications, used when a run finishes or
// parks itself waiting for a resume while the reader is away.
type PushSender interface {
	Send(ctx context.Context, tokens []string, title, body string, data map[string]string) error
}

type noopPushSender struct {
	logger *zap.Logger
}

// NewNoopPushSender returns a sender that only logs. Used when FCM
// credentials are not configured.
func NewNoopPushSender(logger *zap.Logger) PushSender {
	return &noopPushSender{logger: logger.Named("NoopPushSender")}
}

func (s *noopPushSender) Send(_ context.Context, tokens []string, title, body string, _ map[string]string) error {
	s.logger.Debug("Push sending skipped (FCM not configured)",
		zap.Int("token_count", len(tokens)),
		zap.String("title", title),
		zap.String("body", body),
	)
	return nil
}

type fcmPushSender struct {
	client *fcm.Client
	logger *zap.Logger
}

// NewFCMPushSender builds a sender backed by Firebase Cloud Messaging.
// credentialsPath points at a service account key file; when it is empty the
// caller should fall back to NewNoopPushSender.
func NewFCMPushSender(ctx context.Context, credentialsPath string, logger *zap.Logger) (PushSender, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsPath))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase App from '%s': %w", credentialsPath, err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get FCM messaging client: %w", err)
	}

	logger.Info("FCM push sender initialized", zap.String("credentials_path", credentialsPath))
	return &fcmPushSender{
		client: client,
		logger: logger.Named("FCMPushSender"),
	}, nil
}

func (s *fcmPushSender) Send(ctx context.Context, tokens []string, title, body string, data map[string]string) error {
	if len(tokens) == 0 {
		return nil
	}

	message := &fcm.MulticastMessage{
		Tokens: tokens,
		Notification: &fcm.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
		Android: &fcm.AndroidConfig{
			Priority: "high",
		},
	}

	br, err := s.client.SendMulticast(ctx, message)
	if err != nil {
		s.logger.Error("FCM SendMulticast call failed", zap.Error(err))
		return fmt.Errorf("failed to send FCM message: %w", err)
	}

	if br.FailureCount > 0 {
		for idx, resp := range br.Responses {
			if resp.Success {
				continue
			}
			token := "unknown"
			if idx < len(tokens) {
				token = tokens[idx]
			}
			if fcm.IsUnregistered(resp.Error) || fcm.IsSenderIDMismatch(resp.Error) || fcm.IsInvalidArgument(resp.Error) {
				s.logger.Warn("Invalid or unregistered FCM token",
					zap.String("token", token),
					zap.Error(resp.Error),
				)
			} else {
				s.logger.Error("FCM delivery failed for token",
					zap.String("token", token),
					zap.Error(resp.Error),
				)
			}
		}
		return fmt.Errorf("failed to deliver %d of %d FCM messages", br.FailureCount, len(tokens))
	}

	return nil
}

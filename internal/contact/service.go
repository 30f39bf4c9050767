// Package contact validates, stores and forwards contact form submissions.
package contact

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"portfolio-site-api/internal/apperrors"
	"portfolio-site-api/internal/logger"
	"portfolio-site-api/internal/models"
)

const (
	MsgSent           = "Thank you for reaching out. I'll get back to you soon."
	msgDeliveryFailed = "Failed to send message. Please try again later."
)

type Store interface {
	InsertContactMessage(ctx context.Context, msg *models.ContactMessage) error
}

type Service struct {
	store     Store
	mailer    Mailer
	recipient string
	log       *zap.Logger
}

// NewService wires the contact flow. mailer may be nil, in which case
// submissions are only stored.
func NewService(store Store, mailer Mailer, recipient string) *Service {
	return &Service{
		store:     store,
		mailer:    mailer,
		recipient: recipient,
		log:       logger.WithModule("contact"),
	}
}

// Submit validates the form, stores it and mails it to the site owner.
func (s *Service) Submit(ctx context.Context, in Submission) (*models.ContactMessage, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}
	in = in.Normalize()

	msg := &models.ContactMessage{Name: in.Name, Email: in.Email, Message: in.Message}
	if err := s.store.InsertContactMessage(ctx, msg); err != nil {
		s.log.Error("storing contact message", zap.Error(err))
		return nil, deliveryFailed(err)
	}

	if s.mailer == nil || s.recipient == "" {
		return msg, nil
	}
	err := s.mailer.Send(ctx, Email{
		To:      s.recipient,
		ReplyTo: in.Email,
		Subject: fmt.Sprintf("New message from %s", in.Name),
		Body:    fmt.Sprintf("Name: %s\r\nEmail: %s\r\n\r\n%s", in.Name, in.Email, in.Message),
	})
	switch {
	case err == nil:
		s.log.Info("contact message delivered", zap.String("id", msg.ID))
	case errors.Is(err, ErrMailDisabled):
		s.log.Debug("mail delivery disabled, message stored only", zap.String("id", msg.ID))
	default:
		s.log.Error("mailing contact message", zap.String("id", msg.ID), zap.Error(err))
		return nil, deliveryFailed(err)
	}
	return msg, nil
}

func deliveryFailed(err error) *apperrors.AppError {
	return &apperrors.AppError{
		Kind:       apperrors.KindRemoteWrite,
		Message:    msgDeliveryFailed,
		StatusCode: http.StatusBadGateway,
		Internal:   err,
	}
}

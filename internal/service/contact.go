package service

import (
	"context"
	"fmt"

	"storefront/internal/models"
	"storefront/internal/util"

	"go.uber.org/zap"
)

// ContactService forwards support requests
type ContactService struct {
	api    ContactAPI
	logger *zap.Logger
}

func NewContactService(api ContactAPI) *ContactService {
	return &ContactService{api: api, logger: util.GetLogger()}
}

// Send validates and submits a contact message
func (s *ContactService) Send(ctx context.Context, msg *models.ContactMessage) error {
	ctx, span := util.StartSpan(ctx, "ContactService.Send")
	defer span.End()

	if err := msg.Validate(); err != nil {
		return invalid(err)
	}
	if err := s.api.SendContactMessage(ctx, msg); err != nil {
		return fmt.Errorf("failed to send contact message: %w", err)
	}

	s.logger.Info("Contact message sent", zap.String("email", msg.Email))
	return nil
}

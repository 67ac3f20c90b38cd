package service

import (
	"context"
	"fmt"
	"time"

	"storefront/internal/cache"
	"storefront/internal/gateway"
	"storefront/internal/models"
	"storefront/internal/util"

	"go.uber.org/zap"
)

// ReviewService reads and writes product reviews
type ReviewService struct {
	api     ReviewAPI
	session *gateway.Session
	caches  *cache.Store
	logger  *zap.Logger
}

func NewReviewService(api ReviewAPI, session *gateway.Session, caches *cache.Store) *ReviewService {
	return &ReviewService{
		api:     api,
		session: session,
		caches:  caches,
		logger:  util.GetLogger(),
	}
}

// Load fetches the reviews of a product, newest first
func (s *ReviewService) Load(ctx context.Context, productID string) ([]models.Review, error) {
	ctx, span := util.StartSpan(ctx, "ReviewService.Load")
	defer span.End()

	return s.caches.Reviews.Load(ctx, productID, func(ctx context.Context) ([]models.Review, error) {
		return s.api.ListReviews(ctx, productID)
	})
}

// Create posts a review by the signed-in user
func (s *ReviewService) Create(ctx context.Context, productID string, rating int, body string) (*models.Review, error) {
	ctx, span := util.StartSpan(ctx, "ReviewService.Create")
	defer span.End()

	if !s.session.Authenticated() {
		return nil, ErrNotSignedIn
	}
	review := &models.Review{
		ProductID: productID,
		UserID:    s.session.UserID(),
		Rating:    rating,
		Body:      body,
	}
	if err := review.Validate(); err != nil {
		return nil, invalid(err)
	}

	created, err := s.api.CreateReview(ctx, review)
	if err != nil {
		return nil, fmt.Errorf("failed to create review: %w", err)
	}
	if created.CreatedAt.IsZero() {
		created.CreatedAt = time.Now().UTC()
	}
	if s.caches.Reviews.ProductID() == productID {
		s.caches.Reviews.ApplyCreate(*created)
	}

	s.logger.Info("Review created", zap.String("product_id", productID), zap.String("review_id", created.ID))
	return created, nil
}

// Delete removes one of the signed-in user's own reviews. Ownership is
// checked against the cached review before any request is sent.
func (s *ReviewService) Delete(ctx context.Context, reviewID string) error {
	ctx, span := util.StartSpan(ctx, "ReviewService.Delete")
	defer span.End()

	if !s.session.Authenticated() {
		return ErrNotSignedIn
	}
	review, ok := s.caches.Reviews.Find(reviewID)
	if !ok {
		return invalid(fmt.Errorf("%w: %s", ErrReviewNotFound, reviewID))
	}
	if review.UserID != s.session.UserID() {
		return invalid(ErrNotReviewOwner)
	}

	if err := s.api.DeleteReview(ctx, reviewID); err != nil {
		return fmt.Errorf("failed to delete review: %w", err)
	}
	s.caches.Reviews.ApplyDelete(reviewID)

	s.logger.Info("Review deleted", zap.String("review_id", reviewID))
	return nil
}

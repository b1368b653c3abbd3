package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"earnify/domain/apperrors"
	"earnify/domain/entities"
	"earnify/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

var errDuplicatePostback = errors.New("postback already settled")

// PostbackRequest carries the raw query parameters of a network callback
type PostbackRequest struct {
	UserID  string
	Reward  string
	OfferID string
	Secret  string
	TxID    string
}

// PostbackResult is the outcome of an accepted postback
type PostbackResult struct {
	Duplicate bool
	Ledger    *LedgerResult
}

// PostbackService credits conversions reported by the offer network
type PostbackService struct {
	ledger  *LedgerService
	secret  string
	metrics Metrics
}

// NewPostbackService creates a new postback service
func NewPostbackService(ledger *LedgerService, secret string, metrics Metrics) *PostbackService {
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	return &PostbackService{
		ledger:  ledger,
		secret:  secret,
		metrics: metrics,
	}
}

// HandlePostback verifies the shared secret and credits the reward to pending_balance.
// A repeated (userId, offerId, txId) is acknowledged without a second credit.
func (s *PostbackService) HandlePostback(ctx context.Context, req PostbackRequest) (*PostbackResult, error) {
	if s.secret == "" || subtle.ConstantTimeCompare([]byte(req.Secret), []byte(s.secret)) != 1 {
		s.metrics.RecordPostback(ctx, "forbidden")
		return nil, apperrors.Forbidden("invalid postback secret")
	}

	userID, err := parsePositive(req.UserID)
	if err != nil {
		s.metrics.RecordPostback(ctx, "bad_request")
		return nil, apperrors.BadRequest("userId must be a positive integer")
	}
	reward, err := parsePositive(req.Reward)
	if err != nil {
		s.metrics.RecordPostback(ctx, "bad_request")
		return nil, apperrors.BadRequest("reward must be a positive integer")
	}

	offerLabel := req.OfferID
	if offerLabel == "" {
		offerLabel = "Portal Offer"
	}

	storeReceipt := func(ctx context.Context, uow interfaces.UnitOfWork, ac *AtomicContext) error {
		inserted, err := uow.PostbackReceiptRepository().Insert(ctx, &entities.PostbackReceipt{
			UserID:        userID,
			OfferID:       req.OfferID,
			NetworkTxID:   req.TxID,
			Reward:        reward,
			TransactionID: ac.Transaction.ID,
		})
		if err != nil {
			return fmt.Errorf("failed to store postback receipt: %w", err)
		}
		if !inserted {
			return errDuplicatePostback
		}
		return nil
	}

	result, err := s.ledger.ApplyBalanceDelta(ctx, BalanceDelta{
		UserID:      userID,
		Amount:      reward,
		Field:       entities.FieldPendingBalance,
		Category:    entities.CategoryCPAReward,
		Status:      entities.StatusPending,
		Description: "CPA Task Complete: " + offerLabel,
		Metadata: map[string]any{
			"offerId": req.OfferID,
			"txId":    req.TxID,
		},
	}, storeReceipt)
	if errors.Is(err, errDuplicatePostback) {
		log.WithFields(log.Fields{
			"userId":  userID,
			"offerId": req.OfferID,
			"txId":    req.TxID,
		}).Warn("Duplicate postback ignored")
		s.metrics.RecordPostback(ctx, "duplicate")
		return &PostbackResult{Duplicate: true}, nil
	}
	if err != nil {
		s.metrics.RecordPostback(ctx, "rejected")
		return nil, err
	}

	s.metrics.RecordPostback(ctx, "credited")
	return &PostbackResult{Ledger: result}, nil
}

func parsePositive(raw string) (int64, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, err
	}
	if v <= 0 {
		return 0, fmt.Errorf("value %d is not positive", v)
	}
	return v, nil
}

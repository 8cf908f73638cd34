package services

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/mapsmyway/heli-backend/internal/database"
	"github.com/mapsmyway/heli-backend/internal/models"
	"github.com/mapsmyway/heli-backend/pkg/razorpay"
)

// ProviderRazorpay is the payment provider identifier stored on payment rows
const ProviderRazorpay = "razorpay"

// PaymentGateway is the provider surface the payment service needs. Satisfied
// by *razorpay.Client; tests substitute a fake.
type PaymentGateway interface {
	IsConfigured() bool
	KeyID() string
	CreateOrder(req *razorpay.OrderRequest) (*razorpay.Order, error)
	CreateRefund(providerPaymentID string, req *razorpay.RefundRequest) (*razorpay.Refund, error)
	VerifyCheckoutSignature(orderID, paymentID, signature string) bool
	VerifyWebhookSignature(body []byte, signature string) bool
}

// PaymentService orders, settles and refunds payments. Settlement arrives on
// two channels, buyer-relayed verification and provider webhooks, and both
// funnel through the same transition under a payment row lock, so whichever
// channel arrives second observes the first channel's outcome and no-ops.
type PaymentService struct {
	paymentRepo  *database.PaymentRepository
	bookingRepo  *database.BookingRepository
	operatorRepo *database.OperatorRepository
	auditService *AuditService
	gateway      PaymentGateway
	logger       *logrus.Logger
}

// NewPaymentService creates a new payment service
func NewPaymentService(
	paymentRepo *database.PaymentRepository,
	bookingRepo *database.BookingRepository,
	operatorRepo *database.OperatorRepository,
	auditService *AuditService,
	gateway PaymentGateway,
	logger *logrus.Logger,
) *PaymentService {
	return &PaymentService{
		paymentRepo:  paymentRepo,
		bookingRepo:  bookingRepo,
		operatorRepo: operatorRepo,
		auditService: auditService,
		gateway:      gateway,
		logger:       logger,
	}
}

// minorUnits converts a major-unit amount to the provider's integer minor
// unit (e.g. rupees to paise)
func minorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// CreateOrder opens a provider order for a pending booking. A booking has at
// most one payment row; retrying after an abandoned or failed checkout reuses
// that row with a fresh provider order instead of inserting a duplicate.
func (s *PaymentService) CreateOrder(actor Actor, req *models.CreateOrderRequest, meta RequestMeta) (*models.CreateOrderResponse, error) {
	if !s.gateway.IsConfigured() {
		return nil, models.NewProviderError("payment gateway not configured", nil)
	}

	booking, err := s.bookingRepo.GetBookingByID(req.BookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, models.NewNotFound("booking not found")
	}
	if booking.UserID != actor.ID && actor.Role != models.RoleAdmin {
		return nil, models.NewForbidden("not allowed to pay for this booking")
	}
	if booking.Status != models.BookingStatusPending {
		return nil, models.NewInvalidState(fmt.Sprintf("booking is %s, payment order requires a pending booking", booking.Status))
	}
	if !booking.HoldActive(time.Now()) {
		return nil, models.NewInvalidState("booking hold has expired, reserve again")
	}

	existing, err := s.paymentRepo.GetPaymentByBookingID(booking.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil && (existing.Status == models.PaymentStatusPaid || existing.Status == models.PaymentStatusRefunded) {
		return nil, models.NewInvalidState("booking already has a settled payment")
	}

	order, err := s.gateway.CreateOrder(&razorpay.OrderRequest{
		Amount:   minorUnits(booking.Amount),
		Currency: booking.Currency,
		Receipt:  fmt.Sprintf("booking_%s", booking.ID),
		Notes: map[string]string{
			"booking_id": booking.ID.String(),
			"user_id":    booking.UserID.String(),
		},
	})
	if err != nil {
		return nil, models.NewProviderError("failed to create payment order", err)
	}

	var payment *models.Payment
	if existing != nil {
		if err := s.paymentRepo.ResetPaymentOrder(existing.ID, order.ID); err != nil {
			return nil, err
		}
		existing.ProviderOrderID = &order.ID
		existing.Status = models.PaymentStatusCreated
		payment = existing
	} else {
		payment = &models.Payment{
			BookingID:       booking.ID,
			Provider:        ProviderRazorpay,
			ProviderOrderID: &order.ID,
			Status:          models.PaymentStatusCreated,
			Amount:          booking.Amount,
			Currency:        booking.Currency,
		}
		if err := s.paymentRepo.CreatePayment(payment); err != nil {
			return nil, err
		}
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"payment_id": payment.ID,
		"order_id":   order.ID,
		"amount":     booking.Amount,
	}).Info("Payment order created")

	s.auditService.LogPayment(&actor.ID, models.AuditActionOrderCreated, &payment.ID, map[string]interface{}{
		"booking_id": booking.ID.String(),
		"order_id":   order.ID,
		"amount":     booking.Amount,
	}, meta)

	return &models.CreateOrderResponse{
		PaymentID: payment.ID,
		OrderID:   order.ID,
		Amount:    booking.Amount,
		Currency:  booking.Currency,
		KeyID:     s.gateway.KeyID(),
	}, nil
}

// VerifyPayment settles a payment from the buyer-relayed checkout result.
// The signature is checked before any state is touched; an invalid signature
// leaves payment and booking exactly as they were. Re-verifying an
// already-paid payment returns success without a second transition.
func (s *PaymentService) VerifyPayment(actor Actor, req *models.VerifyPaymentRequest, meta RequestMeta) (*models.Payment, error) {
	if !s.gateway.VerifyCheckoutSignature(req.OrderID, req.PaymentID, req.Signature) {
		s.logger.WithFields(logrus.Fields{
			"booking_id": req.BookingID,
			"order_id":   req.OrderID,
		}).Warn("Checkout signature rejected")
		s.auditService.LogPayment(&actor.ID, models.AuditActionSignatureRejected, nil, map[string]interface{}{
			"booking_id": req.BookingID.String(),
			"order_id":   req.OrderID,
			"channel":    "verify",
		}, meta)
		return nil, models.NewSignatureInvalid("invalid payment signature")
	}

	tx, err := s.paymentRepo.BeginTx()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	payment, err := s.paymentRepo.GetPaymentForUpdate(tx, req.BookingID, req.OrderID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, models.NewNotFound("payment not found for booking and order")
	}

	if payment.Status == models.PaymentStatusPaid {
		// The webhook already settled this payment; acknowledge without a
		// second transition.
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit: %w", err)
		}
		return payment, nil
	}
	if payment.Status == models.PaymentStatusRefunded {
		return nil, models.NewInvalidState("payment already refunded")
	}

	if err := s.settle(tx, payment, req.PaymentID, req.Signature); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit settlement: %w", err)
	}

	payment.Status = models.PaymentStatusPaid
	payment.ProviderPaymentID = &req.PaymentID

	s.logger.WithFields(logrus.Fields{
		"booking_id": req.BookingID,
		"payment_id": payment.ID,
		"channel":    "verify",
	}).Info("Payment settled")

	s.auditService.LogPayment(&actor.ID, models.AuditActionPaymentVerified, &payment.ID, map[string]interface{}{
		"booking_id":          req.BookingID.String(),
		"provider_payment_id": req.PaymentID,
	}, meta)

	return payment, nil
}

// settle is the single paid transition both settlement channels go through.
// Callers hold the payment row lock.
func (s *PaymentService) settle(tx *sqlx.Tx, payment *models.Payment, providerPaymentID, signature string) error {
	if err := s.paymentRepo.MarkPaymentPaid(tx, payment.ID, providerPaymentID, signature); err != nil {
		return err
	}
	if err := s.bookingRepo.MarkBookingPaid(tx, payment.BookingID, payment.ID); err != nil {
		return err
	}
	return nil
}

// HandleWebhook processes a provider webhook delivery. The signature is
// checked over the raw body before anything else. Once the signature passes,
// the delivery is always acknowledged: unknown correlations and duplicate
// deliveries are logged and dropped so the provider does not retry forever.
func (s *PaymentService) HandleWebhook(body []byte, signature string, meta RequestMeta) error {
	if !s.gateway.VerifyWebhookSignature(body, signature) {
		s.logger.Warn("Webhook signature rejected")
		s.auditService.LogPayment(nil, models.AuditActionSignatureRejected, nil, map[string]interface{}{
			"channel": "webhook",
		}, meta)
		return models.NewSignatureInvalid("invalid webhook signature")
	}

	event, err := razorpay.ParseWebhookEvent(body)
	if err != nil {
		return models.NewValidationError(err.Error())
	}

	var rawEvent models.JSONB
	if err := json.Unmarshal(body, &rawEvent); err != nil {
		rawEvent = models.JSONB{"event": event.Event}
	}

	s.logger.WithField("event", event.Event).Info("Webhook received")

	switch event.Event {
	case razorpay.EventPaymentCaptured:
		return s.handlePaymentCaptured(event, rawEvent, meta)
	case razorpay.EventPaymentFailed:
		return s.handlePaymentFailed(event, rawEvent)
	case razorpay.EventRefundCreated, razorpay.EventRefundProcessed:
		return s.handleRefundEvent(event, rawEvent, meta)
	default:
		s.logger.WithField("event", event.Event).Info("Ignoring unhandled webhook event")
		return nil
	}
}

// correlateBooking extracts the booking id a payment entity refers to, or
// uuid.Nil when the event cannot be correlated
func correlateBooking(entity *razorpay.PaymentEntity) uuid.UUID {
	if entity == nil {
		return uuid.Nil
	}
	bookingID, err := uuid.Parse(entity.Notes["booking_id"])
	if err != nil {
		return uuid.Nil
	}
	return bookingID
}

func (s *PaymentService) handlePaymentCaptured(event *razorpay.WebhookEvent, rawEvent models.JSONB, meta RequestMeta) error {
	entity := event.PaymentEntity()
	bookingID := correlateBooking(entity)
	if bookingID == uuid.Nil {
		s.logger.Warn("Captured event without booking correlation, dropping")
		return nil
	}

	tx, err := s.paymentRepo.BeginTx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	payment, err := s.paymentRepo.GetPaymentForUpdate(tx, bookingID, entity.OrderID)
	if err != nil {
		return err
	}
	if payment == nil {
		s.logger.WithFields(logrus.Fields{
			"booking_id": bookingID,
			"order_id":   entity.OrderID,
		}).Warn("Captured event for unknown payment, dropping")
		return nil
	}

	// Raw event is refreshed on every delivery, no-ops included
	if err := s.paymentRepo.UpdateRawEventTx(tx, payment.ID, rawEvent); err != nil {
		return err
	}

	if payment.Status == models.PaymentStatusPaid || payment.Status == models.PaymentStatusRefunded {
		return tx.Commit()
	}

	if err := s.settle(tx, payment, entity.ID, ""); err != nil {
		// Booking left the pending state before the webhook landed (hold
		// swept or cancelled while money was captured). Keep the raw event,
		// surface the mismatch in logs, acknowledge the delivery.
		s.logger.WithError(err).WithFields(logrus.Fields{
			"booking_id": bookingID,
			"payment_id": payment.ID,
		}).Error("Captured payment could not settle booking")
		tx.Rollback()
		if rawErr := s.paymentRepo.UpdateRawEvent(payment.ID, rawEvent); rawErr != nil {
			s.logger.WithError(rawErr).Error("Failed to store raw event")
		}
		return nil
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit settlement: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id": bookingID,
		"payment_id": payment.ID,
		"channel":    "webhook",
	}).Info("Payment settled")

	s.auditService.LogPayment(nil, models.AuditActionWebhookReceived, &payment.ID, map[string]interface{}{
		"event":               event.Event,
		"booking_id":          bookingID.String(),
		"provider_payment_id": entity.ID,
	}, meta)

	return nil
}

func (s *PaymentService) handlePaymentFailed(event *razorpay.WebhookEvent, rawEvent models.JSONB) error {
	entity := event.PaymentEntity()
	bookingID := correlateBooking(entity)
	if bookingID == uuid.Nil {
		s.logger.Warn("Failed event without booking correlation, dropping")
		return nil
	}

	tx, err := s.paymentRepo.BeginTx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	payment, err := s.paymentRepo.GetPaymentForUpdate(tx, bookingID, entity.OrderID)
	if err != nil {
		return err
	}
	if payment == nil {
		s.logger.WithField("booking_id", bookingID).Warn("Failed event for unknown payment, dropping")
		return nil
	}

	if err := s.paymentRepo.UpdateRawEventTx(tx, payment.ID, rawEvent); err != nil {
		return err
	}

	// A late failure event never unwinds a settled payment
	if payment.Status == models.PaymentStatusCreated {
		if err := s.paymentRepo.MarkPaymentFailed(tx, payment.ID, entity.ID, ""); err != nil {
			return err
		}
		s.logger.WithFields(logrus.Fields{
			"booking_id": bookingID,
			"payment_id": payment.ID,
		}).Info("Payment marked failed")
	}

	return tx.Commit()
}

func (s *PaymentService) handleRefundEvent(event *razorpay.WebhookEvent, rawEvent models.JSONB, meta RequestMeta) error {
	entity := event.RefundEntity()
	if entity == nil || entity.PaymentID == "" {
		s.logger.Warn("Refund event without payment reference, dropping")
		return nil
	}

	payment, err := s.paymentRepo.GetPaymentByProviderPaymentID(entity.PaymentID)
	if err != nil {
		return err
	}
	if payment == nil {
		s.logger.WithField("provider_payment_id", entity.PaymentID).Warn("Refund event for unknown payment, dropping")
		return nil
	}

	tx, err := s.paymentRepo.BeginTx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	locked, err := s.paymentRepo.GetPaymentByIDForUpdate(tx, payment.ID)
	if err != nil {
		return err
	}
	if locked == nil {
		return nil
	}

	if err := s.paymentRepo.UpdateRawEventTx(tx, locked.ID, rawEvent); err != nil {
		return err
	}

	if locked.Status != models.PaymentStatusPaid {
		// Already refunded (local refund call or earlier delivery), no-op
		return tx.Commit()
	}

	refundAmount := float64(entity.Amount) / 100
	if err := s.paymentRepo.MarkPaymentRefunded(tx, locked.ID, entity.ID, refundAmount); err != nil {
		return err
	}
	if err := s.bookingRepo.CancelBookingTx(tx, locked.BookingID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit refund: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"payment_id": locked.ID,
		"refund_id":  entity.ID,
		"amount":     refundAmount,
	}).Info("Refund applied from webhook")

	s.auditService.LogPayment(nil, models.AuditActionRefundCompleted, &locked.ID, map[string]interface{}{
		"event":     event.Event,
		"refund_id": entity.ID,
		"amount":    refundAmount,
	}, meta)

	return nil
}

// Refund reverses a settled payment and cancels its booking. The provider is
// called first; local state only changes once the provider confirms, so a
// provider failure leaves the payment paid and retryable.
func (s *PaymentService) Refund(actor Actor, req *models.RefundRequest, meta RequestMeta) (*models.RefundResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	payment, err := s.paymentRepo.GetPaymentByID(req.PaymentID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, models.NewNotFound("payment not found")
	}

	if err := s.authorizeRefund(actor, payment); err != nil {
		return nil, err
	}

	if payment.Status == models.PaymentStatusRefunded {
		return nil, models.NewInvalidState("payment already refunded")
	}
	if payment.Status != models.PaymentStatusPaid {
		return nil, models.NewInvalidState("only paid payments can be refunded")
	}
	if payment.ProviderPaymentID == nil {
		return nil, models.NewInvalidState("payment has no provider payment reference")
	}

	amount := payment.Amount
	if req.Amount != nil {
		if *req.Amount > payment.Amount {
			return nil, models.NewValidationError("refund amount exceeds payment amount")
		}
		amount = *req.Amount
	}

	providerReq := &razorpay.RefundRequest{
		Notes: map[string]string{
			"booking_id": payment.BookingID.String(),
		},
	}
	if req.Amount != nil {
		minor := minorUnits(amount)
		providerReq.Amount = &minor
	}
	if req.Reason != nil {
		providerReq.Notes["reason"] = *req.Reason
	}

	refund, err := s.gateway.CreateRefund(*payment.ProviderPaymentID, providerReq)
	if err != nil {
		s.logger.WithError(err).WithField("payment_id", payment.ID).Error("Provider refund failed")
		return nil, models.NewProviderError("refund rejected by payment gateway", err)
	}

	tx, err := s.paymentRepo.BeginTx()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	locked, err := s.paymentRepo.GetPaymentByIDForUpdate(tx, payment.ID)
	if err != nil {
		return nil, err
	}
	if locked == nil {
		return nil, models.NewNotFound("payment not found")
	}

	if locked.Status == models.PaymentStatusPaid {
		if err := s.paymentRepo.MarkPaymentRefunded(tx, locked.ID, refund.ID, amount); err != nil {
			return nil, err
		}
		if err := s.bookingRepo.CancelBookingTx(tx, locked.BookingID); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit refund: %w", err)
	}

	locked.Status = models.PaymentStatusRefunded
	locked.RefundID = &refund.ID
	locked.RefundAmount = &amount

	s.logger.WithFields(logrus.Fields{
		"payment_id": payment.ID,
		"booking_id": payment.BookingID,
		"refund_id":  refund.ID,
		"amount":     amount,
	}).Info("Payment refunded")

	s.auditService.LogPayment(&actor.ID, models.AuditActionRefundCompleted, &payment.ID, map[string]interface{}{
		"booking_id": payment.BookingID.String(),
		"refund_id":  refund.ID,
		"amount":     amount,
	}, meta)

	return &models.RefundResponse{
		Payment:  locked,
		RefundID: refund.ID,
		Amount:   amount,
	}, nil
}

func (s *PaymentService) authorizeRefund(actor Actor, payment *models.Payment) error {
	if actor.Role == models.RoleAdmin {
		return nil
	}
	if actor.Role == models.RoleOperator {
		operator, err := s.operatorRepo.GetOperatorByUserID(actor.ID)
		if err != nil {
			return err
		}
		if operator != nil {
			booking, err := s.bookingRepo.GetBookingByID(payment.BookingID)
			if err != nil {
				return err
			}
			if booking != nil && booking.OperatorID == operator.ID {
				return nil
			}
		}
	}
	return models.NewForbidden("not allowed to refund this payment")
}

// GetPaymentForBooking returns the payment row on a booking, visible to the
// booking's owner, its operator, or an admin
func (s *PaymentService) GetPaymentForBooking(actor Actor, bookingID uuid.UUID) (*models.Payment, error) {
	booking, err := s.bookingRepo.GetBookingByID(bookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, models.NewNotFound("booking not found")
	}
	if booking.UserID != actor.ID && actor.Role != models.RoleAdmin {
		if err := s.authorizeRefund(actor, &models.Payment{BookingID: bookingID}); err != nil {
			return nil, err
		}
	}
	payment, err := s.paymentRepo.GetPaymentByBookingID(bookingID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, models.NewNotFound("no payment for booking")
	}
	return payment, nil
}

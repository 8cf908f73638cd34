package services

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mapsmyway/heli-backend/internal/database"
	"github.com/mapsmyway/heli-backend/internal/models"
	"github.com/mapsmyway/heli-backend/pkg/razorpay"
)

// fakeGateway satisfies PaymentGateway without talking to the provider
type fakeGateway struct {
	configured   bool
	checkoutOK   bool
	webhookOK    bool
	order        *razorpay.Order
	orderErr     error
	refund       *razorpay.Refund
	refundErr    error
	orderCalls   int
	refundCalls  int
	lastOrderReq *razorpay.OrderRequest
}

func (g *fakeGateway) IsConfigured() bool { return g.configured }
func (g *fakeGateway) KeyID() string      { return "rzp_test_key" }

func (g *fakeGateway) CreateOrder(req *razorpay.OrderRequest) (*razorpay.Order, error) {
	g.orderCalls++
	g.lastOrderReq = req
	if g.orderErr != nil {
		return nil, g.orderErr
	}
	return g.order, nil
}

func (g *fakeGateway) CreateRefund(providerPaymentID string, req *razorpay.RefundRequest) (*razorpay.Refund, error) {
	g.refundCalls++
	if g.refundErr != nil {
		return nil, g.refundErr
	}
	return g.refund, nil
}

func (g *fakeGateway) VerifyCheckoutSignature(orderID, paymentID, signature string) bool {
	return g.checkoutOK
}

func (g *fakeGateway) VerifyWebhookSignature(body []byte, signature string) bool {
	return g.webhookOK
}

func newPaymentService(db *sqlx.DB, gateway *fakeGateway) *PaymentService {
	logger := newTestLogger()
	audit := NewAuditService(database.NewAuditLogRepository(db), logger, false)
	return NewPaymentService(
		database.NewPaymentRepository(db),
		database.NewBookingRepository(db),
		database.NewOperatorRepository(db),
		audit,
		gateway,
		logger,
	)
}

func expectBookingRow(mock sqlmock.Sqlmock, bookingID, userID, operatorID uuid.UUID, status string, holdExpiry time.Time) {
	now := time.Now()
	mock.ExpectQuery(`FROM bookings WHERE id = \$1`).
		WithArgs(bookingID).
		WillReturnRows(sqlmock.NewRows(bookingTestColumns()).AddRow(
			bookingID, userID, operatorID, uuid.New(), 2, status,
			24000.0, "LKR", nil, holdExpiry, now, now,
		))
}

func emptyPaymentRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "booking_id", "provider", "provider_order_id", "provider_payment_id",
		"provider_signature", "status", "amount", "currency", "refund_id",
		"refund_amount", "raw_event", "created_at", "updated_at",
	})
}

func paymentRow(paymentID, bookingID uuid.UUID, orderID, status string, providerPaymentID interface{}) *sqlmock.Rows {
	now := time.Now()
	return emptyPaymentRows().AddRow(
		paymentID, bookingID, "razorpay", orderID, providerPaymentID,
		nil, status, 24000.0, "LKR", nil,
		nil, nil, now, now,
	)
}

func TestCreateOrder(t *testing.T) {
	userID := uuid.New()
	actor := Actor{ID: userID, Role: models.RoleUser}

	t.Run("Creates New Payment Row", func(t *testing.T) {
		db, mock := newTestDB(t)
		gateway := &fakeGateway{
			configured: true,
			order:      &razorpay.Order{ID: "order_new1", Amount: 2400000, Currency: "LKR"},
		}
		svc := newPaymentService(db, gateway)
		bookingID := uuid.New()

		expectBookingRow(mock, bookingID, userID, uuid.New(), "pending", time.Now().Add(5*time.Minute))
		mock.ExpectQuery(`FROM payments WHERE booking_id`).
			WithArgs(bookingID).
			WillReturnRows(emptyPaymentRows())
		mock.ExpectExec(`INSERT INTO payments`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		resp, err := svc.CreateOrder(actor, &models.CreateOrderRequest{BookingID: bookingID}, RequestMeta{})
		require.NoError(t, err)
		assert.Equal(t, "order_new1", resp.OrderID)
		assert.Equal(t, "rzp_test_key", resp.KeyID)
		assert.Equal(t, 24000.0, resp.Amount)

		// Provider sees the amount in minor units
		require.NotNil(t, gateway.lastOrderReq)
		assert.Equal(t, int64(2400000), gateway.lastOrderReq.Amount)
		assert.Equal(t, bookingID.String(), gateway.lastOrderReq.Notes["booking_id"])

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Reuses Unpaid Payment Row", func(t *testing.T) {
		db, mock := newTestDB(t)
		gateway := &fakeGateway{
			configured: true,
			order:      &razorpay.Order{ID: "order_retry2", Amount: 2400000, Currency: "LKR"},
		}
		svc := newPaymentService(db, gateway)
		bookingID := uuid.New()
		paymentID := uuid.New()

		expectBookingRow(mock, bookingID, userID, uuid.New(), "pending", time.Now().Add(5*time.Minute))
		mock.ExpectQuery(`FROM payments WHERE booking_id`).
			WithArgs(bookingID).
			WillReturnRows(paymentRow(paymentID, bookingID, "order_old1", "failed", nil))
		mock.ExpectExec(`UPDATE payments`).
			WithArgs(paymentID, "order_retry2").
			WillReturnResult(sqlmock.NewResult(0, 1))

		resp, err := svc.CreateOrder(actor, &models.CreateOrderRequest{BookingID: bookingID}, RequestMeta{})
		require.NoError(t, err)
		assert.Equal(t, paymentID, resp.PaymentID)
		assert.Equal(t, "order_retry2", resp.OrderID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Rejects Settled Payment", func(t *testing.T) {
		db, mock := newTestDB(t)
		gateway := &fakeGateway{configured: true}
		svc := newPaymentService(db, gateway)
		bookingID := uuid.New()

		expectBookingRow(mock, bookingID, userID, uuid.New(), "pending", time.Now().Add(5*time.Minute))
		mock.ExpectQuery(`FROM payments WHERE booking_id`).
			WithArgs(bookingID).
			WillReturnRows(paymentRow(uuid.New(), bookingID, "order_old1", "paid", "pay_done"))

		resp, err := svc.CreateOrder(actor, &models.CreateOrderRequest{BookingID: bookingID}, RequestMeta{})
		assert.Nil(t, resp)
		assert.Equal(t, models.KindInvalidState, models.KindOf(err))
		assert.Equal(t, 0, gateway.orderCalls)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Rejects Expired Hold", func(t *testing.T) {
		db, mock := newTestDB(t)
		gateway := &fakeGateway{configured: true}
		svc := newPaymentService(db, gateway)
		bookingID := uuid.New()

		expectBookingRow(mock, bookingID, userID, uuid.New(), "pending", time.Now().Add(-time.Minute))

		resp, err := svc.CreateOrder(actor, &models.CreateOrderRequest{BookingID: bookingID}, RequestMeta{})
		assert.Nil(t, resp)
		assert.Equal(t, models.KindInvalidState, models.KindOf(err))
		assert.Contains(t, err.Error(), "hold has expired")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Rejects Foreign Booking", func(t *testing.T) {
		db, mock := newTestDB(t)
		gateway := &fakeGateway{configured: true}
		svc := newPaymentService(db, gateway)
		bookingID := uuid.New()

		expectBookingRow(mock, bookingID, uuid.New(), uuid.New(), "pending", time.Now().Add(5*time.Minute))

		resp, err := svc.CreateOrder(actor, &models.CreateOrderRequest{BookingID: bookingID}, RequestMeta{})
		assert.Nil(t, resp)
		assert.Equal(t, models.KindForbidden, models.KindOf(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Gateway Not Configured", func(t *testing.T) {
		db, _ := newTestDB(t)
		svc := newPaymentService(db, &fakeGateway{configured: false})

		resp, err := svc.CreateOrder(actor, &models.CreateOrderRequest{BookingID: uuid.New()}, RequestMeta{})
		assert.Nil(t, resp)
		assert.Equal(t, models.KindProviderError, models.KindOf(err))
	})
}

func TestVerifyPayment(t *testing.T) {
	userID := uuid.New()
	actor := Actor{ID: userID, Role: models.RoleUser}

	t.Run("Settles Payment And Booking", func(t *testing.T) {
		db, mock := newTestDB(t)
		svc := newPaymentService(db, &fakeGateway{checkoutOK: true})
		bookingID := uuid.New()
		paymentID := uuid.New()

		mock.ExpectBegin()
		mock.ExpectQuery(`FROM payments WHERE booking_id = \$1 AND provider_order_id = \$2 FOR UPDATE`).
			WithArgs(bookingID, "order_1").
			WillReturnRows(paymentRow(paymentID, bookingID, "order_1", "created", nil))
		mock.ExpectExec(`UPDATE payments`).
			WithArgs(paymentID, "pay_1", "sig_1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE bookings`).
			WithArgs(bookingID, paymentID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		payment, err := svc.VerifyPayment(actor, &models.VerifyPaymentRequest{
			BookingID: bookingID,
			OrderID:   "order_1",
			PaymentID: "pay_1",
			Signature: "sig_1",
		}, RequestMeta{})
		require.NoError(t, err)
		assert.Equal(t, models.PaymentStatusPaid, payment.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Already Paid Is A No-Op Success", func(t *testing.T) {
		db, mock := newTestDB(t)
		svc := newPaymentService(db, &fakeGateway{checkoutOK: true})
		bookingID := uuid.New()
		paymentID := uuid.New()

		mock.ExpectBegin()
		mock.ExpectQuery(`FROM payments WHERE booking_id = \$1 AND provider_order_id = \$2 FOR UPDATE`).
			WithArgs(bookingID, "order_1").
			WillReturnRows(paymentRow(paymentID, bookingID, "order_1", "paid", "pay_1"))
		mock.ExpectCommit()

		payment, err := svc.VerifyPayment(actor, &models.VerifyPaymentRequest{
			BookingID: bookingID,
			OrderID:   "order_1",
			PaymentID: "pay_1",
			Signature: "sig_1",
		}, RequestMeta{})
		require.NoError(t, err)
		assert.Equal(t, models.PaymentStatusPaid, payment.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Booking Cancelled Before Verify Is Invalid State", func(t *testing.T) {
		db, mock := newTestDB(t)
		svc := newPaymentService(db, &fakeGateway{checkoutOK: true})
		bookingID := uuid.New()
		paymentID := uuid.New()

		mock.ExpectBegin()
		mock.ExpectQuery(`FROM payments WHERE booking_id = \$1 AND provider_order_id = \$2 FOR UPDATE`).
			WithArgs(bookingID, "order_1").
			WillReturnRows(paymentRow(paymentID, bookingID, "order_1", "created", nil))
		mock.ExpectExec(`UPDATE payments`).
			WithArgs(paymentID, "pay_1", "sig_1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		// Booking left pending while the order was open, the status guard
		// matches nothing
		mock.ExpectExec(`UPDATE bookings`).
			WithArgs(bookingID, paymentID).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		payment, err := svc.VerifyPayment(actor, &models.VerifyPaymentRequest{
			BookingID: bookingID,
			OrderID:   "order_1",
			PaymentID: "pay_1",
			Signature: "sig_1",
		}, RequestMeta{})
		assert.Nil(t, payment)
		assert.Equal(t, models.KindInvalidState, models.KindOf(err))
		assert.Contains(t, err.Error(), "not in pending status")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Invalid Signature Mutates Nothing", func(t *testing.T) {
		db, mock := newTestDB(t)
		svc := newPaymentService(db, &fakeGateway{checkoutOK: false})

		payment, err := svc.VerifyPayment(actor, &models.VerifyPaymentRequest{
			BookingID: uuid.New(),
			OrderID:   "order_1",
			PaymentID: "pay_1",
			Signature: "tampered",
		}, RequestMeta{})
		assert.Nil(t, payment)
		assert.Equal(t, models.KindSignatureInvalid, models.KindOf(err))

		// No transaction was even opened
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Unknown Order", func(t *testing.T) {
		db, mock := newTestDB(t)
		svc := newPaymentService(db, &fakeGateway{checkoutOK: true})
		bookingID := uuid.New()

		mock.ExpectBegin()
		mock.ExpectQuery(`FROM payments WHERE booking_id = \$1 AND provider_order_id = \$2 FOR UPDATE`).
			WithArgs(bookingID, "order_unknown").
			WillReturnRows(emptyPaymentRows())
		mock.ExpectRollback()

		payment, err := svc.VerifyPayment(actor, &models.VerifyPaymentRequest{
			BookingID: bookingID,
			OrderID:   "order_unknown",
			PaymentID: "pay_1",
			Signature: "sig_1",
		}, RequestMeta{})
		assert.Nil(t, payment)
		assert.Equal(t, models.KindNotFound, models.KindOf(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func webhookBody(t *testing.T, event string, payload map[string]interface{}) []byte {
	body, err := json.Marshal(map[string]interface{}{
		"event":   event,
		"payload": payload,
	})
	require.NoError(t, err)
	return body
}

func TestHandleWebhook(t *testing.T) {
	t.Run("Invalid Signature Rejected", func(t *testing.T) {
		db, mock := newTestDB(t)
		svc := newPaymentService(db, &fakeGateway{webhookOK: false})

		err := svc.HandleWebhook([]byte(`{"event":"payment.captured"}`), "bad", RequestMeta{})
		assert.Equal(t, models.KindSignatureInvalid, models.KindOf(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Unhandled Event Acked", func(t *testing.T) {
		db, mock := newTestDB(t)
		svc := newPaymentService(db, &fakeGateway{webhookOK: true})

		err := svc.HandleWebhook([]byte(`{"event":"order.paid"}`), "sig", RequestMeta{})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Captured Without Correlation Acked", func(t *testing.T) {
		db, mock := newTestDB(t)
		svc := newPaymentService(db, &fakeGateway{webhookOK: true})

		body := webhookBody(t, "payment.captured", map[string]interface{}{
			"payment": map[string]interface{}{
				"entity": map[string]interface{}{
					"id":       "pay_1",
					"order_id": "order_1",
					"notes":    map[string]string{},
				},
			},
		})

		err := svc.HandleWebhook(body, "sig", RequestMeta{})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Captured Settles Payment", func(t *testing.T) {
		db, mock := newTestDB(t)
		svc := newPaymentService(db, &fakeGateway{webhookOK: true})
		bookingID := uuid.New()
		paymentID := uuid.New()

		body := webhookBody(t, "payment.captured", map[string]interface{}{
			"payment": map[string]interface{}{
				"entity": map[string]interface{}{
					"id":       "pay_1",
					"order_id": "order_1",
					"status":   "captured",
					"amount":   2400000,
					"notes":    map[string]string{"booking_id": bookingID.String()},
				},
			},
		})

		mock.ExpectBegin()
		mock.ExpectQuery(`FROM payments WHERE booking_id = \$1 AND provider_order_id = \$2 FOR UPDATE`).
			WithArgs(bookingID, "order_1").
			WillReturnRows(paymentRow(paymentID, bookingID, "order_1", "created", nil))
		mock.ExpectExec(`UPDATE payments SET raw_event`).
			WithArgs(paymentID, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE payments`).
			WithArgs(paymentID, "pay_1", "").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE bookings`).
			WithArgs(bookingID, paymentID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := svc.HandleWebhook(body, "sig", RequestMeta{})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Duplicate Captured Delivery Refreshes Raw Event Only", func(t *testing.T) {
		db, mock := newTestDB(t)
		svc := newPaymentService(db, &fakeGateway{webhookOK: true})
		bookingID := uuid.New()
		paymentID := uuid.New()

		body := webhookBody(t, "payment.captured", map[string]interface{}{
			"payment": map[string]interface{}{
				"entity": map[string]interface{}{
					"id":       "pay_1",
					"order_id": "order_1",
					"notes":    map[string]string{"booking_id": bookingID.String()},
				},
			},
		})

		mock.ExpectBegin()
		mock.ExpectQuery(`FROM payments WHERE booking_id = \$1 AND provider_order_id = \$2 FOR UPDATE`).
			WithArgs(bookingID, "order_1").
			WillReturnRows(paymentRow(paymentID, bookingID, "order_1", "paid", "pay_1"))
		mock.ExpectExec(`UPDATE payments SET raw_event`).
			WithArgs(paymentID, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := svc.HandleWebhook(body, "sig", RequestMeta{})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Refund Event Refunds And Cancels", func(t *testing.T) {
		db, mock := newTestDB(t)
		svc := newPaymentService(db, &fakeGateway{webhookOK: true})
		bookingID := uuid.New()
		paymentID := uuid.New()

		body := webhookBody(t, "refund.processed", map[string]interface{}{
			"refund": map[string]interface{}{
				"entity": map[string]interface{}{
					"id":         "rfnd_1",
					"payment_id": "pay_1",
					"amount":     2400000,
				},
			},
		})

		mock.ExpectQuery(`FROM payments WHERE provider_payment_id = \$1`).
			WithArgs("pay_1").
			WillReturnRows(paymentRow(paymentID, bookingID, "order_1", "paid", "pay_1"))
		mock.ExpectBegin()
		mock.ExpectQuery(`FROM payments WHERE id = \$1 FOR UPDATE`).
			WithArgs(paymentID).
			WillReturnRows(paymentRow(paymentID, bookingID, "order_1", "paid", "pay_1"))
		mock.ExpectExec(`UPDATE payments SET raw_event`).
			WithArgs(paymentID, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE payments`).
			WithArgs(paymentID, "rfnd_1", 24000.0).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE bookings`).
			WithArgs(bookingID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := svc.HandleWebhook(body, "sig", RequestMeta{})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Refund Event For Unknown Payment Acked", func(t *testing.T) {
		db, mock := newTestDB(t)
		svc := newPaymentService(db, &fakeGateway{webhookOK: true})

		body := webhookBody(t, "refund.created", map[string]interface{}{
			"refund": map[string]interface{}{
				"entity": map[string]interface{}{
					"id":         "rfnd_1",
					"payment_id": "pay_unknown",
				},
			},
		})

		mock.ExpectQuery(`FROM payments WHERE provider_payment_id = \$1`).
			WithArgs("pay_unknown").
			WillReturnRows(emptyPaymentRows())

		err := svc.HandleWebhook(body, "sig", RequestMeta{})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRefund(t *testing.T) {
	admin := Actor{ID: uuid.New(), Role: models.RoleAdmin}

	t.Run("Provider First Then Local State", func(t *testing.T) {
		db, mock := newTestDB(t)
		gateway := &fakeGateway{
			refund: &razorpay.Refund{ID: "rfnd_1", Amount: 2400000, PaymentID: "pay_1", Status: "processed"},
		}
		svc := newPaymentService(db, gateway)
		bookingID := uuid.New()
		paymentID := uuid.New()

		mock.ExpectQuery(`FROM payments WHERE id = \$1`).
			WithArgs(paymentID).
			WillReturnRows(paymentRow(paymentID, bookingID, "order_1", "paid", "pay_1"))
		mock.ExpectBegin()
		mock.ExpectQuery(`FROM payments WHERE id = \$1 FOR UPDATE`).
			WithArgs(paymentID).
			WillReturnRows(paymentRow(paymentID, bookingID, "order_1", "paid", "pay_1"))
		mock.ExpectExec(`UPDATE payments`).
			WithArgs(paymentID, "rfnd_1", 24000.0).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE bookings`).
			WithArgs(bookingID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		resp, err := svc.Refund(admin, &models.RefundRequest{PaymentID: paymentID}, RequestMeta{})
		require.NoError(t, err)
		assert.Equal(t, "rfnd_1", resp.RefundID)
		assert.Equal(t, 24000.0, resp.Amount)
		assert.Equal(t, models.PaymentStatusRefunded, resp.Payment.Status)
		assert.Equal(t, 1, gateway.refundCalls)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Provider Failure Leaves State Untouched", func(t *testing.T) {
		db, mock := newTestDB(t)
		gateway := &fakeGateway{refundErr: fmt.Errorf("gateway timeout")}
		svc := newPaymentService(db, gateway)
		paymentID := uuid.New()

		mock.ExpectQuery(`FROM payments WHERE id = \$1`).
			WithArgs(paymentID).
			WillReturnRows(paymentRow(paymentID, uuid.New(), "order_1", "paid", "pay_1"))

		resp, err := svc.Refund(admin, &models.RefundRequest{PaymentID: paymentID}, RequestMeta{})
		assert.Nil(t, resp)
		assert.Equal(t, models.KindProviderError, models.KindOf(err))

		// No transaction opened, payment stays paid and refund stays retryable
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Second Refund Rejected", func(t *testing.T) {
		db, mock := newTestDB(t)
		gateway := &fakeGateway{}
		svc := newPaymentService(db, gateway)
		paymentID := uuid.New()

		mock.ExpectQuery(`FROM payments WHERE id = \$1`).
			WithArgs(paymentID).
			WillReturnRows(paymentRow(paymentID, uuid.New(), "order_1", "refunded", "pay_1"))

		resp, err := svc.Refund(admin, &models.RefundRequest{PaymentID: paymentID}, RequestMeta{})
		assert.Nil(t, resp)
		assert.Equal(t, models.KindInvalidState, models.KindOf(err))
		assert.Equal(t, 0, gateway.refundCalls)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Partial Amount Cannot Exceed Payment", func(t *testing.T) {
		db, mock := newTestDB(t)
		gateway := &fakeGateway{}
		svc := newPaymentService(db, gateway)
		paymentID := uuid.New()
		tooMuch := 99999.0

		mock.ExpectQuery(`FROM payments WHERE id = \$1`).
			WithArgs(paymentID).
			WillReturnRows(paymentRow(paymentID, uuid.New(), "order_1", "paid", "pay_1"))

		resp, err := svc.Refund(admin, &models.RefundRequest{PaymentID: paymentID, Amount: &tooMuch}, RequestMeta{})
		assert.Nil(t, resp)
		assert.Equal(t, models.KindValidation, models.KindOf(err))
		assert.Equal(t, 0, gateway.refundCalls)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

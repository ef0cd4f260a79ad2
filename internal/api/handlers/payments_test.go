package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heritagebox/chat-service/internal/api/handlers"
	"github.com/heritagebox/chat-service/internal/services/payments"
)

// fakePayments returns a canned payment or error and records the last charge.
type fakePayments struct {
	payment *payments.Payment
	err     error

	lastAmountCents int64
	lastNote        string
}

func (f *fakePayments) CreatePayment(_ context.Context, _ string, amountCents int64, _, note string) (*payments.Payment, error) {
	f.lastAmountCents = amountCents
	f.lastNote = note
	if f.err != nil {
		return nil, f.err
	}
	return f.payment, nil
}

func (f *fakePayments) GetPayment(context.Context, string) (*payments.Payment, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.payment, nil
}

func paymentsRouter(client payments.Client) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := handlers.NewPaymentsHandler(client, zerolog.Nop())
	r.POST("/payments", h.Create)
	r.GET("/payments/:paymentId", h.Status)
	return r
}

func postPayment(t *testing.T, r *gin.Engine, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/payments", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestPayments_SuccessfulCharge(t *testing.T) {
	fake := &fakePayments{payment: &payments.Payment{
		ID:         "pay_1",
		Status:     "COMPLETED",
		ReceiptURL: "https://squareup.com/receipt/pay_1",
	}}
	r := paymentsRouter(fake)

	w := postPayment(t, r, map[string]any{
		"token":        "tok_abc",
		"amount":       279.99,
		"orderDetails": map[string]any{"package": "Popular"},
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(27999), fake.lastAmountCents)
	assert.Equal(t, "Popular Package", fake.lastNote)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, "pay_1", resp["paymentId"])
	assert.Equal(t, "https://squareup.com/receipt/pay_1", resp["receiptUrl"])
}

func TestPayments_DefaultNote(t *testing.T) {
	fake := &fakePayments{payment: &payments.Payment{ID: "pay_1", Status: "COMPLETED"}}
	r := paymentsRouter(fake)

	w := postPayment(t, r, map[string]any{"token": "tok_abc", "amount": 10.0})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Heritage Box Order", fake.lastNote)
}

func TestPayments_CardDeclinedIs400(t *testing.T) {
	fake := &fakePayments{err: &payments.CardError{Code: "CARD_DECLINED", Detail: "Card declined."}}
	r := paymentsRouter(fake)

	w := postPayment(t, r, map[string]any{"token": "tok_bad", "amount": 10.0})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "PAYMENT_DECLINED")
	assert.Contains(t, w.Body.String(), "Card declined.")
}

func TestPayments_IncompletePaymentIs400(t *testing.T) {
	fake := &fakePayments{payment: &payments.Payment{ID: "pay_1", Status: "PENDING"}}
	r := paymentsRouter(fake)

	w := postPayment(t, r, map[string]any{"token": "tok_abc", "amount": 10.0})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "PENDING")
}

func TestPayments_MissingFieldsIs400(t *testing.T) {
	r := paymentsRouter(&fakePayments{})

	w := postPayment(t, r, map[string]any{"amount": 10.0})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postPayment(t, r, map[string]any{"token": "tok_abc", "amount": -5.0})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPayments_UnconfiguredIs500(t *testing.T) {
	r := paymentsRouter(nil)

	w := postPayment(t, r, map[string]any{"token": "tok_abc", "amount": 10.0})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "not configured")
}

func TestPayments_StatusPoll(t *testing.T) {
	fake := &fakePayments{payment: &payments.Payment{ID: "pay_1", Status: "APPROVED"}}
	r := paymentsRouter(fake)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/payments/pay_1", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "APPROVED", resp["status"])
}

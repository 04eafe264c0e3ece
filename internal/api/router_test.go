package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oatsaysai/voice-upi/internal/db"
	"github.com/oatsaysai/voice-upi/internal/logger"
	"github.com/oatsaysai/voice-upi/internal/models"
	"github.com/oatsaysai/voice-upi/internal/voice"
	"github.com/oatsaysai/voice-upi/pkg/razorpay"
)

type stubOrders struct {
	rupees  int64
	receipt string
	err     error
}

func (s *stubOrders) CreateOrder(ctx context.Context, rupees int64, currency, receipt string) (*razorpay.Order, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.rupees = rupees
	s.receipt = receipt
	return &razorpay.Order{ID: "order_1", Amount: rupees * 100, Currency: currency, Receipt: receipt, Status: "created"}, nil
}

type testServer struct {
	handler http.Handler
	store   *db.MemoryStore
	orders  *stubOrders
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := db.NewMemoryStore(db.DefaultSeed())
	orders := &stubOrders{}
	log := logger.Nop()
	return &testServer{
		handler: NewRouter(Deps{
			Store:    store,
			Sessions: voice.NewSessions(store, voice.NewResolver(voice.Score, voice.DefaultMatchThreshold), log),
			Orders:   orders,
			QRScheme: "upi",
			QRDir:    t.TempDir(),
			Log:      log,
		}),
		store:  store,
		orders: orders,
	}
}

func (s *testServer) do(t *testing.T, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestLedgerEndpoints(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/getBalance", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"balance":5000}`, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/getContacts", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ramesh@upi"`)

	rec = s.do(t, http.MethodPost, "/api/sendMoney", `{"amount":500,"receiverName":"ramesh"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decode(t, rec)
	assert.Equal(t, float64(4500), out["balance"])
	assert.Equal(t, "Ramesh", out["transaction"].(map[string]interface{})["receiver"])
	assert.Equal(t, float64(4500), out["transaction"].(map[string]interface{})["balanceAfter"])

	rec = s.do(t, http.MethodPost, "/api/sendMoney", `{"amount":9000,"receiverName":"Sita"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"insufficient balance"}`, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/sendMoney", `{"amount":10,"receiverName":"Ghost"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/sendMoney", `{"amount":0,"receiverName":"Sita"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/getTransactions", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	txs := decode(t, rec)["transactions"].([]interface{})
	assert.Len(t, txs, 1)

	rec = s.do(t, http.MethodPost, "/api/getBalance", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestContactEndpoints(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/addContact", `{"name":"Ram","mobile":"7777777777","upi":"ram@upi"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/addContact", `{"name":"RAM","mobile":"7777777777","upi":"ram@upi"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/addContact", `{"name":"Ram"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodDelete, "/api/deleteContact/ram", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodDelete, "/api/deleteContact/ram", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/deleteContact/sita", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestValidationEndpoints(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/validateContactUPI", `{"name":"John Doe","mobile":"9876543210","upi":"john@paytm"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["isValid"])

	rec = s.do(t, http.MethodPost, "/api/validateContactUPI", `{"name":"John Doe","mobile":"9876543210","upi":"sita@paytm"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/validateContactUPI", `{"name":"John","mobile":"98765","upi":"john@paytm"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"invalid mobile number"}`, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/validateUPI", `{"name":"Asha","mobile":"9123456789","upi":"asha@okbank"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	user := decode(t, rec)["user"].(map[string]interface{})
	assert.Equal(t, true, user["isVerified"])

	rec = s.do(t, http.MethodPost, "/api/validateUPI", `{"name":"Asha","mobile":"9123456789","upi":"asha"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVoiceFlow(t *testing.T) {
	s := newTestServer(t)
	session := []string{"X-Session-ID", "tab-1"}

	require.NoError(t, s.store.AddContact(context.Background(), models.Contact{Name: "Ram", Mobile: "7777777777", UPI: "ram@upi"}))

	rec := s.do(t, http.MethodPost, "/api/voice/transcript", `{"transcript":"send 300 to ram"}`, session...)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decode(t, rec)
	assert.Equal(t, "ambiguity_pending", out["phase"])
	candidates := out["candidates"].([]interface{})
	require.Len(t, candidates, 2)
	assert.Equal(t, float64(100), candidates[0].(map[string]interface{})["matchPercent"])

	rec = s.do(t, http.MethodPost, "/api/voice/select", `{"index":1}`, session...)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "confirmation_pending", decode(t, rec)["phase"])

	rec = s.do(t, http.MethodGet, "/api/voice/state", "", session...)
	assert.Equal(t, "confirmation_pending", decode(t, rec)["phase"])

	rec = s.do(t, http.MethodPost, "/api/voice/confirm", "", session...)
	require.Equal(t, http.StatusOK, rec.Code)
	out = decode(t, rec)
	assert.Equal(t, "executed", out["phase"])
	assert.Equal(t, "Ramesh", out["transaction"].(map[string]interface{})["receiver"])

	balance, _ := s.store.GetBalance(context.Background())
	assert.Equal(t, int64(4700), balance)

	rec = s.do(t, http.MethodPost, "/api/voice/confirm", "", session...)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestVoiceErrors(t *testing.T) {
	s := newTestServer(t)
	session := []string{"X-Session-ID", "tab-2"}

	rec := s.do(t, http.MethodPost, "/api/voice/transcript", `{"transcript":"hello world"}`, session...)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "failed", decode(t, rec)["phase"])

	rec = s.do(t, http.MethodPost, "/api/voice/transcript", `{"transcript":"send 5 to Xyz"}`, session...)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decode(t, rec)["phase"])

	rec = s.do(t, http.MethodPost, "/api/voice/transcript", `{"transcript":"  "}`, session...)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "no-speech", decode(t, rec)["error"])

	rec = s.do(t, http.MethodPost, "/api/voice/transcript", `{"transcript":"send 5 to Sita"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/voice/transcript", `{"transcript":"send 5 to Sita"}`, session...)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, http.MethodPost, "/api/voice/cancel", "", session...)
	assert.Equal(t, "cancelled", decode(t, rec)["phase"])
	rec = s.do(t, http.MethodPost, "/api/voice/cancel", "", session...)
	assert.Equal(t, "idle", decode(t, rec)["phase"])

	balance, _ := s.store.GetBalance(context.Background())
	assert.Equal(t, int64(5000), balance)
}

func TestVoiceSessionsAreIndependent(t *testing.T) {
	s := newTestServer(t)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			session := []string{"X-Session-ID", fmt.Sprintf("tab-%d", i)}
			rec := s.do(t, http.MethodPost, "/api/voice/transcript", `{"transcript":"send 1500 to Sita"}`, session...)
			assert.Equal(t, http.StatusOK, rec.Code)
			s.do(t, http.MethodPost, "/api/voice/confirm", "", session...)
		}(i)
	}
	wg.Wait()

	balance, _ := s.store.GetBalance(context.Background())
	assert.Equal(t, int64(500), balance)
	txs, _ := s.store.GetTransactions(context.Background())
	assert.Len(t, txs, 3)
}

func TestCreateOrder(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/createOrder", `{"amount":250}`)
	require.Equal(t, http.StatusOK, rec.Code)
	order := decode(t, rec)["order"].(map[string]interface{})
	assert.Equal(t, float64(25000), order["amount"])
	assert.Equal(t, int64(250), s.orders.rupees)
	assert.True(t, strings.HasPrefix(s.orders.receipt, "rcpt_"))

	rec = s.do(t, http.MethodPost, "/api/createOrder", `{"amount":-1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	s.orders.err = errors.New("gateway down")
	rec = s.do(t, http.MethodPost, "/api/createOrder", `{"amount":1}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Failed to create order"}`, rec.Body.String())
}

func TestPaymentQR(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/paymentQR?name=sita&amount=20", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "\x89PNG"))

	rec = s.do(t, http.MethodGet, "/api/paymentQR?name=ghost", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/paymentQR?name=sita&amount=x", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestImportContacts(t *testing.T) {
	s := newTestServer(t)
	vcf := "BEGIN:VCARD\r\nVERSION:3.0\r\nFN:Ram\r\nTEL:7777777777\r\nEND:VCARD\r\n" +
		"BEGIN:VCARD\r\nVERSION:3.0\r\nFN:Sita\r\nTEL:8888888888\r\nEND:VCARD\r\n"

	rec := s.do(t, http.MethodPost, "/api/importContacts", vcf)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decode(t, rec)
	assert.Len(t, out["added"], 1)
	assert.Equal(t, []interface{}{"Sita"}, out["skipped"])
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode(t, rec)["status"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

// racingStore lets another transfer land right after each debit
type racingStore struct {
	*db.MemoryStore
}

func (s racingStore) DebitAndRecord(ctx context.Context, amount int64, receiverName string) (models.Transaction, error) {
	tx, err := s.MemoryStore.DebitAndRecord(ctx, amount, receiverName)
	if err != nil {
		return tx, err
	}
	_, err = s.MemoryStore.DebitAndRecord(ctx, 100, "Sita")
	return tx, err
}

func TestSendMoneyReportsBalanceOfItsOwnDebit(t *testing.T) {
	store := racingStore{db.NewMemoryStore(db.DefaultSeed())}
	log := logger.Nop()
	handler := NewRouter(Deps{
		Store:    store,
		Sessions: voice.NewSessions(store, voice.NewResolver(voice.Score, voice.DefaultMatchThreshold), log),
		QRScheme: "upi",
		QRDir:    t.TempDir(),
		Log:      log,
	})

	req := httptest.NewRequest(http.MethodPost, "/api/sendMoney", strings.NewReader(`{"amount":500,"receiverName":"Ramesh"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	out := decode(t, rec)
	assert.Equal(t, float64(4500), out["balance"])
	assert.Equal(t, float64(4500), out["transaction"].(map[string]interface{})["balanceAfter"])

	balance, err := store.GetBalance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4400), balance)
}

package handler_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"registrar/internal/adminauth"
	"registrar/internal/billing"
	"registrar/internal/registry/fees"
	"registrar/internal/registry/handler"
	"registrar/internal/registry/service"
	"registrar/internal/registry/store"
	"registrar/internal/registry/tlds"
	id "registrar/pkg/domain"
	"registrar/pkg/platform/middleware/requesttime"
	"registrar/pkg/testutil"
)

type fixture struct {
	router   http.Handler
	admin    id.AccountID
	treasury id.AccountID
	alice    id.AccountID
	auth     *adminauth.Service
	ledger   *billing.Ledger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		admin:    id.NewAccountID(),
		treasury: id.NewAccountID(),
		alice:    id.NewAccountID(),
	}

	f.ledger = billing.NewLedger()
	require.NoError(t, f.ledger.Deposit(f.alice, 1_000_000))
	require.NoError(t, f.ledger.Approve(f.alice, 1_000_000))

	feeTable := fees.NewTable()
	tldSet := tlds.NewSet("neo")
	svc, err := service.New(store.NewInMemory(), feeTable, tldSet, f.ledger, f.admin,
		service.WithTreasury(f.treasury))
	require.NoError(t, err)

	logger := testutil.NewTestLogger()
	keyHash, err := adminauth.HashAPIKey("test-admin-key")
	require.NoError(t, err)
	f.auth = adminauth.New("test-signing-key", keyHash, f.admin, time.Hour)

	h := handler.New(svc, tldSet, feeTable, logger)
	adminH := handler.NewAdmin(svc, f.auth, logger)

	r := chi.NewRouter()
	r.Use(requesttime.Middleware)
	r.Route("/v1", func(r chi.Router) { h.Register(r) })
	r.Route("/admin", func(r chi.Router) {
		adminH.RegisterToken(r)
		r.Group(func(r chi.Router) {
			r.Use(f.auth.Middleware(logger))
			adminH.Register(r)
		})
	})
	f.router = r
	return f
}

func (f *fixture) adminToken(t *testing.T) string {
	t.Helper()
	req := testutil.NewJSONRequest(t, http.MethodPost, "/admin/token", map[string]string{
		"api_key": "test-admin-key",
	})
	rr := testutil.DoRequest(f.router, req)
	testutil.AssertStatusOK(t, rr)
	return testutil.UnmarshalResponse[handler.TokenResponse](t, rr).Token
}

func TestRegisterEndpoint(t *testing.T) {
	f := newFixture(t)

	t.Run("creates a record", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/v1/domains", map[string]any{
			"name":      "Example",
			"tld":       "neo",
			"years":     2,
			"requester": f.alice.String(),
		})
		rr := testutil.DoRequest(f.router, req)

		testutil.AssertStatus(t, rr, http.StatusCreated)
		resp := testutil.UnmarshalResponse[handler.RecordResponse](t, rr)
		assert.Equal(t, "example", resp.Name)
		assert.Equal(t, "neo", resp.TLD)
		assert.Equal(t, f.alice.String(), resp.Owner)
		assert.Equal(t, f.alice.String(), resp.Target)
		assert.False(t, resp.Expired)
	})

	t.Run("duplicate maps to conflict", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/v1/domains", map[string]any{
			"name":      "example",
			"tld":       "neo",
			"years":     1,
			"requester": id.NewAccountID().String(),
		})
		rr := testutil.DoRequest(f.router, req)
		testutil.AssertStatusAndError(t, rr, http.StatusConflict, "conflict")
	})

	t.Run("malformed requester maps to bad request", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/v1/domains", map[string]any{
			"name":      "fine",
			"tld":       "neo",
			"years":     1,
			"requester": "not-a-uuid",
		})
		rr := testutil.DoRequest(f.router, req)
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})

	t.Run("unsupported tld maps to bad request", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/v1/domains", map[string]any{
			"name":      "fine",
			"tld":       "com",
			"years":     1,
			"requester": id.NewAccountID().String(),
		})
		rr := testutil.DoRequest(f.router, req)
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation")
	})

	t.Run("insufficient funds maps to payment required", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/v1/domains", map[string]any{
			"name":      "broke",
			"tld":       "neo",
			"years":     1,
			"requester": id.NewAccountID().String(),
		})
		rr := testutil.DoRequest(f.router, req)
		testutil.AssertStatus(t, rr, http.StatusPaymentRequired)
	})

	t.Run("non-json body", func(t *testing.T) {
		req := testutil.NewRequestWithBody(t, http.MethodPost, "/v1/domains", "{nope")
		rr := testutil.DoRequest(f.router, req)
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "bad_request")
	})
}

func TestResolveEndpoint(t *testing.T) {
	f := newFixture(t)

	req := testutil.NewJSONRequest(t, http.MethodPost, "/v1/domains", map[string]any{
		"name": "lookup", "tld": "neo", "years": 1, "requester": f.alice.String(),
	})
	testutil.AssertStatus(t, testutil.DoRequest(f.router, req), http.StatusCreated)

	t.Run("registered name", func(t *testing.T) {
		rr := testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodGet, "/v1/resolve/neo/lookup"))
		testutil.AssertStatusOK(t, rr)
		resp := testutil.UnmarshalResponse[handler.ResolveResponse](t, rr)
		assert.Equal(t, f.alice.String(), resp.Target)
		assert.True(t, resp.Registered)
	})

	t.Run("unknown name returns the null identity, not an error", func(t *testing.T) {
		rr := testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodGet, "/v1/resolve/neo/nobody"))
		testutil.AssertStatusOK(t, rr)
		resp := testutil.UnmarshalResponse[handler.ResolveResponse](t, rr)
		assert.Equal(t, id.NilAccount.String(), resp.Target)
		assert.False(t, resp.Registered)
	})
}

func TestAvailabilityAndRecordEndpoints(t *testing.T) {
	f := newFixture(t)

	rr := testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodGet, "/v1/domains/neo/open/availability"))
	testutil.AssertStatusOK(t, rr)
	assert.True(t, testutil.UnmarshalResponse[handler.AvailabilityResponse](t, rr).Available)

	rr = testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodGet, "/v1/domains/neo/open"))
	testutil.AssertStatusAndError(t, rr, http.StatusNotFound, "not_found")
}

func TestRenewAndRetargetEndpoints(t *testing.T) {
	f := newFixture(t)

	req := testutil.NewJSONRequest(t, http.MethodPost, "/v1/domains", map[string]any{
		"name": "keeper", "tld": "neo", "years": 1, "requester": f.alice.String(),
	})
	rr := testutil.DoRequest(f.router, req)
	testutil.AssertStatus(t, rr, http.StatusCreated)
	first := testutil.UnmarshalResponse[handler.RecordResponse](t, rr)

	t.Run("renew extends the expiry", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/v1/domains/neo/keeper/renew", map[string]any{
			"requester": f.alice.String(),
			"years":     3,
		})
		rr := testutil.DoRequest(f.router, req)
		testutil.AssertStatusOK(t, rr)
		resp := testutil.UnmarshalResponse[handler.RecordResponse](t, rr)
		assert.Equal(t, first.ExpiresAt.Add(3*365*24*time.Hour), resp.ExpiresAt)
	})

	t.Run("renew by a stranger is unauthorized", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/v1/domains/neo/keeper/renew", map[string]any{
			"requester": id.NewAccountID().String(),
			"years":     1,
		})
		rr := testutil.DoRequest(f.router, req)
		testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
	})

	t.Run("retarget updates resolution", func(t *testing.T) {
		next := id.NewAccountID()
		req := testutil.NewJSONRequest(t, http.MethodPut, "/v1/domains/neo/keeper/target", map[string]any{
			"requester": f.alice.String(),
			"target":    next.String(),
		})
		rr := testutil.DoRequest(f.router, req)
		testutil.AssertStatusOK(t, rr)

		rr = testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodGet, "/v1/resolve/neo/keeper"))
		assert.Equal(t, next.String(), testutil.UnmarshalResponse[handler.ResolveResponse](t, rr).Target)
	})
}

func TestBatchEndpoint(t *testing.T) {
	f := newFixture(t)

	t.Run("batch with an invalid entry fails whole", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/v1/domains/batch", map[string]any{
			"requester": f.alice.String(),
			"domains": []map[string]any{
				{"name": "good", "tld": "neo", "years": 1},
				{"name": "bad name", "tld": "neo", "years": 1},
			},
		})
		rr := testutil.DoRequest(f.router, req)
		testutil.AssertStatus(t, rr, http.StatusBadRequest)

		rr = testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodGet, "/v1/domains/neo/good/availability"))
		assert.True(t, testutil.UnmarshalResponse[handler.AvailabilityResponse](t, rr).Available)
	})

	t.Run("valid batch reports the created keys", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/v1/domains/batch", map[string]any{
			"requester": f.admin.String(),
			"domains": []map[string]any{
				{"name": "alpha", "tld": "neo", "years": 1},
				{"name": "beta", "tld": "neo", "years": 1},
			},
		})
		rr := testutil.DoRequest(f.router, req)
		testutil.AssertStatus(t, rr, http.StatusCreated)
		resp := testutil.UnmarshalResponse[handler.BatchResponse](t, rr)
		assert.Equal(t, 2, resp.Count)
		assert.Equal(t, []string{"alpha.neo", "beta.neo"}, resp.Domains)
	})
}

func TestListingEndpoints(t *testing.T) {
	f := newFixture(t)

	rr := testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodGet, "/v1/tlds"))
	testutil.AssertStatusOK(t, rr)
	assert.Equal(t, []string{"neo"}, testutil.UnmarshalResponse[handler.TLDListResponse](t, rr).TLDs)

	rr = testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodGet, "/v1/fees"))
	testutil.AssertStatusOK(t, rr)
	resp := testutil.UnmarshalResponse[handler.FeeScheduleResponse](t, rr)
	assert.Equal(t, int64(500), resp.Prices["1"])
	assert.Equal(t, int64(50), resp.Prices["default"])
}

func TestAdminEndpoints(t *testing.T) {
	f := newFixture(t)
	token := f.adminToken(t)

	withToken := func(req *http.Request) *http.Request {
		req.Header.Set("Authorization", "Bearer "+token)
		return req
	}

	t.Run("guarded routes reject missing tokens", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPut, "/admin/fees", map[string]any{"bucket": 1, "price": 900})
		rr := testutil.DoRequest(f.router, req)
		testutil.AssertStatus(t, rr, http.StatusUnauthorized)
	})

	t.Run("bad api key is rejected at exchange", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/admin/token", map[string]string{"api_key": "wrong"})
		rr := testutil.DoRequest(f.router, req)
		testutil.AssertStatus(t, rr, http.StatusUnauthorized)
	})

	t.Run("fee update flows through to pricing", func(t *testing.T) {
		req := withToken(testutil.NewJSONRequest(t, http.MethodPut, "/admin/fees", map[string]any{"bucket": 1, "price": 900}))
		rr := testutil.DoRequest(f.router, req)
		testutil.AssertStatus(t, rr, http.StatusNoContent)

		rr = testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodGet, "/v1/fees"))
		assert.Equal(t, int64(900), testutil.UnmarshalResponse[handler.FeeScheduleResponse](t, rr).Prices["1"])
	})

	t.Run("invalid bucket is rejected", func(t *testing.T) {
		req := withToken(testutil.NewJSONRequest(t, http.MethodPut, "/admin/fees", map[string]any{"bucket": 2, "price": 10}))
		rr := testutil.DoRequest(f.router, req)
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})

	t.Run("tld lifecycle", func(t *testing.T) {
		req := withToken(testutil.NewJSONRequest(t, http.MethodPost, "/admin/tlds", map[string]string{"tld": "id"}))
		rr := testutil.DoRequest(f.router, req)
		testutil.AssertStatus(t, rr, http.StatusNoContent)

		rr = testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodGet, "/v1/tlds"))
		assert.Contains(t, testutil.UnmarshalResponse[handler.TLDListResponse](t, rr).TLDs, "id")

		req = withToken(testutil.NewRequest(t, http.MethodDelete, "/admin/tlds/id"))
		rr = testutil.DoRequest(f.router, req)
		testutil.AssertStatus(t, rr, http.StatusNoContent)
	})

	t.Run("admin registration bypasses fees", func(t *testing.T) {
		beneficiary := id.NewAccountID()
		req := withToken(testutil.NewJSONRequest(t, http.MethodPost, "/admin/domains", map[string]any{
			"name": "granted", "tld": "neo", "years": 5, "target": beneficiary.String(),
		}))
		rr := testutil.DoRequest(f.router, req)
		testutil.AssertStatus(t, rr, http.StatusCreated)
		resp := testutil.UnmarshalResponse[handler.RecordResponse](t, rr)
		assert.Equal(t, f.admin.String(), resp.Owner)
		assert.Equal(t, beneficiary.String(), resp.Target)
	})

	t.Run("treasury update", func(t *testing.T) {
		req := withToken(testutil.NewJSONRequest(t, http.MethodPut, "/admin/treasury", map[string]string{
			"treasury": id.NewAccountID().String(),
		}))
		rr := testutil.DoRequest(f.router, req)
		testutil.AssertStatus(t, rr, http.StatusNoContent)
	})
}

package echoapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/clubemanager/backend/core/billing"
	"github.com/clubemanager/backend/core/member"
	"github.com/clubemanager/backend/core/user"
	testutil "github.com/clubemanager/backend/tests"
)

func TestBillingAPI_generate(t *testing.T) {
	fix := setup(t)
	ctx := context.Background()

	if _, err := fix.billingRepo.UpdatePolicy(ctx, testutil.DefaultPolicy()); err != nil {
		t.Fatalf("seeding policy failed: %v", err)
	}
	testutil.CreateMember(t, fix.mbrRepo, "Ana", "ana@test.br", member.CategoryPrimary, member.StatusActive, "")
	testutil.CreateMember(t, fix.mbrRepo, "Bruno", "bruno@test.br", member.CategoryPrimary, member.StatusActive, "")
	testutil.CreateMember(t, fix.mbrRepo, "Carla", "carla@test.br", member.CategoryPrimary, member.StatusInactive, "")

	finance := testutil.CreateUser(t, fix.usrRepo, "Fin", "fin001", "fin@test.br", "LePassword7", user.TierFinance, true)
	desk := testutil.CreateUser(t, fix.usrRepo, "Desk", "desk01", "desk@test.br", "LePassword7", user.TierFrontDesk, true)

	body := []byte(`{"period": "2024-02", "scope": "active_only"}`)

	tests := []httpTest{
		{
			name: "front desk cannot generate", method: http.MethodPost, path: "/v1/billing/generate",
			body: body, token: getToken(t, fix.conf, desk), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "finance generates for active members", method: http.MethodPost, path: "/v1/billing/generate",
			body: body, token: getToken(t, fix.conf, finance), wantCode: http.StatusOK,
			wantData: []byte(`{"period": "2024-02", "created": 2, "skipped": 0}`),
		},
		{
			name: "second run skips existing dues", method: http.MethodPost, path: "/v1/billing/generate",
			body: body, token: getToken(t, fix.conf, finance), wantCode: http.StatusOK,
			wantData: []byte(`{"period": "2024-02", "created": 0, "skipped": 2}`),
		},
		{
			name: "unknown scope is rejected", method: http.MethodPost, path: "/v1/billing/generate",
			body: []byte(`{"period": "2024-02", "scope": "everyone"}`), token: getToken(t, fix.conf, finance),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"scope": "invalid roster scope"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			fix.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	// the front desk can still consult the generated dues
	req, rec := newAuthRequest(http.MethodGet, "/v1/billing/dues?status=pending", getToken(t, fix.conf, desk))
	fix.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("listing dues: code = %d; body %s", rec.Code, rec.Body.String())
	}
	var dues []billing.Due
	if err := json.Unmarshal(rec.Body.Bytes(), &dues); err != nil {
		t.Fatalf("unmarshalling dues: %v", err)
	}
	if len(dues) != 2 {
		t.Errorf("got %d pending dues, want 2", len(dues))
	}
}

func TestBillingAPI_queryRejectsMalformedFilter(t *testing.T) {
	fix := setup(t)

	desk := testutil.CreateUser(t, fix.usrRepo, "Desk", "desk01", "desk@test.br", "LePassword7", user.TierFrontDesk, true)

	// a filter that cannot be bound is an error, not an empty result
	req, rec := newAuthRequest(http.MethodGet, "/v1/billing/dues?due_before=not-a-date", getToken(t, fix.conf, desk))
	fix.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("code = %d; want %d, body %s", rec.Code, http.StatusBadRequest, rec.Body.String())
	}
}

func TestBillingAPI_payment(t *testing.T) {
	fix := setup(t)
	ctx := context.Background()

	if _, err := fix.billingRepo.UpdatePolicy(ctx, testutil.DefaultPolicy()); err != nil {
		t.Fatalf("seeding policy failed: %v", err)
	}
	ana := testutil.CreateMember(t, fix.mbrRepo, "Ana", "ana@test.br", member.CategoryPrimary, member.StatusActive, "")

	feb := billing.NewPeriod(2024, time.February)
	dueDate := time.Date(2024, time.February, 5, 0, 0, 0, 0, time.UTC)
	base := decimal.RequireFromString("150.00")
	open := testutil.CreateDue(t, fix.billingRepo, ana, feb, base, billing.StatusPending, dueDate)

	mar := billing.NewPeriod(2024, time.March)
	cancelled := testutil.CreateDue(t, fix.billingRepo, ana, mar, base, billing.StatusCancelled, dueDate.AddDate(0, 1, 0))

	finance := testutil.CreateUser(t, fix.usrRepo, "Fin", "fin001", "fin@test.br", "LePassword7", user.TierFinance, true)
	token := getToken(t, fix.conf, finance)

	// paying an open due freezes its amount
	req, rec := newAuthRequest(http.MethodPost, "/v1/billing/dues/"+open.ID+"/pay", token, []byte(`{"method": "pix"}`))
	fix.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("paying due: code = %d; body %s", rec.Code, rec.Body.String())
	}
	var paid billing.Due
	if err := json.Unmarshal(rec.Body.Bytes(), &paid); err != nil {
		t.Fatalf("unmarshalling due: %v", err)
	}
	if paid.Status != billing.StatusPaid {
		t.Errorf("status = %s, want paid", paid.Status)
	}
	if !paid.PaidAmount.Equal(base) {
		t.Errorf("paid amount = %s, want %s", paid.PaidAmount, base)
	}

	// a cancelled due cannot be paid
	tt := httpTest{
		method: http.MethodPost, path: "/v1/billing/dues/" + cancelled.ID + "/pay",
		body: []byte(`{"method": "pix"}`), token: token, wantCode: http.StatusConflict,
		wantData: marchallObj(t, httpErr{Error: billing.ErrInvalidTransition.Error()}),
	}
	req, rec = newAuthRequest(tt.method, tt.path, tt.token, tt.body)
	fix.server.ServeHTTP(rec, req)
	checkCodeAndData(t, tt, rec)

	// neither can the paid one
	tt.path = "/v1/billing/dues/" + open.ID + "/pay"
	req, rec = newAuthRequest(tt.method, tt.path, tt.token, tt.body)
	fix.server.ServeHTTP(rec, req)
	checkCodeAndData(t, tt, rec)
}

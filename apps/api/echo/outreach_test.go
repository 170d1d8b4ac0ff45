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
	"github.com/clubemanager/backend/core/outreach"
	"github.com/clubemanager/backend/core/user"
	testutil "github.com/clubemanager/backend/tests"
)

func TestOutreachAPI(t *testing.T) {
	fix := setup(t)
	ctx := context.Background()

	tpl, err := fix.outRepo.UpdateTemplate(ctx, outreach.Template{
		Channel: outreach.ChannelSMS,
		Body:    "{nome}: R$ {valor} vencido em {data_vencimento}.",
	})
	if err != nil {
		t.Fatalf("seeding template failed: %v", err)
	}

	ana := testutil.CreateMember(t, fix.mbrRepo, "Ana", "ana@test.br", member.CategoryPrimary, member.StatusActive, "")
	ana.Phone = "+55 11 91234-5678"
	if _, err := fix.mbrRepo.UpdateMember(ctx, ana); err != nil {
		t.Fatalf("updating member failed: %v", err)
	}
	testutil.CreateDue(t, fix.billingRepo, ana, billing.NewPeriod(2024, time.February),
		decimal.RequireFromString("150.00"), billing.StatusOverdue,
		time.Date(2024, time.February, 5, 0, 0, 0, 0, time.UTC))

	finance := testutil.CreateUser(t, fix.usrRepo, "Fin", "fin001", "fin@test.br", "LePassword7", user.TierFinance, true)
	desk := testutil.CreateUser(t, fix.usrRepo, "Desk", "desk01", "desk@test.br", "LePassword7", user.TierFrontDesk, true)

	tests := []httpTest{
		{
			name: "front desk has no outreach access", method: http.MethodGet, path: "/v1/outreach/templates",
			token: getToken(t, fix.conf, desk), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "finance lists templates", method: http.MethodGet, path: "/v1/outreach/templates",
			token: getToken(t, fix.conf, finance), wantCode: http.StatusOK,
			wantData: marchallObj(t, []outreach.Template{tpl}),
		},
		{
			name: "unknown channel is rejected", method: http.MethodGet, path: "/v1/outreach/templates/fax",
			token: getToken(t, fix.conf, finance), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: outreach.ErrUnknownChannel.Error()}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			fix.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	// preview renders notices for the overdue due without sending anything
	req, rec := newAuthRequest(http.MethodPost, "/v1/outreach/preview", getToken(t, fix.conf, finance),
		[]byte(`{"channel": "sms", "as_of": "2024-03-01T00:00:00Z"}`))
	fix.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("previewing notices: code = %d; body %s", rec.Code, rec.Body.String())
	}
	var notices []outreach.Notice
	if err := json.Unmarshal(rec.Body.Bytes(), &notices); err != nil {
		t.Fatalf("unmarshalling notices: %v", err)
	}
	if len(notices) != 1 {
		t.Fatalf("got %d notices, want 1", len(notices))
	}
	if notices[0].Recipient != ana.Phone {
		t.Errorf("recipient = %q, want %q", notices[0].Recipient, ana.Phone)
	}
	if notices[0].Body != "Ana: R$ 150.00 vencido em 05/02/2024." {
		t.Errorf("body = %q", notices[0].Body)
	}
}

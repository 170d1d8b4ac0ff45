package echoapi_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/clubemanager/backend/core/member"
	"github.com/clubemanager/backend/core/user"
	testutil "github.com/clubemanager/backend/tests"
)

func TestMemberAPI(t *testing.T) {
	fix := setup(t)

	finance := testutil.CreateUser(t, fix.usrRepo, "Fin", "fin001", "fin@test.br", "LePassword7", user.TierFinance, true)
	desk := testutil.CreateUser(t, fix.usrRepo, "Desk", "desk01", "desk@test.br", "LePassword7", user.TierFrontDesk, true)

	ana := testutil.CreateMember(t, fix.mbrRepo, "Ana", "ana@test.br", member.CategoryPrimary, member.StatusActive, "")

	tests := []httpTest{
		{
			name: "anonymous is rejected", method: http.MethodGet, path: "/v1/members",
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "front desk reads the roster", method: http.MethodGet, path: "/v1/members",
			token: getToken(t, fix.conf, desk), wantCode: http.StatusOK,
			wantData: marchallObj(t, []member.Member{ana}),
		},
		{
			name: "front desk reads one member", method: http.MethodGet, path: "/v1/members/" + ana.ID,
			token: getToken(t, fix.conf, desk), wantCode: http.StatusOK, wantData: marchallObj(t, ana),
		},
		{
			name: "front desk cannot enroll", method: http.MethodPost, path: "/v1/members",
			body:  []byte(`{"name": "Beto", "category": "primary"}`),
			token: getToken(t, fix.conf, desk), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "unknown member is a 404", method: http.MethodGet, path: "/v1/members/a7a8e0a0-0000-0000-0000-000000000000",
			token: getToken(t, fix.conf, desk), wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
		{
			name: "dependent without sponsor is rejected", method: http.MethodPost, path: "/v1/members",
			body:  []byte(`{"name": "Duda", "category": "dependent"}`),
			token: getToken(t, fix.conf, finance), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"sponsor_id": member.ErrSponsorRequired.Error()}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			fix.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	// finance enrolls a new member
	req, rec := newAuthRequest(http.MethodPost, "/v1/members", getToken(t, fix.conf, finance),
		[]byte(`{"name": "Beto", "email": "beto@test.br", "category": "contributor"}`))
	fix.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("enrolling member: code = %d; body %s", rec.Code, rec.Body.String())
	}
	var beto member.Member
	if err := json.Unmarshal(rec.Body.Bytes(), &beto); err != nil {
		t.Fatalf("unmarshalling member: %v", err)
	}
	if beto.Status != member.StatusActive {
		t.Errorf("status = %s, want active", beto.Status)
	}

	// finance suspends them
	req, rec = newAuthRequest(http.MethodPut, "/v1/members/"+beto.ID+"/status", getToken(t, fix.conf, finance),
		[]byte(`{"status": "suspended"}`))
	fix.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("suspending member: code = %d; body %s", rec.Code, rec.Body.String())
	}
}

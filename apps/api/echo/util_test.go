package echoapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	echoapi "github.com/clubemanager/backend/apps/api/echo"
	"github.com/clubemanager/backend/core"
	"github.com/clubemanager/backend/core/billing"
	"github.com/clubemanager/backend/core/event"
	"github.com/clubemanager/backend/core/member"
	"github.com/clubemanager/backend/core/outreach"
	"github.com/clubemanager/backend/core/user"
	emailsvc "github.com/clubemanager/backend/services/email"
	inmemdb "github.com/clubemanager/backend/storage/database/inmem"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type fixture struct {
	conf        *core.Config
	server      echoapi.Server
	usrRepo     user.Repository
	mbrRepo     member.Repository
	billingRepo billing.Repository
	eventRepo   event.Repository
	outRepo     outreach.Repository
	billingSvc  billing.ServiceInterface
	eventSvc    event.ServiceInterface
}

// nopLogger drops everything; API tests assert on responses, not logs.
type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

func setup(t *testing.T) *fixture {
	t.Helper()

	conf := &core.Config{
		AppName:   "ClubeManager",
		SecretKey: "s3cr3t-t3st-k3y",
		TestMode:  true,
		Server: core.ServerConfig{
			JWTExpirationDelta:        10 * time.Minute,
			JWTRefreshExpirationDelta: time.Hour,
		},
	}

	// set up DB & repos
	db := inmemdb.NewDB()
	usrRepo := inmemdb.NewUserRepository(db)
	mbrRepo := inmemdb.NewMemberRepository(db)
	billingRepo := inmemdb.NewBillingRepository(db)
	eventRepo := inmemdb.NewEventRepository(db)
	outRepo := inmemdb.NewOutreachRepository(db)

	// set up services
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	usrSvc := user.NewServiceMock(nil, usrRepo, mailSvc, conf)
	mbrSvc := member.NewService(nil, mbrRepo, conf)
	billingSvc := billing.NewService(nil, billingRepo, mbrRepo, conf)
	eventSvc := event.NewService(nil, eventRepo, mbrRepo, conf)
	outSvc := outreach.NewService(nil, outRepo, billingRepo, mbrRepo, conf)

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	member.InitValidators(validate, translator)
	billing.InitValidators(validate, translator)
	event.InitValidators(validate, translator)

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:           conf,
			Logger:         nopLogger{},
			UserSvc:        usrSvc,
			MemberSvc:      mbrSvc,
			BillingSvc:     billingSvc,
			EventSvc:       eventSvc,
			OutreachSvc:    outSvc,
			Validate:       validate,
			Translator:     translator,
			DisableReqLogs: true,
		},
	)

	return &fixture{
		conf:        conf,
		server:      server,
		usrRepo:     usrRepo,
		mbrRepo:     mbrRepo,
		billingRepo: billingRepo,
		eventRepo:   eventRepo,
		outRepo:     outRepo,
		billingSvc:  billingSvc,
		eventSvc:    eventSvc,
	}
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, conf *core.Config, usr user.User) string {
	claims := echoapi.GetUserClaims(conf, usr)
	token, err := echoapi.GenerateToken(conf, claims)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

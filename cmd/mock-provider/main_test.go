package main

import (
	"bytes"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"handyvoice/internal/providers/plivo"
)

func newTestServer() *server {
	return &server{
		cfg: config{
			AuthID:      "MAID",
			AuthToken:   "tok",
			Outcomes:    []string{"ok"},
			SurveyDigit: "4",
		},
		rng:    rand.New(rand.NewSource(1)),
		client: &http.Client{Timeout: 2 * time.Second},
	}
}

func TestHandleCallDrivesSurveyFlow(t *testing.T) {
	var (
		mu    sync.Mutex
		forms = map[string]map[string]string{}
		done  = make(chan struct{})
	)
	var app *httptest.Server
	app = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		mu.Lock()
		forms[r.URL.Path] = map[string]string{}
		for k := range r.PostForm {
			forms[r.URL.Path][k] = r.PostForm.Get(k)
		}
		mu.Unlock()

		switch r.URL.Path {
		case "/surveyCallAnswered":
			doc, _ := plivo.NewResponse().AddGetDigits(plivo.GetDigitsOptions{
				Action: app.URL + "/surveyResult", Timeout: 5, NumDigits: 1,
			}, "rate us").ToXML()
			_, _ = w.Write(doc)
		case "/hangup/":
			_, _ = w.Write([]byte("OK"))
			close(done)
		default:
			_, _ = w.Write([]byte("<Response></Response>"))
		}
	}))
	defer app.Close()

	s := newTestServer()
	body, _ := json.Marshal(callRequest{
		From: "18005550100", To: "555-1212",
		AnswerURL: app.URL + "/surveyCallAnswered", HangupURL: app.URL + "/hangup/",
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/Account/MAID/Call/", bytes.NewReader(body))
	req.SetBasicAuth("MAID", "tok")
	rr := httptest.NewRecorder()
	s.routes().ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp plivo.CallResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil || resp.Message != "call fired" || resp.RequestUUID == "" {
		t.Fatalf("unexpected body %s (%v)", rr.Body.String(), err)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("call flow never reached hangup")
	}

	mu.Lock()
	defer mu.Unlock()
	if got := forms["/surveyResult"]; got["Digits"] != "4" || got["To"] != "555-1212" {
		t.Errorf("unexpected digit callback %v", got)
	}
	hangup := forms["/hangup/"]
	if hangup["CallUUID"] != resp.RequestUUID || hangup["HangupCauseName"] == "" || hangup["TotalCost"] == "" {
		t.Errorf("unexpected hangup callback %v", hangup)
	}
}

func TestHandleCallRejectsBadAuth(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodPost, "/v1/Account/MAID/Call/", bytes.NewReader([]byte(`{}`)))
	req.SetBasicAuth("MAID", "wrong")
	rr := httptest.NewRecorder()
	s.routes().ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestHandleCallConfiguredFailure(t *testing.T) {
	s := newTestServer()
	s.cfg.Outcomes = []string{"bad_request"}
	body, _ := json.Marshal(callRequest{From: "1", To: "2", AnswerURL: "http://x/a"})
	req := httptest.NewRequest(http.MethodPost, "/v1/Account/MAID/Call/", bytes.NewReader(body))
	req.SetBasicAuth("MAID", "tok")
	rr := httptest.NewRecorder()
	s.routes().ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

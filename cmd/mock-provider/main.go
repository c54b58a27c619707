package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/kelseyhightower/envconfig"

	"handyvoice/internal/logging"
	"handyvoice/internal/providers/plivo"
)

type config struct {
	AuthID      string `envconfig:"PLIVO_AUTH_ID" default:"mock_auth_id"`
	AuthToken   string `envconfig:"PLIVO_AUTH_TOKEN" default:"mock_token"`
	Port        string `envconfig:"PORT" default:"8080"`
	LogFormat   string `envconfig:"LOG_FORMAT" default:"json"`
	OutcomeMode string `envconfig:"MOCK_OUTCOME_MODE" default:"fixed"`
	OutcomesRaw string `envconfig:"MOCK_OUTCOMES" default:"ok"`
	SurveyDigit string `envconfig:"MOCK_SURVEY_DIGIT" default:"5"`

	AnswerDelayMs int `envconfig:"MOCK_ANSWER_DELAY_MS" default:"500"`
	DigitDelayMs  int `envconfig:"MOCK_DIGIT_DELAY_MS" default:"1500"`
	HangupDelayMs int `envconfig:"MOCK_HANGUP_DELAY_MS" default:"500"`

	// Callback retry knobs. Retries happen on 429/5xx and transport errors.
	CallbackMaxRetries int `envconfig:"MOCK_CALLBACK_MAX_RETRIES" default:"3"`
	CallbackRetryBaseMs int `envconfig:"MOCK_CALLBACK_RETRY_BASE_MS" default:"250"`

	Outcomes      []string
	AnswerDelay   time.Duration
	DigitDelay    time.Duration
	HangupDelay   time.Duration
	RetryBase     time.Duration
}

// callRequest is the subset of the Plivo Call API body the mock understands.
type callRequest struct {
	From         string `json:"from"`
	To           string `json:"to"`
	AnswerURL    string `json:"answer_url"`
	AnswerMethod string `json:"answer_method"`
	HangupURL    string `json:"hangup_url"`
}

type server struct {
	cfg    config
	idx    uint64
	rng    *rand.Rand
	rngMu  sync.Mutex
	client *http.Client
}

func main() {
	cfg := loadConfig()
	logging.Init("mock-provider", cfg.LogFormat, "info")

	s := &server{
		cfg:    cfg,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		client: &http.Client{Timeout: 5 * time.Second},
	}

	slog.Info("mock provider listening", "port", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, loggingMiddleware(s.routes())); err != nil {
		slog.Error("mock provider server failed", "err", err)
		os.Exit(1)
	}
}

func (s *server) routes() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/v1/Account/{authID}/Call/", s.handleCall).Methods(http.MethodPost)
	return router
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		slog.Info("mock provider request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func loadConfig() config {
	var cfg config
	if err := envconfig.Process("", &cfg); err != nil {
		slog.Error("mock provider config load failed", "err", err)
		os.Exit(1)
	}
	cfg.OutcomeMode = strings.ToLower(cfg.OutcomeMode)
	cfg.Outcomes = parseCSV(cfg.OutcomesRaw)
	cfg.AnswerDelay = time.Duration(cfg.AnswerDelayMs) * time.Millisecond
	cfg.DigitDelay = time.Duration(cfg.DigitDelayMs) * time.Millisecond
	cfg.HangupDelay = time.Duration(cfg.HangupDelayMs) * time.Millisecond
	if cfg.CallbackMaxRetries < 0 {
		cfg.CallbackMaxRetries = 0
	}
	if cfg.CallbackRetryBaseMs <= 0 {
		cfg.CallbackRetryBaseMs = 250
	}
	cfg.RetryBase = time.Duration(cfg.CallbackRetryBaseMs) * time.Millisecond
	return cfg
}

func (s *server) handleCall(w http.ResponseWriter, r *http.Request) {
	apiID := uuid.NewString()

	if mux.Vars(r)["authID"] != s.cfg.AuthID || !s.checkBasicAuth(r) {
		writeError(w, http.StatusUnauthorized, apiID, "authentication failed")
		return
	}

	var req callRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, apiID, "invalid json body")
		return
	}
	if req.From == "" || req.To == "" || req.AnswerURL == "" {
		writeError(w, http.StatusBadRequest, apiID, "from, to and answer_url are required")
		return
	}

	if status, msg := classifyOutcome(s.nextOutcome()); status != http.StatusCreated {
		writeError(w, status, apiID, msg)
		return
	}

	callUUID := uuid.NewString()
	writeJSON(w, http.StatusCreated, plivo.CallResponse{
		APIID:       apiID,
		Message:     "call fired",
		RequestUUID: callUUID,
	})

	go s.driveCall(context.Background(), callUUID, req)
}

// driveCall plays the callee side: answer, press the configured digit, hang up.
func (s *server) driveCall(ctx context.Context, callUUID string, req callRequest) {
	start := time.Now().UTC()
	base := url.Values{}
	base.Set("CallUUID", callUUID)
	base.Set("From", req.From)
	base.Set("To", req.To)
	base.Set("Direction", "outbound")

	sleep(s.cfg.AnswerDelay)
	answered := cloneForm(base)
	answered.Set("CallStatus", "in-progress")
	body, err := s.postWithRetry(ctx, req.AnswerURL, answered)
	if err != nil {
		slog.Error("mock answer callback failed", "err", err, "call_uuid", callUUID)
	} else if err := s.pressDigits(ctx, body, base); err != nil {
		slog.Error("mock digit callback failed", "err", err, "call_uuid", callUUID)
	}

	if req.HangupURL == "" {
		return
	}
	sleep(s.cfg.HangupDelay)
	duration := int(time.Since(start).Seconds()) + 1
	hangup := cloneForm(base)
	hangup.Set("CallStatus", "completed")
	hangup.Set("StartTime", start.Format("2006-01-02 15:04:05"))
	hangup.Set("EndTime", time.Now().UTC().Format("2006-01-02 15:04:05"))
	hangup.Set("Duration", strconv.Itoa(duration))
	hangup.Set("BillDuration", strconv.Itoa(60*((duration+59)/60)))
	hangup.Set("TotalCost", fmt.Sprintf("%.5f", 0.0085*float64((duration+59)/60)))
	hangup.Set("HangupCauseName", "Normal Hangup")
	hangup.Set("HangupSource", "Callee")
	if _, err := s.postWithRetry(ctx, req.HangupURL, hangup); err != nil {
		slog.Error("mock hangup callback failed", "err", err, "call_uuid", callUUID)
	}
}

// pressDigits answers the first GetDigits in doc, if there is one.
func (s *server) pressDigits(ctx context.Context, doc []byte, base url.Values) error {
	resp, err := plivo.ParseResponse(doc)
	if err != nil {
		return fmt.Errorf("parse answer xml: %w", err)
	}
	gd, ok := resp.GetDigits()
	if !ok || gd.Action == "" {
		return nil
	}
	sleep(s.cfg.DigitDelay)
	form := cloneForm(base)
	form.Set("Digits", s.cfg.SurveyDigit)
	_, err = s.postWithRetry(ctx, gd.Action, form)
	return err
}

func (s *server) postWithRetry(ctx context.Context, callbackURL string, form url.Values) ([]byte, error) {
	maxAttempts := s.cfg.CallbackMaxRetries + 1

	for attempt := 0; attempt < maxAttempts; attempt++ {
		req, _ := http.NewRequestWithContext(ctx, http.MethodPost, callbackURL, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := s.client.Do(req)
		status := 0
		if err == nil {
			status = resp.StatusCode
			body, readErr := io.ReadAll(resp.Body)
			_ = resp.Body.Close()
			if status >= 200 && status < 300 {
				return body, readErr
			}
		}

		if attempt == maxAttempts-1 {
			if err != nil {
				return nil, err
			}
			return nil, fmt.Errorf("callback failed: status=%d", status)
		}
		if err == nil && !isRetryableStatus(status) {
			return nil, fmt.Errorf("callback non-retryable: status=%d", status)
		}

		wait := s.cfg.RetryBase * time.Duration(1<<attempt)
		slog.Warn("mock callback retrying", "url", callbackURL, "attempt", attempt+1, "status", status, "wait_ms", wait.Milliseconds())
		time.Sleep(wait)
	}
	return nil, errors.New("callback not attempted")
}

func isRetryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

func (s *server) checkBasicAuth(r *http.Request) bool {
	user, pass, ok := r.BasicAuth()
	if !ok {
		return false
	}
	return user == s.cfg.AuthID && pass == s.cfg.AuthToken
}

func (s *server) nextOutcome() string {
	switch s.cfg.OutcomeMode {
	case "round_robin":
		idx := atomic.AddUint64(&s.idx, 1) - 1
		return s.cfg.Outcomes[int(idx)%len(s.cfg.Outcomes)]
	case "random":
		s.rngMu.Lock()
		i := s.rng.Intn(len(s.cfg.Outcomes))
		s.rngMu.Unlock()
		return s.cfg.Outcomes[i]
	default:
		return s.cfg.Outcomes[0]
	}
}

func classifyOutcome(raw string) (int, string) {
	switch strings.TrimSpace(raw) {
	case "", "ok", "success":
		return http.StatusCreated, ""
	case "bad_request", "400":
		return http.StatusBadRequest, "invalid destination number"
	case "rate_limit", "429":
		return http.StatusTooManyRequests, "too many requests"
	case "server_error", "500":
		return http.StatusInternalServerError, "internal server error"
	default:
		return http.StatusInternalServerError, "mock error: " + raw
	}
}

func writeError(w http.ResponseWriter, status int, apiID, msg string) {
	writeJSON(w, status, plivo.CallResponse{APIID: apiID, Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func cloneForm(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vals := range v {
		out[k] = append([]string(nil), vals...)
	}
	return out
}

func sleep(d time.Duration) {
	if d > 0 {
		time.Sleep(d)
	}
}

func parseCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return []string{"ok"}
	}
	return out
}

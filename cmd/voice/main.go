package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"handyvoice/internal/awsutil"
	"handyvoice/internal/config"
	"handyvoice/internal/domain"
	"handyvoice/internal/httpserver"
	"handyvoice/internal/logging"
	"handyvoice/internal/observability"
	"handyvoice/internal/providers/plivo"
	"handyvoice/internal/publisher"
	sqsqueue "handyvoice/internal/queue/sqs"
	"handyvoice/internal/service"
	"handyvoice/internal/store"
)

func main() {
	cfg, err := config.LoadVoice()
	if err != nil {
		logging.Init("voice", "json", "info")
		slog.Error("voice config load failed", "err", err)
		os.Exit(1)
	}
	logging.Init("voice", cfg.LogFormat, cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := store.Open(ctx, cfg.StoreConfig)
	if err != nil {
		slog.Error("voice store open failed", "err", err, "driver", cfg.Driver)
		os.Exit(1)
	}
	defer st.Close()

	if cfg.DemoCustomerNumber != "" {
		if err := st.SeedAppointment(ctx, domain.Appointment{
			PhoneNumber:     cfg.DemoCustomerNumber,
			AppointmentTime: time.Now(),
			HandymanPhone:   cfg.DemoHandymanNumber,
		}); err != nil {
			slog.Error("voice demo appointment seed failed", "err", err)
			os.Exit(1)
		}
		slog.Info("voice demo appointment ready", "phone", cfg.DemoCustomerNumber)
	}

	var events publisher.Publisher
	if cfg.Broker != "" {
		p, err := publisher.NewMQTTPublisher(cfg.MQTTConfig.Options())
		if err != nil {
			slog.Error("voice mqtt connect failed", "err", err, "broker", cfg.Broker)
			os.Exit(1)
		}
		defer p.Close()
		events = p
	}

	var recorder service.Recorder = &service.StoreRecorder{Store: st, Events: events, TopicPrefix: cfg.TopicPrefix}
	if cfg.PersistMode == config.PersistQueue {
		sqsClient, err := awsutil.NewSQSClient(ctx, cfg.AWSRegion, cfg.LocalstackEndpoint)
		if err != nil {
			slog.Error("voice sqs client init failed", "err", err)
			os.Exit(1)
		}
		recorder = &sqsqueue.Producer{SQS: sqsClient, QueueURL: cfg.SQSQueueURL}
	}
	slog.Info("voice persistence", "mode", cfg.PersistMode, "driver", cfg.Driver)

	observability.Register(prometheus.DefaultRegisterer)

	caller := &plivo.Client{
		AuthID:    cfg.PlivoAuthID,
		AuthToken: cfg.PlivoAuthToken,
		BaseURL:   cfg.PlivoBaseURL,
		HTTP:      &http.Client{Timeout: 10 * time.Second},
	}
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "plivo-call",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
		// a rejected number is the caller's problem, not an outage
		IsSuccessful: func(err error) bool {
			var apiErr *plivo.APIError
			if errors.As(err, &apiErr) {
				return apiErr.Status < 500 && apiErr.Status != http.StatusTooManyRequests
			}
			return err == nil
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
		},
	})

	routing := cfg.Routing()
	voice := &httpserver.Voice{
		Router: &service.Router{
			Config: routing,
			Lookup: &service.Appointments{Store: st},
		},
		Surveys: &service.Surveys{
			Config:   routing,
			Caller:   caller,
			Recorder: recorder,
			Limiter:  rate.NewLimiter(rate.Limit(cfg.PlivoRPS), cfg.PlivoBurst),
			Breaker:  breaker,
		},
		Calls: &service.CallLog{Recorder: recorder},
	}

	s := httpserver.New(observability.WebhookRequests)
	voice.Register(s.Mux)
	s.RegisterHealth(func(ctx context.Context) error { return st.Ping(ctx) })

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           s.Mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	metricsSrv := &http.Server{Addr: ":" + cfg.MetricsPort, Handler: promhttp.Handler()}

	metricsErrCh := make(chan error, 1)
	go func() {
		slog.Info("voice metrics listening", "port", cfg.MetricsPort)
		metricsErrCh <- metricsSrv.ListenAndServe()
	}()
	srvErrCh := make(chan error, 1)
	go func() {
		slog.Info("voice listening", "port", cfg.Port, "public_base_url", routing.BaseURL)
		srvErrCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	exitCode := 0
	select {
	case err := <-srvErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("voice server failed", "err", err)
			exitCode = 1
		}
	case err := <-metricsErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("voice metrics server failed", "err", err)
			exitCode = 1
		}
	case sig := <-sigCh:
		slog.Info("voice shutdown", "signal", sig.String())
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)

	if exitCode != 0 {
		os.Exit(exitCode)
	}
}

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

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"handyvoice/internal/awsutil"
	"handyvoice/internal/config"
	"handyvoice/internal/httpserver"
	"handyvoice/internal/logging"
	"handyvoice/internal/observability"
	"handyvoice/internal/publisher"
	sqsqueue "handyvoice/internal/queue/sqs"
	"handyvoice/internal/service"
	"handyvoice/internal/store"
)

func main() {
	cfg, err := config.LoadRecorder()
	if err != nil {
		logging.Init("recorder", "json", "info")
		slog.Error("recorder config load failed", "err", err)
		os.Exit(1)
	}
	logging.Init("recorder", cfg.LogFormat, cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := store.Open(ctx, cfg.StoreConfig)
	if err != nil {
		slog.Error("recorder store open failed", "err", err, "driver", cfg.Driver)
		os.Exit(1)
	}
	defer st.Close()

	var events publisher.Publisher
	if cfg.Broker != "" {
		p, err := publisher.NewMQTTPublisher(cfg.MQTTConfig.Options())
		if err != nil {
			slog.Error("recorder mqtt connect failed", "err", err, "broker", cfg.Broker)
			os.Exit(1)
		}
		defer p.Close()
		events = p
	}
	recorder := &service.StoreRecorder{Store: st, Events: events, TopicPrefix: cfg.TopicPrefix}

	sqsClient, err := awsutil.NewSQSClient(ctx, cfg.AWSRegion, cfg.LocalstackEndpoint)
	if err != nil {
		slog.Error("recorder sqs client init failed", "err", err)
		os.Exit(1)
	}

	consumer := &sqsqueue.Consumer{
		SQS:               sqsClient,
		QueueURL:          cfg.SQSQueueURL,
		WaitTimeSeconds:   cfg.SQSWaitTime,
		MaxMessages:       cfg.SQSMaxMsgs,
		VisibilityTimeout: cfg.SQSVizTimeout,
	}

	observability.Register(prometheus.DefaultRegisterer)

	// health + metrics servers
	health := httpserver.New(nil)
	health.RegisterHealth(
		func(c context.Context) error { return st.Ping(c) },
		func(c context.Context) error {
			_, err := sqsClient.GetQueueAttributes(c, &sqs.GetQueueAttributesInput{
				QueueUrl:       &cfg.SQSQueueURL,
				AttributeNames: []types.QueueAttributeName{types.QueueAttributeNameQueueArn},
			})
			return err
		},
	)

	healthSrv := &http.Server{Addr: ":" + cfg.Port, Handler: health.Mux}
	metricsSrv := &http.Server{Addr: ":" + cfg.MetricsPort, Handler: promhttp.Handler()}

	healthErrCh := make(chan error, 1)
	go func() {
		slog.Info("recorder health listening", "port", cfg.Port)
		healthErrCh <- healthSrv.ListenAndServe()
	}()
	metricsErrCh := make(chan error, 1)
	go func() {
		slog.Info("recorder metrics listening", "port", cfg.MetricsPort)
		metricsErrCh <- metricsSrv.ListenAndServe()
	}()

	pollErrCh := make(chan error, 1)
	go func() {
		slog.Info("recorder starting poll", "queue_url", cfg.SQSQueueURL, "workers", cfg.RecorderConcurrency)
		pollErrCh <- consumer.PollConcurrent(ctx, cfg.RecorderConcurrency, func(ctx context.Context, ev sqsqueue.RecordEvent) error {
			// bounded so a stuck write is redriven instead of holding the worker
			dbCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			return sqsqueue.Apply(dbCtx, recorder, ev)
		})
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	exitCode := 0
	pollReturned := false
	select {
	case err := <-pollErrCh:
		pollReturned = true
		if err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("recorder poll failed", "err", err)
			exitCode = 1
		}
	case err := <-healthErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("recorder health server failed", "err", err)
			exitCode = 1
		}
	case err := <-metricsErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("recorder metrics server failed", "err", err)
			exitCode = 1
		}
	case sig := <-sigCh:
		slog.Info("recorder shutdown", "signal", sig.String())
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = healthSrv.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)

	if !waitForPoll(pollErrCh, pollReturned, 10*time.Second) {
		slog.Info("recorder shutdown timeout waiting for poll loop")
	}

	if exitCode != 0 {
		os.Exit(exitCode)
	}
}

// waitForPoll waits for the poll loop to report back, unless it already has.
// It returns false when timeout expires first.
func waitForPoll(pollErrCh <-chan error, returned bool, timeout time.Duration) bool {
	if returned {
		return true
	}
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-pollErrCh:
		return true
	case <-t.C:
		return false
	}
}

// Command worker polls all three priority streams and processes demo jobs,
// occasionally simulating transient failures and aborts to exercise the
// Nak/DLQ classification path.
package main

import (
	"context"
	"flag"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/quietstack/jetqueue/queue"
	"github.com/quietstack/jetqueue/tracing"
)

var (
	natsURL        = flag.String("nats-url", "nats://localhost:4222", "NATS server URL")
	namespace      = flag.String("namespace", "jetqueue", "queue namespace")
	workerID       = flag.String("worker-id", "worker-1", "unique id for this worker instance")
	metricsPort    = flag.String("metrics-port", "9090", "Prometheus metrics port")
	otlpEndpoint   = flag.String("otlp-endpoint", "localhost:4318", "OpenTelemetry OTLP HTTP endpoint")
	tracingEnabled = flag.Bool("tracing-enabled", true, "enable distributed tracing")
	failureRate    = flag.Float64("failure-rate", 0.1, "fraction of jobs that fail transiently")
	abortRate      = flag.Float64("abort-rate", 0.02, "fraction of jobs that abort permanently")
)

type demoJob struct {
	Name    string `json:"name"`
	Attempt int    `json:"attempt"`
}

func main() {
	flag.Parse()

	log.Printf("starting jetqueue worker %s", *workerID)

	tracingConfig := tracing.DefaultConfig("worker")
	tracingConfig.OTLPEndpoint = *otlpEndpoint
	tracingConfig.Enabled = *tracingEnabled

	shutdownTracing, err := tracing.InitTracer(tracingConfig)
	if err != nil {
		log.Fatalf("init tracing: %v", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Printf("shutdown tracing: %v", err)
		}
	}()

	cfg := queue.LoadConfig()
	cfg.Namespace = *namespace

	ctx, cancel := context.WithCancel(context.Background())

	storage, err := queue.NewStorage[demoJob](ctx, *natsURL, cfg)
	if err != nil {
		log.Fatalf("connect storage: %v", err)
	}
	defer storage.Close()

	go func() {
		http.Handle("/metrics", promhttp.Handler())
		addr := ":" + *metricsPort
		log.Printf("metrics server listening on %s", addr)
		if err := http.ListenAndServe(addr, nil); err != nil {
			log.Printf("metrics server error: %v", err)
		}
	}()

	deliveries := storage.Poll(ctx, *workerID)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Printf("shutting down worker %s", *workerID)
		cancel()
	}()

	for delivery := range deliveries {
		handle(storage, delivery)
	}

	log.Printf("worker %s stopped", *workerID)
}

func handle(storage *queue.Storage[demoJob], d queue.Delivery[demoJob]) {
	handlerCtx := d.Ctx.ExtractedContext(context.Background())
	tracer := tracing.Tracer("worker")
	handlerCtx, span := tracer.Start(handlerCtx, "worker.handleJob")
	defer span.End()

	hb, err := d.Ctx.StartProgressHeartbeat(10*time.Second, 30*time.Second)
	if err == nil {
		defer hb.Stop()
	}

	log.Printf("handling job %s (%s) priority=%s attempt=%d",
		d.Job.ID, d.Job.Payload.Name, d.Ctx.Priority(), d.Ctx.DeliveredCount())

	var handlerErr error
	switch roll := rand.Float64(); {
	case roll < *abortRate:
		handlerErr = queue.Abort(errAbortedJob)
	case roll < *abortRate+*failureRate:
		handlerErr = errTransientJob
	default:
		time.Sleep(10 * time.Millisecond)
	}

	if handlerErr != nil {
		tracing.RecordError(handlerCtx, handlerErr)
	}

	logOutcome(d, handlerErr)
	storage.Report(queue.Decision{Ctx: d.Ctx, Err: handlerErr})
}

func logOutcome(d queue.Delivery[demoJob], handlerErr error) {
	switch {
	case handlerErr == nil:
		color.Green("job %s ok", d.Job.ID)
	case queue.IsAbort(handlerErr):
		color.Red("job %s aborted: %v", d.Job.ID, handlerErr)
	default:
		color.Yellow("job %s failed, will retry: %v", d.Job.ID, handlerErr)
	}
}

var (
	errAbortedJob   = jobError("job payload permanently invalid")
	errTransientJob = jobError("simulated transient downstream failure")
)

type jobError string

func (e jobError) Error() string { return string(e) }

// Command producer enqueues demo jobs onto the priority queues at a fixed
// rate, picking a random priority for each job, for exercising the worker
// and dashboard commands end to end.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/quietstack/jetqueue/queue"
	"github.com/quietstack/jetqueue/tracing"
)

var (
	natsURL        = flag.String("nats-url", "nats://localhost:4222", "NATS server URL")
	namespace      = flag.String("namespace", "jetqueue", "queue namespace")
	rate           = flag.Duration("rate", 200*time.Millisecond, "interval between enqueued jobs")
	otlpEndpoint   = flag.String("otlp-endpoint", "localhost:4318", "OpenTelemetry OTLP HTTP endpoint")
	tracingEnabled = flag.Bool("tracing-enabled", true, "enable distributed tracing")
)

// demoJob is the payload shape shared by the producer and worker commands.
type demoJob struct {
	Name    string `json:"name"`
	Attempt int    `json:"attempt"`
}

func main() {
	flag.Parse()

	log.Printf("starting jetqueue producer")
	log.Printf("NATS URL: %s, namespace: %s", *natsURL, *namespace)

	tracingConfig := tracing.DefaultConfig("producer")
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
	defer cancel()

	storage, err := queue.NewStorage[demoJob](ctx, *natsURL, cfg)
	if err != nil {
		log.Fatalf("connect storage: %v", err)
	}
	defer storage.Close()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	priorities := []queue.Priority{queue.High, queue.Medium, queue.Low}
	ticker := time.NewTicker(*rate)
	defer ticker.Stop()

	var count int
	for {
		select {
		case <-sigCh:
			log.Printf("shutting down, enqueued %d jobs", count)
			return
		case <-ticker.C:
			p := priorities[rand.Intn(len(priorities))]
			job := demoJob{Name: fmt.Sprintf("demo-job-%d", count), Attempt: 1}

			id, err := storage.PushWithPriority(ctx, job, p)
			if err != nil {
				log.Printf("push failed: %v", err)
				continue
			}
			count++
			log.Printf("enqueued %s at priority %s (id=%s)", job.Name, p, id)
		}
	}
}

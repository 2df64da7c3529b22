// Command dashboard serves a WebSocket feed of queue depth and DLQ events
// alongside a small HTTP API, for operator consoles.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/quietstack/jetqueue/config"
	"github.com/quietstack/jetqueue/internal/dashboard"
	"github.com/quietstack/jetqueue/internal/server"
	"github.com/quietstack/jetqueue/queue"
	"github.com/quietstack/jetqueue/tracing"
)

type demoJob struct {
	Name    string `json:"name"`
	Attempt int    `json:"attempt"`
}

func main() {
	flag.Parse()
	cfg := config.Load()

	log.Printf("starting jetqueue dashboard on port %d", cfg.HTTP.Port)

	tracingConfig := tracing.DefaultConfig(cfg.Tracing.ServiceName)
	tracingConfig.OTLPEndpoint = cfg.Tracing.Endpoint
	tracingConfig.Enabled = cfg.Tracing.Enabled

	shutdownTracing, err := tracing.InitTracer(tracingConfig)
	if err != nil {
		log.Fatalf("init tracing: %v", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Printf("shutdown tracing: %v", err)
		}
	}()

	qcfg := queue.LoadConfig()

	ctx, cancel := context.WithCancel(context.Background())

	storage, err := queue.NewStorage[demoJob](ctx, cfg.NATS.URL, qcfg)
	if err != nil {
		log.Fatalf("connect storage: %v", err)
	}
	defer storage.Close()

	hub := dashboard.NewHub()
	go hub.Run(ctx)

	go pollQueueStats(ctx, storage, hub)

	handler := dashboard.NewHandler(hub)

	router := mux.NewRouter()
	router.HandleFunc("/ws", handler.ServeHTTP)
	router.HandleFunc("/internal/broadcast", handler.HandleBroadcast).Methods(http.MethodPost)
	router.HandleFunc("/internal/stats", handler.HandleStats).Methods(http.MethodGet)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: cfg.HTTP.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
	}).Handler(router)

	srv := server.NewServer(":"+strconv.Itoa(cfg.HTTP.Port), corsHandler, nil)

	go func() {
		if err := srv.Start(); err != nil {
			log.Printf("dashboard server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Printf("shutting down dashboard")
	cancel()
	if err := srv.Shutdown(5 * time.Second); err != nil {
		log.Printf("server shutdown error: %v", err)
	}
}

// pollQueueStats periodically snapshots QueueInfo and pushes it to the
// queue_stats channel, and reports any DLQ growth on dlq_events.
func pollQueueStats(ctx context.Context, storage *queue.Storage[demoJob], hub *dashboard.Hub) {
	ticker := time.NewTicker(3 * time.Second)
	defer ticker.Stop()

	var lastDLQ int
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			info, err := storage.QueueInfo(ctx)
			if err != nil {
				log.Printf("queue info error: %v", err)
				continue
			}

			data := map[string]interface{}{
				"pending":         pendingByName(info.Pending),
				"ack_pending":     pendingByName(info.AckPending),
				"dlq_pending":     info.DLQPending,
				"streams_healthy": info.StreamsHealthy,
			}
			hub.BroadcastToChannel("queue_stats", data)

			if info.DLQPending > lastDLQ {
				hub.BroadcastToChannel("dlq_events", map[string]interface{}{
					"dlq_pending": info.DLQPending,
					"delta":       info.DLQPending - lastDLQ,
				})
			}
			lastDLQ = info.DLQPending
		}
	}
}

func pendingByName(m map[queue.Priority]int) map[string]int {
	out := make(map[string]int, len(m))
	for p, v := range m {
		out[p.String()] = v
	}
	return out
}


// Command mock-source serves a deterministic rendition of the source
// API for local end-to-end runs. Point edusync at it with the field
// mappings from edusync.example.yaml.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"time"

	"github.com/edupulse/edusync/internal/mocksource"
	"github.com/edupulse/edusync/pkg/logger"
)

const readHeaderTimeout = 5 * time.Second

func main() {
	var (
		addr     = flag.String("addr", ":9070", "listen address")
		students = flag.Int("students", 200, "number of students to generate")
		seed     = flag.Int64("seed", 1, "dataset random seed")
		appID    = flag.String("app-id", "mock-app", "expected X-App-ID header (empty disables auth)")
		apiKey   = flag.String("api-key", "mock-key", "expected X-API-Key header")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	log := logger.Get()

	ctx := context.Background()
	data := mocksource.Generate(*students, *seed)
	srv := &http.Server{
		Addr:              *addr,
		Handler:           mocksource.NewServer(data, *appID, *apiKey).Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	log.Info(ctx, "mock source listening",
		logger.String("addr", *addr),
		logger.Int("students", *students),
		logger.Int64("seed", *seed))
	if err := srv.ListenAndServe(); err != nil {
		log.Fatal(ctx, "mock source failed", logger.Error(err))
	}
}

package main

import (
	"context"
	"crypto/tls"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/mdobak/go-xerrors"

	"spectrum-monitor/db"
	"spectrum-monitor/spectrum"
	"spectrum-monitor/utils"
)

func main() {
	if err := utils.CreateFolder("data"); err != nil {
		logger := utils.GetLogger()
		err := xerrors.New(err)
		ctx := context.Background()
		logger.ErrorContext(ctx, "Failed to create data dir.", slog.Any("error", err))
	}

	if len(os.Args) < 2 {
		fmt.Println("Expected 'serve' subcommand")
		os.Exit(1)
	}
	_ = godotenv.Load()

	switch os.Args[1] {
	case "serve":
		serveCmd := flag.NewFlagSet("serve", flag.ExitOnError)
		protocol := serveCmd.String("proto", "http", "Protocol to use (http or https)")
		port := serveCmd.String("p", "5000", "Port to use")
		serveCmd.Parse(os.Args[2:])
		serve(*protocol, *port)
	default:
		fmt.Println("Expected 'serve' subcommand")
		os.Exit(1)
	}
}

func serve(protocol, port string) {
	logger := utils.GetLogger()
	ctx := context.Background()

	store, err := db.NewDBClient()
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer store.Close()

	if err := store.SeedLocations(db.DefaultLocations()); err != nil {
		log.Fatalf("failed to seed locations: %v", err)
	}

	var analyzer spectrum.Analyzer
	analyzer, err = spectrum.NewGeminiAnalyzer(ctx)
	if err != nil {
		// Degraded mode: every classification falls back to the
		// non-anomalous default verdict instead of crashing.
		logger.WarnContext(ctx, "Gemini analyzer unavailable, running degraded",
			slog.Any("error", xerrors.New(err)))
		analyzer = &spectrum.UnavailableAnalyzer{Reason: err.Error()}
	}

	controller := newSocketController(store)
	go func() {
		if err := controller.Serve(); err != nil {
			log.Fatalf("socketio listen error: %s\n", err)
		}
	}()
	defer controller.Close()

	srv := newAPIServer(store, analyzer, controller)
	router := newRouter(srv, controller.Handler())

	serveHTTP(protocol == "https", port, router)
}

func serveHTTP(serveHTTPS bool, port string, handler http.Handler) {
	if serveHTTPS {
		httpsAddr := ":" + port
		httpsServer := &http.Server{
			Addr: httpsAddr,
			TLSConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
			Handler: handler,
		}

		certKey := utils.GetEnv("CERT_KEY", filepath.Join("certs", "privkey.pem"))
		certFile := utils.GetEnv("CERT_FILE", filepath.Join("certs", "fullchain.pem"))
		if certKey == "" || certFile == "" {
			log.Fatal("Missing cert")
		}

		log.Printf("Starting HTTPS server on %s\n", httpsAddr)
		if err := httpsServer.ListenAndServeTLS(certFile, certKey); err != nil {
			log.Fatalf("HTTPS server ListenAndServeTLS: %v", err)
		}
	}

	log.Printf("Starting HTTP server on port %v", port)
	if err := http.ListenAndServe(":"+port, handler); err != nil {
		log.Fatalf("HTTP server ListenAndServe: %v", err)
	}
}

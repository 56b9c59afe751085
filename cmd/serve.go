package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/facewatch/facewatch/internal/activity"
	"github.com/facewatch/facewatch/internal/config"
	"github.com/facewatch/facewatch/internal/embedding"
	"github.com/facewatch/facewatch/internal/recognition"
	"github.com/facewatch/facewatch/internal/store"
	"github.com/facewatch/facewatch/internal/store/postgres"
	"github.com/facewatch/facewatch/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the recognition web server",
	Long: `Start the FaceWatch web server.
The server exposes the enrollment, recognition and ledger API and streams
live recognition events to connected clients.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
	serveCmd.Flags().String("session-secret", "", "Secret for signing session cookies")
}

// resolveServeHostPort resolves port, host and session secret from flags
// with environment variable fallbacks.
func resolveServeHostPort(cmd *cobra.Command, cfg *config.Config) (int, string, string) {
	port := mustGetInt(cmd, "port")
	host := mustGetString(cmd, "host")
	sessionSecret := mustGetString(cmd, "session-secret")

	if sessionSecret == "" {
		sessionSecret = cfg.Web.SessionSecret
	}
	if !cmd.Flags().Changed("port") && cfg.Web.Port != 0 {
		port = cfg.Web.Port
	}
	if !cmd.Flags().Changed("host") && cfg.Web.Host != "" {
		host = cfg.Web.Host
	}
	return port, host, sessionSecret
}

// initDuplicateIndex builds the in-memory near-duplicate index from the
// enrolled gallery. Enrollment still works without it.
func initDuplicateIndex(ctx context.Context, gallery *postgres.IdentityRepository) *store.DuplicateIndex {
	dupIndex := store.NewDuplicateIndex()
	identities, err := gallery.ScanAll(ctx)
	if err != nil {
		fmt.Printf("Warning: failed to build duplicate index: %v\n", err)
		return dupIndex
	}
	dupIndex.BuildFromIdentities(identities)
	fmt.Printf("Duplicate index built with %d embeddings\n", dupIndex.Count())
	return dupIndex
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}

	fmt.Printf("Connecting to PostgreSQL database...\n")
	pool, err := postgres.NewPool(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	defer pool.Close()

	ctx := context.Background()
	if err := pool.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	gallery := postgres.NewIdentityRepository(pool)
	ledger := postgres.NewLedgerRepository(pool)
	operators := postgres.NewOperatorRepository(pool)
	sessionRepo := postgres.NewSessionRepository(pool)
	fmt.Printf("Session persistence enabled (PostgreSQL)\n")

	dupIndex := initDuplicateIndex(ctx, gallery)

	extractor := embedding.NewClient(cfg.Embedding.URL)
	recognizer := recognition.NewRecognizer(gallery, ledger, activity.NewHub(), cfg.Embedding.Dim, cfg.Recognition)

	port, host, sessionSecret := resolveServeHostPort(cmd, cfg)

	server := web.NewServer(web.Deps{
		Gallery:        gallery,
		Ledger:         ledger,
		Operators:      operators,
		Recognizer:     recognizer,
		Extractor:      extractor,
		DupIndex:       dupIndex,
		EmbeddingDim:   cfg.Embedding.Dim,
		SessionRepo:    sessionRepo,
		AllowedOrigins: cfg.Web.AllowedOrigins,
	}, host, port, sessionSecret)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Warning: shutdown error: %v\n", err)
		}
	}()

	return server.Start()
}

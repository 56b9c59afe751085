package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/facewatch/facewatch/internal/activity"
	"github.com/facewatch/facewatch/internal/config"
	"github.com/facewatch/facewatch/internal/embedding"
	"github.com/facewatch/facewatch/internal/recognition"
	"github.com/facewatch/facewatch/internal/store/postgres"
)

var recognizeCmd = &cobra.Command{
	Use:   "recognize <image>",
	Short: "Recognize a face image against the enrolled gallery",
	Long: `Run one recognition attempt from the command line.

The image is embedded by the model server and matched against every
enrolled identity. An accepted match is appended to the ledger, subject
to the per-identity cooldown window.`,
	Args: cobra.ExactArgs(1),
	RunE: runRecognize,
}

func init() {
	rootCmd.AddCommand(recognizeCmd)

	recognizeCmd.Flags().String("operator", "cli", "Operator name recorded with the match")
}

func runRecognize(cmd *cobra.Command, args []string) error {
	imagePath := args[0]
	operator := mustGetString(cmd, "operator")

	cfg := config.Load()
	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}

	data, err := os.ReadFile(imagePath)
	if err != nil {
		return fmt.Errorf("reading image: %w", err)
	}

	resized, err := embedding.ResizeImage(data, embedding.MaxImageSize)
	if err != nil {
		return fmt.Errorf("decoding image: %w", err)
	}

	ctx := context.Background()
	client := embedding.NewClient(cfg.Embedding.URL)
	query, err := client.Extract(ctx, resized)
	if err != nil {
		if errors.Is(err, embedding.ErrNoFaceDetected) {
			return fmt.Errorf("no face detected in %s", imagePath)
		}
		return fmt.Errorf("extracting embedding: %w", err)
	}

	pool, err := postgres.NewPool(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	defer pool.Close()

	gallery := postgres.NewIdentityRepository(pool)
	ledger := postgres.NewLedgerRepository(pool)
	recognizer := recognition.NewRecognizer(gallery, ledger, activity.NewHub(), cfg.Embedding.Dim, cfg.Recognition)

	result, err := recognizer.Recognize(ctx, query, recognition.Actor{Name: operator})
	if err != nil {
		return err
	}

	if !result.Matched() {
		fmt.Printf("No match (best score %.4f)\n", result.Score)
		return nil
	}

	fmt.Printf("Matched %s (%s)\n", result.IdentityName, result.IdentityID)
	fmt.Printf("  Method: %s\n", result.Method)
	fmt.Printf("  Score:  %.4f\n", result.Score)
	if result.NewlyLogged {
		fmt.Println("  Logged to ledger")
	} else {
		fmt.Println("  Suppressed by cooldown window")
	}

	return nil
}

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/facewatch/facewatch/internal/config"
	"github.com/facewatch/facewatch/internal/embedding"
	"github.com/facewatch/facewatch/internal/store"
	"github.com/facewatch/facewatch/internal/store/postgres"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll [images...]",
	Short: "Enroll identities into the gallery",
	Long: `Enroll identities into the gallery.

Single identity from the command line:

  facewatch enroll --id emp-001 --name "Jana Nováková" faces/jana-front.jpg faces/jana-side.jpg

Bulk enrollment from a YAML manifest (image paths are resolved relative to
the manifest file):

  facewatch enroll --manifest identities.yaml

Example manifest:

  identities:
    - external_id: emp-001
      name: Jana Nováková
      images:
        - faces/jana-front.jpg
        - faces/jana-side.jpg
    - external_id: emp-002
      name: Petr Svoboda
      images:
        - faces/petr.jpg`,
	Args: cobra.ArbitraryArgs,
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)

	enrollCmd.Flags().String("manifest", "", "YAML manifest for bulk enrollment")
	enrollCmd.Flags().String("id", "", "External ID of the identity to enroll")
	enrollCmd.Flags().String("name", "", "Display name of the identity to enroll")
	enrollCmd.Flags().String("registered-by", "cli", "Name recorded as the enrolling operator")
	enrollCmd.Flags().Bool("skip-existing", false, "Skip identities that are already enrolled instead of failing")
}

type enrollManifest struct {
	Identities []manifestIdentity `yaml:"identities"`
}

type manifestIdentity struct {
	ExternalID string   `yaml:"external_id"`
	Name       string   `yaml:"name"`
	Images     []string `yaml:"images"`
}

func loadManifest(path string) (*enrollManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	var manifest enrollManifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}

	for i, identity := range manifest.Identities {
		if identity.ExternalID == "" || identity.Name == "" {
			return nil, fmt.Errorf("manifest entry %d: external_id and name are required", i)
		}
		if len(identity.Images) == 0 {
			return nil, fmt.Errorf("manifest entry %s: at least one image is required", identity.ExternalID)
		}
	}

	return &manifest, nil
}

// extractManifestImage reads, downsizes and embeds one face image.
func extractManifestImage(ctx context.Context, client *embedding.Client, path string) ([]float32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}

	resized, err := embedding.ResizeImage(data, embedding.MaxImageSize)
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}

	vector, err := client.Extract(ctx, resized)
	if err != nil {
		return nil, fmt.Errorf("extracting embedding: %w", err)
	}
	return vector, nil
}

// enrollEntries resolves the two input modes into a common entry list.
// Manifest image paths are relative to the manifest file; command-line
// paths are used as given.
func enrollEntries(cmd *cobra.Command, args []string) ([]manifestIdentity, string, error) {
	manifestPath := mustGetString(cmd, "manifest")
	externalID := mustGetString(cmd, "id")
	name := mustGetString(cmd, "name")

	if manifestPath != "" {
		if externalID != "" || name != "" || len(args) > 0 {
			return nil, "", errors.New("--manifest cannot be combined with --id, --name or image arguments")
		}
		manifest, err := loadManifest(manifestPath)
		if err != nil {
			return nil, "", err
		}
		return manifest.Identities, filepath.Dir(manifestPath), nil
	}

	if externalID == "" || name == "" {
		return nil, "", errors.New("--id and --name are required unless --manifest is used")
	}
	if len(args) == 0 {
		return nil, "", errors.New("at least one image is required")
	}
	return []manifestIdentity{{ExternalID: externalID, Name: name, Images: args}}, ".", nil
}

func runEnroll(cmd *cobra.Command, args []string) error {
	registeredBy := mustGetString(cmd, "registered-by")
	skipExisting := mustGetBool(cmd, "skip-existing")

	entries, baseDir, err := enrollEntries(cmd, args)
	if err != nil {
		return err
	}

	cfg := config.Load()
	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}

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
	client := embedding.NewClient(cfg.Embedding.URL)

	bar := progressbar.NewOptions(len(entries),
		progressbar.OptionSetDescription("Enrolling"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("identities"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)

	var enrolled, skipped int
	var failures []string

	for _, entry := range entries {
		identity := store.Identity{
			ExternalID:   entry.ExternalID,
			Name:         entry.Name,
			RegisteredBy: registeredBy,
		}

		enrollErr := func() error {
			for _, imagePath := range entry.Images {
				if !filepath.IsAbs(imagePath) {
					imagePath = filepath.Join(baseDir, imagePath)
				}
				vector, err := extractManifestImage(ctx, client, imagePath)
				if err != nil {
					return fmt.Errorf("%s: %w", imagePath, err)
				}
				if cfg.Embedding.Dim > 0 && len(vector) != cfg.Embedding.Dim {
					return fmt.Errorf("%s: unexpected embedding dimensions: got %d, want %d", imagePath, len(vector), cfg.Embedding.Dim)
				}
				identity.Embeddings = append(identity.Embeddings, store.Embedding{
					Vector:   vector,
					Filename: filepath.Base(imagePath),
				})
			}
			return gallery.Create(ctx, &identity)
		}()

		switch {
		case enrollErr == nil:
			enrolled++
		case errors.Is(enrollErr, store.ErrDuplicateID) && skipExisting:
			skipped++
		case errors.Is(enrollErr, store.ErrDuplicateID):
			failures = append(failures, fmt.Sprintf("%s: already enrolled", entry.ExternalID))
		default:
			failures = append(failures, fmt.Sprintf("%s: %v", entry.ExternalID, enrollErr))
		}
		_ = bar.Add(1)
	}

	fmt.Printf("\nEnrolled %d identities", enrolled)
	if skipped > 0 {
		fmt.Printf(", skipped %d already enrolled", skipped)
	}
	fmt.Println()

	if len(failures) > 0 {
		fmt.Printf("Failed to enroll %d identities:\n", len(failures))
		for _, failure := range failures {
			fmt.Printf("  - %s\n", failure)
		}
		return fmt.Errorf("%d identities failed to enroll", len(failures))
	}

	return nil
}

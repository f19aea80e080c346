package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jmcleod/facelock/auth"
	"github.com/jmcleod/facelock/credstore"
	"github.com/jmcleod/facelock/face"
	"github.com/jmcleod/facelock/liveness"
	"github.com/jmcleod/facelock/masterkey"
	bboltstorage "github.com/jmcleod/facelock/storage/bbolt"
)

var (
	dataDir     string
	detectorURL string
	lbpModel    string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "./data", "Directory for persistent data")
	rootCmd.PersistentFlags().StringVar(&detectorURL, "detector-url", "http://127.0.0.1:7500", "Base URL of the face detector sidecar")
	rootCmd.PersistentFlags().StringVar(&lbpModel, "lbp-model", "", "Path to a trained texture classifier (JSON); heuristic when unset")
}

// openCoordinator wires the storage, master key, provider, and coordinator.
// The returned closer releases the database and wipes the key material.
func openCoordinator(logger *slog.Logger) (*auth.Coordinator, func(), error) {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, nil, fmt.Errorf("creating data directory: %w", err)
	}

	repo, err := bboltstorage.Open(filepath.Join(dataDir, "credentials.db"), nil)
	if err != nil {
		return nil, nil, fmt.Errorf("opening credential storage: %w", err)
	}

	holder, err := masterkey.LoadOrCreate(filepath.Join(dataDir, "master.key"))
	if err != nil {
		repo.Close()
		return nil, nil, fmt.Errorf("loading master key: %w", err)
	}

	opts := []auth.Option{auth.WithLogger(logger)}
	if lbpModel != "" {
		tc, err := liveness.LoadLinearClassifier(lbpModel)
		if err != nil {
			holder.Destroy()
			repo.Close()
			return nil, nil, fmt.Errorf("loading texture classifier: %w", err)
		}
		opts = append(opts, auth.WithTextureClassifier(tc))
	}

	store := credstore.New(repo, holder)
	provider := face.NewHTTPProvider(detectorURL, nil)
	coord := auth.New(store, provider, auth.DefaultConfig(), opts...)

	closer := func() {
		holder.Destroy()
		repo.Close()
	}
	return coord, closer, nil
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, nil))
}

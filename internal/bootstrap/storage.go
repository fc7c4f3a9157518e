package bootstrap

import (
	"fmt"

	"github.com/jonesrussell/north-cloud/catalog/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/catalog/internal/blobstore"
	"github.com/jonesrussell/north-cloud/catalog/internal/config"
)

// SetupStorage opens the blob store on the local filesystem.
func SetupStorage(cfg *config.Config, log logger.Logger) (*blobstore.Store, error) {
	store, err := blobstore.New(cfg.Storage.Dir)
	if err != nil {
		return nil, fmt.Errorf("setup storage: %w", err)
	}
	log.Info("Blob storage ready", logger.String("dir", store.Dir()))
	return store, nil
}

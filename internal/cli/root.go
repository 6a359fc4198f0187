// Package cli implements the boulderctl maintenance commands. They work on
// the persisted collection directly and must not run against a store the
// server is writing at the same time.
package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"boulder-editor/internal/config"
	"boulder-editor/internal/repository"
	"boulder-editor/internal/service"
)

type options struct {
	storageType string
	storageKey  string
	cfg         *config.Config
}

// NewRootCmd builds the boulderctl command tree.
func NewRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "boulderctl",
		Short: "Manage a saved boulder collection",
		Long: `boulderctl lists, imports, exports and deletes saved boulders and checks
holds data files. It reads the same environment as the server.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if opts.storageType != "" {
				cfg.Storage.Type = strings.ToLower(opts.storageType)
			}
			if opts.storageKey != "" {
				cfg.Storage.Key = opts.storageKey
			}
			cfg.Logging.Apply()
			opts.cfg = cfg
			return nil
		},
	}

	root.PersistentFlags().StringVar(&opts.storageType, "storage", "", "storage backend (memory, filesystem, sqlite, badger, couchdb)")
	root.PersistentFlags().StringVar(&opts.storageKey, "key", "", "storage key of the collection")

	root.AddCommand(
		newListCmd(opts),
		newExportCmd(opts),
		newImportCmd(opts),
		newDeleteCmd(opts),
		newValidateCatalogueCmd(),
		newHashPassphraseCmd(),
	)
	return root
}

func Execute() error {
	return NewRootCmd().Execute()
}

// openCollection opens the configured store and loads the collection. The
// returned close func releases the store.
func openCollection(ctx context.Context, opts *options) (*service.CollectionService, func(), error) {
	store, err := repository.NewBlobStore(opts.cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open storage: %w", err)
	}
	closeFn := func() {
		if err := store.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close storage")
		}
	}

	collection := service.NewCollectionService(store, opts.cfg.Storage.Key)
	if err := collection.Load(ctx); err != nil {
		closeFn()
		return nil, nil, err
	}
	return collection, closeFn, nil
}

package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"boulder-editor/internal/catalogue"
	"boulder-editor/internal/domain"
	"boulder-editor/internal/interchange"
	"boulder-editor/internal/service"
	"boulder-editor/pkg/hash"
)

func newListCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved boulders sorted by name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			collection, closeFn, err := openCollection(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer closeFn()

			summaries := collection.Summaries()
			out := cmd.OutOrStdout()
			if len(summaries) == 0 {
				fmt.Fprintln(out, "No boulders saved yet.")
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tGRADE\tSTYLE\tHOLDS\tCREATED")
			for _, s := range summaries {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
					s.ID, s.Name, s.Grade, s.Style, s.HoldCount, s.CreatedAt.Format(time.DateOnly))
			}
			return tw.Flush()
		},
	}
}

func newExportCmd(opts *options) *cobra.Command {
	var outPath, holdsPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export every saved boulder as an interchange document",
		Long: `Writes every saved boulder in the interchange format. The wall size is taken
from the holds data file given with --holds or CATALOGUE_PATH.

Examples:
  boulderctl export --holds holds.json
  boulderctl export --holds holds.json --out backup.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if holdsPath == "" {
				holdsPath = opts.cfg.Catalogue.Path
			}
			if holdsPath == "" {
				return service.ErrExportNoCatalogue
			}
			cat, err := parseCatalogueFile(holdsPath)
			if err != nil {
				return err
			}

			collection, closeFn, err := openCollection(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer closeFn()

			boulders := collection.All()
			if len(boulders) == 0 {
				return service.ErrExportEmpty
			}

			if outPath == "" {
				return interchange.EncodeFile(cmd.OutOrStdout(), cat.ImageDimensions, boulders)
			}
			if info, err := os.Stat(outPath); err == nil && info.IsDir() {
				outPath = filepath.Join(outPath, interchange.ExportFilename(time.Now()))
			}
			f, err := os.Create(outPath)
			if err != nil {
				return fmt.Errorf("create export file: %w", err)
			}
			if err := interchange.EncodeFile(f, cat.ImageDimensions, boulders); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d boulders to %s\n", len(boulders), outPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file or directory (default stdout)")
	cmd.Flags().StringVar(&holdsPath, "holds", "", "holds data file providing the wall size")
	return cmd
}

func newImportCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Merge an interchange document into the collection",
		Long: `Adds every boulder of FILE whose id is not saved yet. Existing boulders are
never overwritten and malformed records are skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open import file: %w", err)
			}
			defer f.Close()

			records, err := interchange.DecodeFile(f)
			if err != nil {
				return err
			}

			collection, closeFn, err := openCollection(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer closeFn()

			result, err := collection.MergeImport(cmd.Context(), records)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d boulders. Skipped %d (duplicates or invalid format).\n",
				result.ImportedCount, result.SkippedCount)
			return nil
		},
	}
}

func newDeleteCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a saved boulder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			collection, closeFn, err := openCollection(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer closeFn()

			deleted, err := collection.Delete(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !deleted {
				return fmt.Errorf("%w: %s", domain.ErrBoulderNotFound, args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}

func newValidateCatalogueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate-catalogue FILE",
		Short: "Check a holds data file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := parseCatalogueFile(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wall: %gx%g\n", cat.ImageDimensions.Width, cat.ImageDimensions.Height)
			fmt.Fprintf(out, "Holds: %d\n", cat.Len())
			if len(cat.SkippedHolds) > 0 {
				fmt.Fprintf(out, "Skipped %d holds with invalid segmentation:\n", len(cat.SkippedHolds))
				for _, label := range cat.SkippedHolds {
					fmt.Fprintf(out, "  %s\n", label)
				}
			}
			return nil
		},
	}
}

func newHashPassphraseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-passphrase PASSPHRASE",
		Short: "Print a bcrypt hash for EDITOR_PASSPHRASE_HASH",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hashed, err := hash.Hash(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hashed)
			return nil
		},
	}
}

func parseCatalogueFile(path string) (*domain.Catalogue, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s does not exist", domain.ErrFetchFailed, path)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrFetchFailed, err)
	}
	defer f.Close()
	return catalogue.Parse(f)
}

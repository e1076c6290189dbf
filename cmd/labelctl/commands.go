package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hansupo/shad-label/internal/services"
)

func newRootCmd() *cobra.Command {
	var flags rootFlags
	root := &cobra.Command{
		Use:           "labelctl",
		Short:         "Manage label templates, products and attributes",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.driver, "driver", "", "store driver: sqlite or firestore (default from LABELS_STORE_DRIVER)")
	root.PersistentFlags().StringVar(&flags.dbPath, "db", "", "sqlite database path (default from LABELS_STORE_SQLITE_PATH)")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "warn", "log level")

	root.AddCommand(
		newSeedCmd(&flags),
		newImportCmd(&flags),
		newRenderCmd(&flags),
		newPDFCmd(&flags),
	)
	return root
}

// withApp opens the store for the duration of fn.
func withApp(cmd *cobra.Command, flags *rootFlags, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := openApp(ctx, *flags)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func newSeedCmd(flags *rootFlags) *cobra.Command {
	var catalogPath string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the sample attributes, template and products",
		Long: `Load the sample catalog. Entries whose name already exists are skipped,
so the command can be run repeatedly.

Examples:
  labelctl seed
  labelctl seed --catalog fixtures/shop.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var catalog *services.SeedCatalog
			if catalogPath != "" {
				data, err := os.ReadFile(catalogPath)
				if err != nil {
					return err
				}
				parsed, err := services.ParseSeedCatalog(data)
				if err != nil {
					return err
				}
				catalog = &parsed
			}
			return withApp(cmd, flags, func(ctx context.Context, a *app) error {
				seeder, err := services.NewSeedService(services.SeedServiceDeps{
					Attributes: a.attributes,
					Templates:  a.templates,
					Products:   a.products,
					Catalog:    catalog,
				})
				if err != nil {
					return err
				}
				res, err := seeder.Seed(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "attributes: %d created, %d skipped\n", res.AttributesCreated, res.AttributesSkipped)
				fmt.Fprintf(out, "templates:  %d created, %d skipped\n", res.TemplatesCreated, res.TemplatesSkipped)
				fmt.Fprintf(out, "products:   %d created, %d skipped\n", res.ProductsCreated, res.ProductsSkipped)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&catalogPath, "catalog", "", "YAML catalog to load instead of the built-in sample")
	return cmd
}

func newImportCmd(flags *rootFlags) *cobra.Command {
	var (
		nameColumn string
		dryRun     bool
	)
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Import products from a CSV or JSON file",
		Long: `Import products. Files ending in .json must hold {"products": [...]}; anything else is
parsed as CSV with the delimiter and encoding detected from the content.

Examples:
  labelctl import catalog.csv --dry-run
  labelctl import catalog.csv --name-column "Product name"
  labelctl import products.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			return withApp(cmd, flags, func(ctx context.Context, a *app) error {
				if strings.EqualFold(filepath.Ext(args[0]), ".json") {
					products, err := services.DecodeProductImport(data)
					if err != nil {
						return cliError(err)
					}
					if dryRun {
						fmt.Fprintf(out, "%d products would be imported\n", len(products))
						return nil
					}
					res, err := a.products.Import(ctx, services.ImportProductsCommand{Products: products, Source: "json"})
					if err != nil {
						return cliError(err)
					}
					fmt.Fprintf(out, "Successfully imported %d products\n", res.Count)
					return nil
				}

				opts := services.CSVOptions{NameColumn: nameColumn, FileName: filepath.Base(args[0])}
				if dryRun {
					preview, err := a.csv.Preview(ctx, bytes.NewReader(data), opts)
					if err != nil {
						return cliError(err)
					}
					printCSVPreview(out, preview)
					return nil
				}
				res, err := a.csv.Import(ctx, bytes.NewReader(data), opts)
				if err != nil {
					return cliError(err)
				}
				fmt.Fprintf(out, "Successfully imported %d products\n", res.Count)
				if res.Preview.Skipped > 0 {
					fmt.Fprintf(out, "%d rows skipped without a name\n", res.Preview.Skipped)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&nameColumn, "name-column", "", "CSV header holding product names")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "parse and report without storing")
	return cmd
}

func printCSVPreview(out io.Writer, preview services.CSVPreview) {
	delimiter := preview.Delimiter
	if delimiter == "\t" {
		delimiter = `\t`
	}
	fmt.Fprintf(out, "delimiter: %s  encoding: %s  name column: %s\n", delimiter, preview.Encoding, preview.NameColumn)
	for _, header := range preview.Headers {
		if header == preview.NameColumn {
			continue
		}
		fmt.Fprintf(out, "  %s -> %s\n", header, preview.Mapping[header])
	}
	fmt.Fprintf(out, "%d products, %d rows skipped\n", len(preview.Products), preview.Skipped)
}

type sourceFlags struct {
	templateFile string
	templateID   string
	productID    string
}

func (f *sourceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.templateFile, "template", "", "HTML template file")
	cmd.Flags().StringVar(&f.templateID, "template-id", "", "stored template id")
	cmd.Flags().StringVar(&f.productID, "product", "", "product id to fill the template with")
	cmd.MarkFlagsMutuallyExclusive("template", "template-id")
	cmd.MarkFlagsOneRequired("template", "template-id")
}

func (f *sourceFlags) command() (services.RenderCommand, error) {
	cmd := services.RenderCommand{TemplateID: f.templateID, ProductID: f.productID}
	if f.templateFile != "" {
		data, err := os.ReadFile(f.templateFile)
		if err != nil {
			return cmd, err
		}
		cmd.HTML = string(data)
	}
	return cmd, nil
}

func newRenderCmd(flags *rootFlags) *cobra.Command {
	var src sourceFlags
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a template to HTML",
		Long: `Render a template against a product and print the HTML. Placeholders that stay
unresolved are listed on stderr.

Examples:
  labelctl render --template shelf.html --product 01J...
  labelctl render --template-id 01J... --product 01J... > label.html`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			renderCmd, err := src.command()
			if err != nil {
				return err
			}
			return withApp(cmd, flags, func(ctx context.Context, a *app) error {
				res, err := a.labels.Preview(ctx, renderCmd)
				if err != nil {
					return cliError(err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), res.HTML)
				if len(res.Unresolved) > 0 {
					fmt.Fprintf(cmd.ErrOrStderr(), "unresolved: %s\n", strings.Join(res.Unresolved, ", "))
				}
				return nil
			})
		},
	}
	src.register(cmd)
	return cmd
}

func newPDFCmd(flags *rootFlags) *cobra.Command {
	var (
		src    sourceFlags
		output string
	)
	cmd := &cobra.Command{
		Use:   "pdf",
		Short: "Print a template to PDF",
		Long: `Render a template against a product and print it through the configured browser.
Without --output the file is written to the current directory under the generated name.

Examples:
  labelctl pdf --template-id 01J... --product 01J...
  labelctl pdf --template shelf.html --product 01J... -o shelf.pdf`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			renderCmd, err := src.command()
			if err != nil {
				return err
			}
			return withApp(cmd, flags, func(ctx context.Context, a *app) error {
				res, err := a.labels.GeneratePDF(ctx, services.PDFCommand{RenderCommand: renderCmd})
				if err != nil {
					return cliError(err)
				}
				path := output
				if path == "" {
					path = res.Filename
				}
				if err := os.WriteFile(path, res.Data, 0o644); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", path, len(res.Data))
				return nil
			})
		},
	}
	src.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file")
	return cmd
}

// cliError replaces wrapped service errors with the message the API would return.
func cliError(err error) error {
	if msg := services.Message(err); msg != "" {
		return errors.New(msg)
	}
	return err
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/storefront/internal/catalog"
	"github.com/roach88/storefront/internal/domain"
	"github.com/roach88/storefront/internal/validate"
)

// SeedOptions holds flags for the seed command.
type SeedOptions struct {
	*RootOptions
	Owner string

	appOptions appOptions
}

// SeedResult is the output of the seed command.
type SeedResult struct {
	Owner    string        `json:"owner"`
	Products []SeedProduct `json:"products"`
}

// SeedProduct is one imported product.
type SeedProduct struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Price string `json:"price"`
	Image string `json:"image"`
}

func (r SeedResult) String() string {
	s := fmt.Sprintf("Seeded %d product(s) for %s", len(r.Products), r.Owner)
	for _, p := range r.Products {
		s += fmt.Sprintf("\n  #%d %s (%s)", p.ID, p.Title, p.Price)
	}
	return s
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	return newSeedCommand(&SeedOptions{RootOptions: rootOpts})
}

func newSeedCommand(opts *SeedOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed <catalog.yaml>",
		Short: "Import products from a YAML catalog",
		Long: `Validate a YAML product catalog against the catalog schema and list every
product under an existing account. Image paths are relative to the catalog
file.

Example:
  storefront seed ./catalog.yaml
  storefront seed ./catalog.yaml --owner seller@example.com`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Owner, "owner", "", "e-mail of the selling account (defaults to the catalog owner)")

	return cmd
}

func runSeed(cmd *cobra.Command, opts *SeedOptions, path string) error {
	formatter := newFormatter(cmd, opts.RootOptions)

	formatter.VerboseLog("Loading catalog: %s", path)
	c, err := catalog.Load(path)
	if err != nil {
		_ = formatter.Error("E_CATALOG", "invalid catalog", err.Error())
		return WrapExitError(ExitFailure, "invalid catalog", err)
	}

	ownerEmail := validate.Email(opts.Owner)
	if ownerEmail == "" {
		ownerEmail = validate.Email(c.Owner)
	}
	if ownerEmail == "" {
		_ = formatter.Error("E_OWNER", "no owner given", "pass --owner or set owner in the catalog")
		return NewExitError(ExitCommandError, "no owner given: pass --owner or set owner in the catalog")
	}

	a, err := openApp(opts.RootOptions, opts.appOptions)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := commandContext(cmd)
	owner, err := a.store.UserByEmail(ctx, ownerEmail)
	if err != nil {
		if domain.IsNotFound(err) {
			_ = formatter.Error("E_NOT_FOUND", "unknown owner", ownerEmail)
			return WrapExitError(ExitCommandError, fmt.Sprintf("unknown owner %s", ownerEmail), err)
		}
		return WrapExitError(ExitFailure, "failed to look up owner", err)
	}

	seeder := &catalog.Seeder{
		Products: a.store,
		Images:   a.images,
		Clock:    a.clock,
		Log:      a.log,
	}
	products, err := seeder.Seed(ctx, c, owner)
	if err != nil {
		_ = formatter.Error("E_SEED", "seeding stopped", err.Error())
		return WrapExitError(ExitFailure, fmt.Sprintf("seeding stopped after %d product(s)", len(products)), err)
	}
	a.log.Info("catalog seeded", zap.String("path", path), zap.Int("products", len(products)))

	result := SeedResult{Owner: owner.Email, Products: make([]SeedProduct, 0, len(products))}
	for _, p := range products {
		result.Products = append(result.Products, SeedProduct{
			ID:    p.ID,
			Title: p.Title,
			Price: p.Price.String(),
			Image: p.ImagePath,
		})
	}
	return formatter.Success(result)
}

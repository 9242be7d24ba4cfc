package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/storefront/internal/domain"
	"github.com/roach88/storefront/internal/validate"
)

// UserCreateOptions holds flags for the user create command.
type UserCreateOptions struct {
	*RootOptions
	Name     string
	Email    string
	Password string

	appOptions appOptions
}

// UserResult describes an account.
type UserResult struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

func (r UserResult) String() string {
	return fmt.Sprintf("Created user #%d %s <%s>", r.ID, r.Name, r.Email)
}

// NewUserCommand creates the user command group.
func NewUserCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts",
	}
	cmd.AddCommand(newUserCreateCommand(&UserCreateOptions{RootOptions: rootOpts}))
	return cmd
}

func newUserCreateCommand(opts *UserCreateOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an account",
		Long: `Create an account with the same rules as the signup form. Useful for
bootstrapping the seller that owns a seeded catalog.

Example:
  storefront user create --name "Shop Owner" --email seller@example.com --password s3cret!`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUserCreate(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "display name (required)")
	cmd.Flags().StringVar(&opts.Email, "email", "", "login e-mail (required)")
	cmd.Flags().StringVar(&opts.Password, "password", "", "password (required)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func runUserCreate(cmd *cobra.Command, opts *UserCreateOptions) error {
	formatter := newFormatter(cmd, opts.RootOptions)

	a, err := openApp(opts.RootOptions, opts.appOptions)
	if err != nil {
		return err
	}
	defer a.Close()

	u, err := a.auth.Signup(commandContext(cmd), validate.SignupForm{
		Name:            opts.Name,
		Email:           opts.Email,
		Password:        opts.Password,
		ConfirmPassword: opts.Password,
	})
	if err != nil {
		msg := domain.MessageOf(err, "failed to create user")
		_ = formatter.Error(errorCode(err), msg, nil)
		if domain.IsValidation(err) || domain.IsConflict(err) {
			return WrapExitError(ExitFailure, msg, err)
		}
		return WrapExitError(ExitCommandError, msg, err)
	}

	return formatter.Success(UserResult{ID: u.ID, Name: u.Name, Email: u.Email, CreatedAt: u.CreatedAt})
}

// errorCode maps err to a CLI error code.
func errorCode(err error) string {
	if code := domain.CodeOf(err); code != "" {
		return "E_" + string(code)
	}
	return "E_INTERNAL"
}

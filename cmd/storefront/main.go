package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/01moynul/storefront-golang/internal/client"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

// options are the flags shared by every subcommand.
type options struct {
	apiURL      string
	sessionPath string
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:          "storefront",
		Short:        "Shop from the command line against a storefront API",
		SilenceUsage: true,
	}

	defaultAPI := os.Getenv("STOREFRONT_API")
	if defaultAPI == "" {
		defaultAPI = "http://localhost:8085"
	}
	cmd.PersistentFlags().StringVar(&opts.apiURL, "api", defaultAPI, "API base URL (env STOREFRONT_API)")
	cmd.PersistentFlags().StringVar(&opts.sessionPath, "session", defaultSessionPath(), "file holding the saved session")

	cmd.AddCommand(newSignupCommand(opts))
	cmd.AddCommand(newLoginCommand(opts))
	cmd.AddCommand(newLogoutCommand(opts))
	cmd.AddCommand(newCartCommand(opts))
	cmd.AddCommand(newAddCommand(opts))
	cmd.AddCommand(newSetQuantityCommand(opts))
	cmd.AddCommand(newRemoveCommand(opts))
	cmd.AddCommand(newClearCommand(opts))
	cmd.AddCommand(newCheckoutCommand(opts))
	cmd.AddCommand(newOrdersCommand(opts))
	return cmd
}

func defaultSessionPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".storefront-session.json"
	}
	return filepath.Join(home, ".storefront-session.json")
}

// --- Session File ---

type savedSession struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

func loadSession(path string) (*client.Session, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, errors.New("not logged in (run login or signup first)")
	}
	if err != nil {
		return nil, err
	}

	var saved savedSession
	if err := json.Unmarshal(raw, &saved); err != nil {
		return nil, fmt.Errorf("corrupt session file %s: %w", path, err)
	}
	return client.NewSession(saved.AccessToken, saved.RefreshToken), nil
}

// saveSession writes s back, or removes the file once the session is gone.
func saveSession(path string, s *client.Session) error {
	if !s.Active() {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		return nil
	}

	raw, err := json.Marshal(savedSession{AccessToken: s.AccessToken(), RefreshToken: s.RefreshToken()})
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o600)
}

// withSession runs fn with the saved session and persists any refreshed token.
func withSession(opts *options, fn func(c *client.Client, s *client.Session) error) error {
	s, err := loadSession(opts.sessionPath)
	if err != nil {
		return err
	}

	runErr := fn(client.New(opts.apiURL), s)
	if err := saveSession(opts.sessionPath, s); err != nil {
		return err
	}
	if errors.Is(runErr, client.ErrSessionExpired) {
		return errors.New("session expired, please log in again")
	}
	return runErr
}

// --- Auth Commands ---

func newSignupCommand(opts *options) *cobra.Command {
	var name, email, password string

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and log in",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := client.New(opts.apiURL).Signup(cmd.Context(), name, email, password)
			if err != nil {
				return err
			}
			if err := saveSession(opts.sessionPath, s); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed up as %s <%s>\n", s.User().Name, s.User().Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password (8-72 characters)")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("password")
	return cmd
}

func newLoginCommand(opts *options) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and save the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := client.New(opts.apiURL).Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			if err := saveSession(opts.sessionPath, s); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", s.User().Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("password")
	return cmd
}

func newLogoutCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session",
		RunE: func(cmd *cobra.Command, args []string) error {
			err := withSession(opts, func(c *client.Client, s *client.Session) error {
				return c.Logout(cmd.Context(), s)
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

// --- Cart Commands ---

func printCart(cmd *cobra.Command, store *client.CartStore) {
	out := cmd.OutOrStdout()
	items := store.Items()
	if len(items) == 0 {
		fmt.Fprintln(out, "Cart is empty")
		return
	}
	for _, item := range items {
		fmt.Fprintf(out, "#%d  %-30s %3d x %s = %s\n",
			item.ID, item.Title, item.Quantity, item.Price.StringFixed(2), item.Subtotal().StringFixed(2))
	}
	fmt.Fprintf(out, "%d item(s), subtotal %s\n", store.Count(), store.Subtotal().StringFixed(2))
}

// cartCommand builds a subcommand that runs one CartStore action and prints the cart.
func cartCommand(opts *options, use, short string, args cobra.PositionalArgs,
	action func(cmd *cobra.Command, store *client.CartStore, args []string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(opts, func(c *client.Client, s *client.Session) error {
				store := client.NewCartStore(c, s)
				if err := action(cmd, store, args); err != nil {
					return err
				}
				printCart(cmd, store)
				return nil
			})
		},
	}
}

func newCartCommand(opts *options) *cobra.Command {
	return cartCommand(opts, "cart", "Show the cart", cobra.NoArgs,
		func(cmd *cobra.Command, store *client.CartStore, args []string) error {
			return store.Sync(cmd.Context())
		})
}

func newAddCommand(opts *options) *cobra.Command {
	var product client.Product
	var price string

	cmd := cartCommand(opts, "add", "Add one unit of a catalog product", cobra.NoArgs,
		func(cmd *cobra.Command, store *client.CartStore, args []string) error {
			p, err := decimal.NewFromString(price)
			if err != nil {
				return fmt.Errorf("invalid --price %q: %w", price, err)
			}
			product.Price = p
			return store.Add(cmd.Context(), product)
		})

	cmd.Flags().Int64Var(&product.ID, "product-id", 0, "catalog product id")
	cmd.Flags().StringVar(&product.Title, "title", "", "product title")
	cmd.Flags().StringVar(&price, "price", "", "unit price, e.g. 19.99")
	cmd.Flags().StringVar(&product.Thumbnail, "thumbnail", "", "thumbnail URL")
	cmd.MarkFlagRequired("product-id")
	cmd.MarkFlagRequired("title")
	cmd.MarkFlagRequired("price")
	return cmd
}

func newSetQuantityCommand(opts *options) *cobra.Command {
	return cartCommand(opts, "set-quantity ITEM_ID QUANTITY", "Change a line's quantity (0 removes it)", cobra.ExactArgs(2),
		func(cmd *cobra.Command, store *client.CartStore, args []string) error {
			itemID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid item id %q", args[0])
			}
			quantity, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid quantity %q", args[1])
			}
			return store.SetQuantity(cmd.Context(), itemID, quantity)
		})
}

func newRemoveCommand(opts *options) *cobra.Command {
	return cartCommand(opts, "remove ITEM_ID", "Remove a line from the cart", cobra.ExactArgs(1),
		func(cmd *cobra.Command, store *client.CartStore, args []string) error {
			itemID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid item id %q", args[0])
			}
			return store.Remove(cmd.Context(), itemID)
		})
}

func newClearCommand(opts *options) *cobra.Command {
	return cartCommand(opts, "clear", "Empty the cart", cobra.NoArgs,
		func(cmd *cobra.Command, store *client.CartStore, args []string) error {
			return store.Clear(cmd.Context())
		})
}

// --- Order Commands ---

func newCheckoutCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "checkout",
		Short: "Place an order from the cart",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(opts, func(c *client.Client, s *client.Session) error {
				order, err := client.NewCartStore(c, s).Checkout(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Order %s placed, total %s\n", order.Reference, order.Total.StringFixed(2))
				return nil
			})
		},
	}
}

func newOrdersCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "orders",
		Short: "List your orders, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(opts, func(c *client.Client, s *client.Session) error {
				orders, err := c.Orders(cmd.Context(), s)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(orders) == 0 {
					fmt.Fprintln(out, "No orders yet")
					return nil
				}
				for _, o := range orders {
					fmt.Fprintf(out, "%s  %s  %d line(s)  total %s\n",
						o.CreatedAt.Format("2006-01-02 15:04"), o.Reference, len(o.Items), o.Total.StringFixed(2))
				}
				return nil
			})
		},
	}
}

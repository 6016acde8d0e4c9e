package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/iho/escrowledger/internal/domain"
	"github.com/iho/escrowledger/internal/infrastructure/auth"
	"github.com/iho/escrowledger/internal/infrastructure/logger"
	"github.com/iho/escrowledger/internal/infrastructure/postgres"
	"github.com/iho/escrowledger/internal/infrastructure/receipt"
)

// options are the flags shared by every command.
type options struct {
	baseURL string
	timeout time.Duration
	token   string
	account string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "escrowledger-cli",
		Short:         "Escrow ledger CLI tool",
		Long:          `A command line interface for the escrow ledger API and its receipts.`,
		SilenceUsage:  true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.baseURL, "url", "http://localhost:8080", "Base URL of the ledger API")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "Request timeout")
	rootCmd.PersistentFlags().StringVar(&opts.token, "token", os.Getenv("LEDGER_TOKEN"), "Bearer token")
	rootCmd.PersistentFlags().StringVar(&opts.account, "account", "", "Account to act as when the server has authentication disabled")

	rootCmd.AddCommand(transferCmd(opts), receiptCmd(opts), ledgerCmd(opts), tokenCmd(), migrateCmd())

	return rootCmd
}

func transferCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Transfer operations",
	}

	get := &cobra.Command{
		Use:   "get ID",
		Short: "Show a transfer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.do(cmd, http.MethodGet, "/transfers/"+url.PathEscape(args[0]), nil)
		},
	}

	var file string

	put := &cobra.Command{
		Use:   "put ID",
		Short: "Propose, prepare or execute a transfer from a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := readInput(cmd, file)
			if err != nil {
				return err
			}
			return opts.do(cmd, http.MethodPut, "/transfers/"+url.PathEscape(args[0]), body)
		},
	}
	put.Flags().StringVarP(&file, "file", "f", "-", "Transfer JSON file, - for stdin")

	fulfill := &cobra.Command{
		Use:   "fulfill ID",
		Short: "Submit a condition fulfillment from a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := readInput(cmd, file)
			if err != nil {
				return err
			}
			return opts.do(cmd, http.MethodPut, "/transfers/"+url.PathEscape(args[0])+"/fulfillment", body)
		},
	}
	fulfill.Flags().StringVarP(&file, "file", "f", "-", "Fulfillment JSON file, - for stdin")

	entries := &cobra.Command{
		Use:   "entries ID",
		Short: "List the balance changes a transfer caused",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.do(cmd, http.MethodGet, "/transfers/"+url.PathEscape(args[0])+"/entries", nil)
		},
	}

	cmd.AddCommand(get, put, fulfill, entries)
	return cmd
}

func receiptCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "receipt",
		Short: "Transfer state receipts",
	}

	var receiptType, conditionState string

	get := &cobra.Command{
		Use:   "get ID",
		Short: "Fetch a receipt of a transfer's state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := url.Values{}
			if receiptType != "" {
				query.Set("type", receiptType)
			}
			if conditionState != "" {
				query.Set("condition_state", conditionState)
			}

			path := "/transfers/" + url.PathEscape(args[0]) + "/state"
			if len(query) > 0 {
				path += "?" + query.Encode()
			}
			return opts.do(cmd, http.MethodGet, path, nil)
		},
	}
	get.Flags().StringVar(&receiptType, "type", "", "Receipt type: ed25519-sha512 or sha256")
	get.Flags().StringVar(&conditionState, "condition-state", "", "State the sha256 condition digest is computed for")

	var file, publicKey string

	verify := &cobra.Command{
		Use:   "verify",
		Short: "Verify a receipt offline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := readInput(cmd, file)
			if err != nil {
				return err
			}

			var r domain.Receipt
			if err := json.Unmarshal(data, &r); err != nil {
				return fmt.Errorf("decode receipt: %w", err)
			}

			if err := verifyReceipt(&r, publicKey); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "receipt OK: %s is %s\n", r.Message.ID, r.Message.State)
			return nil
		},
	}
	verify.Flags().StringVarP(&file, "file", "f", "-", "Receipt JSON file, - for stdin")
	verify.Flags().StringVar(&publicKey, "public-key", "", "Base64 ledger public key; defaults to the key in the receipt")

	cmd.AddCommand(get, verify)
	return cmd
}

// verifyReceipt checks the signature of an ed25519-sha512 receipt, or the
// digest of a sha256 receipt and, given a public key, its token.
func verifyReceipt(r *domain.Receipt, publicKey string) error {
	switch r.Type {
	case domain.ReceiptTypeEd25519:
		return receipt.VerifySignature(r, publicKey)
	case domain.ReceiptTypeSHA256:
		if err := receipt.VerifyDigest(r); err != nil {
			return err
		}
		if publicKey != "" {
			return receipt.VerifyToken(r.Message, publicKey)
		}
		return nil
	default:
		return fmt.Errorf("unknown receipt type %q", r.Type)
	}
}

func ledgerCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Ledger operations",
	}

	consistency := &cobra.Command{
		Use:   "consistency",
		Short: "Check that entries net to zero and balances match their entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.do(cmd, http.MethodGet, "/ledger/consistency", nil)
		},
	}

	cmd.AddCommand(consistency)
	return cmd
}

func tokenCmd() *cobra.Command {
	var (
		secret string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Bearer tokens",
	}

	issue := &cobra.Command{
		Use:   "issue ACCOUNT",
		Short: "Issue a bearer token acting as ACCOUNT",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				return fmt.Errorf("--secret or JWT_SECRET is required")
			}

			token, err := auth.NewJWTManager(secret, ttl).Generate(args[0])
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	issue.Flags().StringVar(&secret, "secret", os.Getenv("JWT_SECRET"), "JWT signing secret")
	issue.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")

	cmd.AddCommand(issue)
	return cmd
}

func migrateCmd() *cobra.Command {
	var databaseURL, path string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migrations",
	}
	cmd.PersistentFlags().StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "PostgreSQL URL")
	cmd.PersistentFlags().StringVar(&path, "path", "migrations", "Migrations directory")

	migrator := func(cmd *cobra.Command) *postgres.Migrator {
		log := logger.New(logger.Config{Level: "info", Format: "console", Output: cmd.ErrOrStderr()})
		return postgres.NewMigrator(databaseURL, path, log)
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return migrator(cmd).Up()
		},
	}

	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back all migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return migrator(cmd).Down()
		},
	}

	version := &cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, dirty, err := migrator(cmd).Version()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "version %d dirty=%t\n", v, dirty)
			return nil
		},
	}

	cmd.AddCommand(up, down, version)
	return cmd
}

// do sends a request to the ledger and prints the JSON response.
func (o *options) do(cmd *cobra.Command, method, path string, body []byte) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), o.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(o.baseURL, "/")+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if o.token != "" {
		req.Header.Set("Authorization", "Bearer "+o.token)
	}
	if o.account != "" {
		req.Header.Set("X-Ledger-Account", o.account)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(data)))
	}

	return printJSON(cmd.OutOrStdout(), data)
}

func printJSON(w io.Writer, data []byte) error {
	var out bytes.Buffer
	if err := json.Indent(&out, data, "", "  "); err != nil {
		_, err = w.Write(data)
		return err
	}
	out.WriteByte('\n')
	_, err := out.WriteTo(w)
	return err
}

func readInput(cmd *cobra.Command, file string) ([]byte, error) {
	if file == "" || file == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(file)
}

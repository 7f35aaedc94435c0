// Command trackerctl - административные операции трекера: миграции, рассылка алертов,
// перешифрование wallet, выгрузка записей пользователя.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/airdroptracker/internal/cipher"
	"github.com/airdroptracker/internal/config"
	"github.com/airdroptracker/internal/email"
	"github.com/airdroptracker/internal/identity"
	"github.com/airdroptracker/internal/logger"
	"github.com/airdroptracker/internal/service"
	"github.com/airdroptracker/internal/startup"
	"github.com/spf13/cobra"
)

// Подменяются в тестах.
var (
	loadConfig    = config.Load
	openStores    = startup.OpenStores
	runMigrations = startup.RunMigrations
	sendTestMail  = func(ctx context.Context, cfg *config.Config, to string) error {
		return email.NewSender(&cfg.SMTP).SendTest(ctx, to)
	}
)

var horizon int

var rootCmd = &cobra.Command{
	Use:           "trackerctl",
	Short:         "Airdrop tracker administration",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.SetPrefix("trackerctl")
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Flush(2 * time.Second)
	},
}

var identityCmd = &cobra.Command{
	Use:   "identity <email>",
	Short: "Print the storage identity derived from an email address",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		norm := identity.Normalize(args[0])
		if !strings.Contains(norm, "@") {
			return service.ErrInvalidEmail
		}
		fmt.Fprintln(cmd.OutOrStdout(), identity.Derive(norm))
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		if err := runMigrations(cmd.Context(), cfg.DatabaseURL()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
		return nil
	},
}

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Claim-date alerts",
}

var alertsRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Email every account its claims due within the horizon",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		stores, err := openStores(cmd.Context(), cfg, false, "trackerctl: ")
		if err != nil {
			return err
		}
		defer stores.Close()
		h := horizon
		if h <= 0 {
			h = cfg.Alerts.HorizonDays
		}
		svc := service.NewAlertService(email.NewSender(&cfg.SMTP), stores.Records, stores.Accounts,
			service.WithMinInterval(cfg.Alerts.MinInterval))
		rep, err := svc.RunAll(cmd.Context(), h)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), rep)
	},
}

var walletsCmd = &cobra.Command{
	Use:   "wallets",
	Short: "Wallet field maintenance",
}

var walletsEncryptCmd = &cobra.Command{
	Use:   "encrypt",
	Short: "Encrypt wallets stored as plaintext before CIPHER_SEED was set",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		c, err := cipher.New(cipher.SeedKeyProvider{Seed: cfg.Cipher.Seed, Salt: cfg.Cipher.Salt})
		if err != nil {
			return err
		}
		stores, err := openStores(cmd.Context(), cfg, false, "trackerctl: ")
		if err != nil {
			return err
		}
		defer stores.Close()
		rep, err := service.EncryptLegacyWallets(cmd.Context(), stores.Records, stores.Accounts, c)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), rep)
	},
}

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "Inspect stored records",
}

var recordsExportCmd = &cobra.Command{
	Use:   "export <email>",
	Short: "Print a user's records as JSON (wallets decrypted)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		c := cipher.Disabled()
		if cfg.Cipher.Seed != "" {
			var err error
			if c, err = cipher.New(cipher.SeedKeyProvider{Seed: cfg.Cipher.Seed, Salt: cfg.Cipher.Salt}); err != nil {
				return err
			}
		}
		stores, err := openStores(cmd.Context(), cfg, false, "trackerctl: ")
		if err != nil {
			return err
		}
		defer stores.Close()
		_, recs, err := service.ExportRecords(cmd.Context(), stores.Records, c, args[0])
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), recs)
	},
}

var smtpCmd = &cobra.Command{
	Use:   "smtp",
	Short: "SMTP diagnostics",
}

var smtpTestCmd = &cobra.Command{
	Use:   "test <email>",
	Short: "Send a test email with the configured SMTP settings",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := sendTestMail(cmd.Context(), loadConfig(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "test email sent to %s\n", args[0])
		return nil
	},
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	alertsRunCmd.Flags().IntVar(&horizon, "horizon", 0, "days ahead to include (default: ALERT_HORIZON_DAYS)")
	alertsCmd.AddCommand(alertsRunCmd)
	walletsCmd.AddCommand(walletsEncryptCmd)
	recordsCmd.AddCommand(recordsExportCmd)
	smtpCmd.AddCommand(smtpTestCmd)
	rootCmd.AddCommand(identityCmd, migrateCmd, alertsCmd, walletsCmd, recordsCmd, smtpCmd)
}

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		logger.Flush(time.Second)
		cancel()
		os.Exit(1)
	}
}

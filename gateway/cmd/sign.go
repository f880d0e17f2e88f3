package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/telhawk-systems/hookgate/gateway/internal/signature"
)

var signCmd = &cobra.Command{
	Use:   "sign [file]",
	Short: "Compute the X-Hub-Signature-256 header for a payload",
	Long: `Reads a payload from file (or stdin when omitted or "-") and prints the
signature header value the platform would send for it. Useful for replaying
deliveries with curl.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSign,
}

func init() {
	signCmd.Flags().String("secret", "", "app secret (default: webhook.app_secret from config)")
	rootCmd.AddCommand(signCmd)
}

func runSign(cmd *cobra.Command, args []string) error {
	secret, _ := cmd.Flags().GetString("secret")
	if secret == "" {
		cfg, err := loadConfig(false)
		if err != nil {
			return err
		}
		secret = cfg.Webhook.AppSecret
	}
	if secret == "" {
		return fmt.Errorf("app secret is required (--secret or APP_SECRET)")
	}

	var in io.Reader = cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open payload: %w", err)
		}
		defer f.Close()
		in = f
	}

	body, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("failed to read payload: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), signature.Compute(secret, body))
	return nil
}

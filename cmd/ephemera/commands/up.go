package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/marmos91/ephemera/internal/logger"
	"github.com/spf13/cobra"
)

var (
	upWrite  string
	upDotenv string
)

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Start backing services and keep them running",
	Long: `Start the backing services a settings file needs and keep them running
until interrupted. The patched settings and a dotenv file with connection
variables can be written for other processes; both are removed on exit.

Examples:
  # Start services and print their endpoints
  ephemera up

  # Write patched settings and a dotenv file
  ephemera up --write settings.test.yaml --dotenv .env.test

  # Print only the connection variables
  ephemera up -o env`,
	Args: cobra.NoArgs,
	RunE: runUp,
}

func init() {
	addSettingsFlags(upCmd)
	upCmd.Flags().StringVarP(&upWrite, "write", "w", "", "Write the patched settings to this file")
	upCmd.Flags().StringVar(&upDotenv, "dotenv", "", "Write connection variables to this dotenv file")
}

func runUp(cmd *cobra.Command, args []string) error {
	p, err := printer(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	prov, err := provision(ctx, upWrite)
	if prov != nil {
		defer func() {
			if stopErr := prov.close(context.WithoutCancel(ctx)); stopErr != nil {
				PrintErr("Some services did not stop cleanly: %v", stopErr)
			}
		}()
	}
	if err != nil {
		return err
	}

	view := prov.view()
	if upDotenv != "" {
		if err := godotenv.Write(view.Env(), upDotenv); err != nil {
			return err
		}
		prov.track(upDotenv)
		logger.Info("Wrote connection variables", logger.KeyPath, upDotenv)
	}

	if err := p.Print(view); err != nil {
		return err
	}
	p.Success("\nServices are running. Press Ctrl+C to stop.")

	<-ctx.Done()
	logger.Info("Shutdown signal received, stopping services")
	return nil
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/elys-network/lp-tracker/internal/config"
	"github.com/elys-network/lp-tracker/internal/logger"
	"github.com/elys-network/lp-tracker/internal/report"
	"github.com/elys-network/lp-tracker/internal/types"
	"github.com/elys-network/lp-tracker/internal/web"
)

// main is the entry point for the portfolio tracker.
func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "lp-tracker",
		Short:         "Values liquidity positions and attributes their yield",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(); err != nil {
				log.Warn().Msg("Warning: .env file not found. Relying on OS environment variables.")
			}
			if err := config.LoadConfig(); err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			logger.Initialize(config.LogLevel, config.LogFile)
			return nil
		},
	}

	root.AddCommand(newReportCmd(), newServeCmd(), newPricesCmd())
	return root
}

func newReportCmd() *cobra.Command {
	var (
		wallet string
		format string
	)
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Value every configured vault for a wallet and print the report",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app, err := buildApp(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			items, err := app.engine.Run(ctx, wallet)
			if err != nil {
				return err
			}
			return report.Render(cmd.OutOrStdout(), items, format)
		},
	}
	cmd.Flags().StringVarP(&wallet, "wallet", "w", "", "wallet address to value")
	cmd.Flags().StringVarP(&format, "format", "f", report.FormatTable, "output format: table or json")
	_ = cmd.MarkFlagRequired("wallet")
	return cmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the portfolio API and refresh watched wallets periodically",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app, err := buildApp(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			webServer := web.NewWebServer(config.WebPort, app.engine, app.vaults)
			serverErr := make(chan error, 1)
			go func() {
				log.Info().Str("port", config.WebPort).Str("url", "http://localhost:"+config.WebPort).Msg("Starting portfolio API")
				serverErr <- webServer.Start()
			}()

			if len(config.WatchWallets) > 0 {
				go app.engine.RunLoop(ctx, config.RefreshInterval, config.WatchWallets, func(wallet string, items []types.PortfolioItem) {
					webServer.StoreLatest(wallet, items)
				})
			} else {
				log.Info().Msg("No WATCH_WALLETS configured, reports are computed on request only")
			}

			select {
			case <-ctx.Done():
				log.Info().Msg("Shutdown signal received")
			case err := <-serverErr:
				if err != nil {
					return fmt.Errorf("web server failed: %w", err)
				}
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return webServer.Shutdown(shutdownCtx)
		},
	}
}

func newPricesCmd() *cobra.Command {
	var at int64
	cmd := &cobra.Command{
		Use:   "prices SYMBOL...",
		Short: "Resolve USD prices for token symbols",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			resolver, closeResolver, err := buildResolver(ctx)
			if err != nil {
				return err
			}
			defer closeResolver()

			symbols := append([]string(nil), args...)
			sort.Strings(symbols)

			if at == 0 {
				if err := resolver.Prefetch(ctx, symbols); err != nil {
					return err
				}
			}
			out := cmd.OutOrStdout()
			for _, symbol := range symbols {
				var price float64
				if at > 0 {
					price, err = resolver.PriceAt(ctx, symbol, at)
				} else {
					price, err = resolver.Price(ctx, symbol)
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s\t%s\n", symbol, report.RoundToSignificantDigits(price, report.DefaultDigits))
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&at, "at", 0, "unix timestamp for a historical price")
	return cmd
}

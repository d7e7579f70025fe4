// Command posctl reads the BangunanPro ledger from a terminal: catalog,
// dashboard figures, open debts and the advisor.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"bangunanpro/backend/internal/advisor"
	"bangunanpro/backend/internal/config"
	"bangunanpro/backend/internal/domain"
	"bangunanpro/backend/internal/metrics"
	"bangunanpro/backend/internal/money"
	"bangunanpro/backend/internal/service"
	"bangunanpro/backend/internal/store"
	"bangunanpro/backend/internal/store/memory"
	pgstore "bangunanpro/backend/internal/store/postgres"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type options struct {
	databaseURL string
	userID      string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "posctl",
		Short:         "Inspect the BangunanPro store from the terminal",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&opts.databaseURL, "database-url", os.Getenv("DATABASE_URL"), "Postgres URL; the seeded in-memory store is used when empty")
	root.PersistentFlags().StringVar(&opts.userID, "as", "1", "Staff user id to act as")

	root.AddCommand(newProductsCmd(opts), newSummaryCmd(opts), newDebtsCmd(opts), newAskCmd(opts))
	return root
}

type session struct {
	svc   *service.Service
	ctx   context.Context
	close func()
}

func openSession(ctx context.Context, opts *options) (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	var repo store.Repository
	closeFn := func() {}
	if opts.databaseURL != "" {
		pg, err := pgstore.New(ctx, opts.databaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		repo = pg
		closeFn = func() { _ = pg.Close() }
	} else {
		repo = memory.NewSeeded()
	}

	gemini := advisor.NewGeminiClient(advisor.GeminiConfig{
		APIKey:  cfg.GeminiAPIKey,
		Model:   cfg.GeminiModel,
		BaseURL: cfg.GeminiBaseURL,
	})
	svc := service.New(repo, service.Options{
		Assistant: advisor.NewAssistant(gemini, advisor.AssistantOptions{Model: gemini.Model()}),
	})

	user, err := svc.FindStaff(ctx, opts.userID)
	if err != nil {
		closeFn()
		return nil, fmt.Errorf("staff %q: %w", opts.userID, err)
	}
	actor := domain.Actor{UserID: user.ID, Name: user.Name, Role: user.Role}
	return &session{svc: svc, ctx: service.WithActor(ctx, actor), close: closeFn}, nil
}

func withSession(opts *options, run func(s *session, out io.Writer, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
		defer cancel()

		s, err := openSession(ctx, opts)
		if err != nil {
			return err
		}
		defer s.close()
		return run(s, cmd.OutOrStdout(), args)
	}
}

func newProductsCmd(opts *options) *cobra.Command {
	var query string
	var lowOnly bool

	cmd := &cobra.Command{
		Use:   "products",
		Short: "List the catalog with stock status",
		RunE: withSession(opts, func(s *session, out io.Writer, _ []string) error {
			var products []domain.Product
			var err error
			if lowOnly {
				products, err = s.svc.LowStock(s.ctx)
			} else {
				products, err = s.svc.ListProducts(s.ctx, query)
			}
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tPRICE\tSTOCK\tSTATUS")
			for _, p := range products {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d %s\t%s\n", p.ID, p.Name, money.Format(p.Price), p.Stock, p.Unit, metrics.StockStatusOf(p))
			}
			return tw.Flush()
		}),
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "Case-insensitive name filter")
	cmd.Flags().BoolVar(&lowOnly, "low", false, "Only products at or below their minimum stock")
	return cmd
}

func newSummaryCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show dashboard figures",
		RunE: withSession(opts, func(s *session, out io.Writer, _ []string) error {
			dash, err := s.svc.Dashboard(s.ctx)
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "Omzet:       %s\n", dash.Formatted.TotalRevenue)
			fmt.Fprintf(out, "Laba:        %s (%s%%)\n", dash.Formatted.TotalProfit, dash.MarginPercent)
			fmt.Fprintf(out, "Piutang:     %s\n", dash.Formatted.TotalOutstanding)
			fmt.Fprintf(out, "Transaksi:   %d\n", dash.Transactions)

			sellers := make([]string, 0, len(dash.TopSellers))
			for _, ts := range dash.TopSellers {
				sellers = append(sellers, fmt.Sprintf("%s x%d", ts.Name, ts.Quantity))
			}
			if len(sellers) == 0 {
				sellers = append(sellers, "-")
			}
			fmt.Fprintf(out, "Terlaris:    %s\n", strings.Join(sellers, ", "))
			return nil
		}),
	}
}

func newDebtsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "debts",
		Short: "List pending TEMPO transactions",
		RunE: withSession(opts, func(s *session, out io.Writer, _ []string) error {
			report, err := s.svc.Debts(s.ctx)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TRANSACTION\tCUSTOMER\tDATE\tTOTAL\tOUTSTANDING")
			for _, d := range report.Debts {
				tx := d.Transaction
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", tx.ID, tx.CustomerName, tx.CreatedAt.Format("2006-01-02"), money.Format(tx.Total), money.Format(d.Outstanding))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "Total piutang: %s\n", money.Format(report.TotalOutstanding))
			return nil
		}),
	}
}

func newAskCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "ask QUESTION",
		Short: "Ask the advisor about the current figures",
		Args:  cobra.MinimumNArgs(1),
		RunE: withSession(opts, func(s *session, out io.Writer, args []string) error {
			resp, err := s.svc.AskAssistant(s.ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintln(out, resp.Answer)
			return nil
		}),
	}
}

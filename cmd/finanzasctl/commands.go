package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"finanzas/internal/amqp"
	"finanzas/internal/auth"
	"finanzas/internal/config"
	"finanzas/internal/core"
	"finanzas/internal/export"
	"finanzas/internal/ledger"
	"finanzas/internal/ports"
	"finanzas/internal/services"
	"finanzas/internal/storage"
	"finanzas/internal/storage/postgres"
)

// store is the part of a repository the commands read through.
type store interface {
	ports.TransactionStore
	ports.UserStore
	Close() error
}

// app carries the settings shared by every subcommand.
type app struct {
	out      io.Writer
	cfg      *config.Config
	dbPath   string
	dbURL    string
	timezone string
	email    string
	year     int
	month    int
	now      func() time.Time
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{out: out, cfg: config.Load(), now: time.Now}

	root := &cobra.Command{
		Use:           "finanzasctl",
		Short:         "Inspect and export finanzas ledgers",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	root.SetOut(out)
	pf := root.PersistentFlags()
	pf.StringVar(&a.dbPath, "db", a.cfg.SQLiteDBPath, "SQLite database path")
	pf.StringVar(&a.dbURL, "database-url", defaultDatabaseURL(a.cfg), "PostgreSQL URL; takes precedence over --db")
	pf.StringVar(&a.timezone, "tz", a.cfg.LedgerTimezone, "time zone used to bucket transactions")
	pf.StringVar(&a.email, "email", "", "account email (required)")
	pf.IntVar(&a.year, "year", 0, "year (default: current year)")

	root.AddCommand(a.balanceCmd(), a.listCmd(), a.exportCmd(), a.resyncCmd())
	return root
}

func (a *app) balanceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Print the balance of a month and of its year",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withLedger(cmd.Context(), func(st ledger.State, p core.Period) error {
				year := core.YearPeriod(p.Year)
				if !p.IsYear() {
					fmt.Fprintf(a.out, "%s\t%s\n", p, st.Balance(p))
				}
				fmt.Fprintf(a.out, "%s\t%s\n", year, st.Balance(year))
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&a.month, "month", 0, "month 1-12 (default: current month, 0 with --year for the whole year)")
	return cmd
}

func (a *app) listCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the transactions of a month, most recent first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withLedger(cmd.Context(), func(st ledger.State, p core.Period) error {
				tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "DATE\tTYPE\tAMOUNT\tDESCRIPTION\tID")
				for _, tx := range st.Transactions(p) {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
						tx.Date.In(st.Location()).Format("2006-01-02"), tx.Kind, tx.Signed(), tx.Description, tx.ID)
				}
				fmt.Fprintf(tw, "\t\t%s\tbalance %s\t\n", st.Balance(p), p)
				return tw.Flush()
			})
		},
	}
	cmd.Flags().IntVar(&a.month, "month", 0, "month 1-12 (default: current month, 0 with --year for the whole year)")
	return cmd
}

func (a *app) exportCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the year's xlsx workbook, one sheet per month with data",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a.month = 0
			return a.withLedger(cmd.Context(), func(st ledger.State, p core.Period) error {
				path := out
				if path == "" {
					path = export.FileName(a.cfg.ExportPrefix, p.Year)
				}
				if err := writeWorkbook(path, st, p.Year); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "wrote %s\n", path)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "output file (default: <prefix>_<year>.xlsx)")
	return cmd
}

// resyncCmd asks the mirror worker to rebuild one year.
func (a *app) resyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resync",
		Short: "Publish a resync event so the worker rebuilds the year's mirror",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.cfg.AMQPURL == "" {
				return errors.New("AMQP_URL is not set")
			}
			repo, loc, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer repo.Close()
			sess, err := a.session(cmd.Context(), repo)
			if err != nil {
				return err
			}
			client, err := amqp.NewClient(a.cfg.AMQPURL, a.cfg.AMQPExchange, a.cfg.AMQPQueue)
			if err != nil {
				return err
			}
			defer client.Close()

			year := a.yearOrCurrent(loc)
			svc := services.NewTransactionService(repo, client, loc)
			if err := svc.RequestResync(cmd.Context(), sess.UserID, year); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "resync requested for %s %d\n", sess.Email, year)
			return nil
		},
	}
}

// defaultDatabaseURL uses DATABASE_URL only when postgres is the
// configured backend.
func defaultDatabaseURL(cfg *config.Config) string {
	if cfg.DataBackend == config.BackendPostgres {
		return cfg.DatabaseURL
	}
	return ""
}

func (a *app) open(ctx context.Context) (store, *time.Location, error) {
	loc := time.Local
	if tz := strings.TrimSpace(a.timezone); tz != "" && !strings.EqualFold(tz, "local") {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: time zone %q", core.ErrInvalidArgument, tz)
		}
		loc = l
	}
	if a.dbURL != "" {
		repo, err := postgres.New(ctx, a.dbURL, loc)
		if err != nil {
			return nil, nil, err
		}
		return repo, loc, nil
	}
	if _, err := os.Stat(a.dbPath); err != nil {
		return nil, nil, fmt.Errorf("open database %s: %w", a.dbPath, err)
	}
	repo, err := storage.NewSQLiteRepository(a.dbPath, loc)
	if err != nil {
		return nil, nil, err
	}
	return repo, loc, nil
}

// session stands in for a signed-in user: the operator reads the database
// directly, so no password is involved.
func (a *app) session(ctx context.Context, repo ports.UserStore) (auth.Session, error) {
	email := strings.ToLower(strings.TrimSpace(a.email))
	if email == "" {
		return auth.Session{}, fmt.Errorf("%w: --email is required", core.ErrInvalidArgument)
	}
	u, err := repo.UserByEmail(ctx, email)
	if err != nil {
		return auth.Session{}, fmt.Errorf("look up %s: %w", email, err)
	}
	return auth.Session{UserID: u.ID, Email: u.Email}, nil
}

func (a *app) yearOrCurrent(loc *time.Location) int {
	if a.year != 0 {
		return a.year
	}
	return a.now().In(loc).Year()
}

// period resolves --year/--month. Without --month the current month is
// used, unless only --year was given, which selects the whole year.
func (a *app) period(loc *time.Location) (core.Period, error) {
	month, _ := core.CurrentPeriods(a.now(), loc)
	year := a.yearOrCurrent(loc)
	switch {
	case a.month != 0:
		return core.MonthPeriod(year, a.month)
	case a.year != 0:
		return core.YearPeriod(year), nil
	default:
		return month, nil
	}
}

func (a *app) withLedger(ctx context.Context, fn func(ledger.State, core.Period) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	repo, loc, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer repo.Close()

	sess, err := a.session(ctx, repo)
	if err != nil {
		return err
	}
	p, err := a.period(loc)
	if err != nil {
		return err
	}
	st, err := ledger.NewService(repo, loc).Reload(ctx, sess)
	if err != nil {
		return err
	}
	return fn(st, p)
}

func writeWorkbook(path string, st ledger.State, year int) (err error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return export.WriteXLSX(f, year, export.GroupByMonth(st, year), st.Location())
}

// compliance-tools reúne os scripts de manutenção sobre os dados coletados
// e o enfileiramento manual de varreduras.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Ashu11-A/BetScraper-API-sub000/internal/repo"
	"github.com/Ashu11-A/BetScraper-API-sub000/internal/shared/config"
	"github.com/Ashu11-A/BetScraper-API-sub000/internal/shared/db"
	"github.com/Ashu11-A/BetScraper-API-sub000/internal/shared/logger"
)

// app guarda o que os subcomandos compartilham; conexões abrem sob demanda
type app struct {
	cfg config.Config
	log *zap.Logger
	pg  *sqlx.DB

	closers []func()
}

func (a *app) postgres(ctx context.Context) (*repo.Postgres, error) {
	if a.pg == nil {
		pg, err := db.ConnectPostgres(ctx, a.cfg.PostgresDSN, a.cfg.BatchConcurrency)
		if err != nil {
			return nil, fmt.Errorf("postgres connect: %w", err)
		}
		a.pg = pg
		a.closers = append(a.closers, func() { _ = pg.Close() })
	}
	return repo.NewPostgres(a.pg), nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	if a.log != nil {
		_ = a.log.Sync()
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "compliance-tools",
		Short:         "Scripts de manutenção do scanner de compliance",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.cfg = config.Load()
			if a.cfg.ServiceName == "" {
				a.cfg.ServiceName = "compliance-tools"
			}
			log, err := logger.New(a.cfg.ServiceName, a.cfg.Env)
			if err != nil {
				return err
			}
			a.log = log.With(zap.String("command", cmd.Name()))
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	root.AddCommand(
		newOCRBackfillCmd(a),
		newDedupImagesCmd(a),
		newRematchCmd(a),
		newEnqueueCmd(a),
		newEventsCmd(a),
	)
	return root
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	a := &app{}
	err := newRootCmd(a).ExecuteContext(ctx)
	a.close()
	cancel()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

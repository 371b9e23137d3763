package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Ashu11-A/BetScraper-API-sub000/internal/model"
	"github.com/Ashu11-A/BetScraper-API-sub000/internal/scheduler"
	sharedcache "github.com/Ashu11-A/BetScraper-API-sub000/internal/shared/cache"
	"github.com/Ashu11-A/BetScraper-API-sub000/internal/shared/kafka"
	"github.com/Ashu11-A/BetScraper-API-sub000/internal/shared/queue"
)

func newEnqueueCmd(a *app) *cobra.Command {
	var userID int64
	cmd := &cobra.Command{
		Use:   "enqueue <bet-id>",
		Short: "Cria uma Task para a Bet e enfileira a varredura",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			betID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid bet id %q: %w", args[0], err)
			}
			ctx := cmd.Context()

			store, err := a.postgres(ctx)
			if err != nil {
				return err
			}
			bet, err := store.GetBet(ctx, betID)
			if err != nil {
				return err
			}

			rdb, err := sharedcache.ConnectRedis(ctx, a.cfg.RedisAddr)
			if err != nil {
				return fmt.Errorf("redis connect: %w", err)
			}
			a.closers = append(a.closers, func() { _ = rdb.Close() })
			q := queue.New(rdb, a.cfg.QueuePrefix, a.cfg.QueueAttempts)
			if err := q.Init(ctx); err != nil {
				return err
			}

			publisher := kafka.NewTaskEventPublisher(a.cfg.KafkaBrokers, a.cfg.TopicTaskEvents, a.cfg.TopicTaskEventsDLQ)
			a.closers = append(a.closers, func() { _ = publisher.Close() })

			var user *model.User
			if userID > 0 {
				user = &model.User{ID: userID}
			}
			job, err := scheduler.New(a.log, store, q, publisher, nil).AddToQueue(ctx, *bet, user, nil)
			if err != nil {
				return err
			}
			return json.NewEncoder(cmd.OutOrStdout()).Encode(job)
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 0, "id do usuário que pediu a varredura")
	return cmd
}

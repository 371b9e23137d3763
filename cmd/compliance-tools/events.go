package main

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Ashu11-A/BetScraper-API-sub000/internal/shared/kafka"
)

// newEventsCmd acompanha as transições de Task publicadas pelos serviços
func newEventsCmd(a *app) *cobra.Command {
	var group string
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Imprime os eventos de Task do tópico até Ctrl+C",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			reader := kafka.NewReader(a.cfg.KafkaBrokers, a.cfg.TopicTaskEvents, group)
			defer reader.Close()

			enc := json.NewEncoder(cmd.OutOrStdout())
			for {
				_, value, err := kafka.ReadNext(ctx, reader)
				if err != nil {
					if errors.Is(err, context.Canceled) || ctx.Err() != nil {
						return nil
					}
					return err
				}
				ev, err := kafka.DecodeTaskEvent(value)
				if err != nil {
					a.log.Warn("skip malformed event", zap.Error(err))
					continue
				}
				if err := enc.Encode(ev); err != nil {
					return err
				}
			}
		},
	}
	cmd.Flags().StringVar(&group, "group", "compliance-tools", "consumer group do tópico")
	return cmd
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Ashu11-A/BetScraper-API-sub000/internal/batch"
	"github.com/Ashu11-A/BetScraper-API-sub000/internal/ocr"
	"github.com/Ashu11-A/BetScraper-API-sub000/internal/shared/storage"
)

// jobs monta o executor de scripts com storage e OCR da configuração
func (a *app) jobs(ctx context.Context, limit int) (*batch.Jobs, error) {
	store, err := a.postgres(ctx)
	if err != nil {
		return nil, err
	}
	files, err := storage.New(ctx, storage.Options{
		Driver:         a.cfg.StorageDriver,
		Dir:            a.cfg.StorageDir,
		MinioEndpoint:  a.cfg.MinioEndpoint,
		MinioAccessKey: a.cfg.MinioAccessKey,
		MinioSecretKey: a.cfg.MinioSecretKey,
		MinioBucket:    a.cfg.MinioBucket,
		MinioUseSSL:    a.cfg.MinioUseSSL,
	}, a.log)
	if err != nil {
		return nil, fmt.Errorf("storage init: %w", err)
	}
	if limit <= 0 {
		limit = a.cfg.BatchConcurrency
	}
	return batch.New(a.log, store, files, ocr.New(a.cfg.OCRURL, a.cfg.OCRTimeout), a.cfg.OCRThreshold, limit), nil
}

// batchCmd liga um script do pacote batch a um subcomando
func batchCmd(a *app, use, short string, run func(*batch.Jobs, context.Context) (batch.Summary, error)) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := a.jobs(cmd.Context(), limit)
			if err != nil {
				return err
			}
			s, err := run(j, cmd.Context())
			if perr := printSummary(cmd.OutOrStdout(), s); perr != nil && err == nil {
				err = perr
			}
			return err
		},
	}
	cmd.Flags().IntVar(&limit, "concurrency", 0, "itens simultâneos (default BATCH_CONCURRENCY)")
	return cmd
}

func newOCRBackfillCmd(a *app) *cobra.Command {
	return batchCmd(a, "ocr-backfill", "Reconhece as Images sem conteúdo e recalcula as compliances", (*batch.Jobs).OCRBackfill)
}

func newDedupImagesCmd(a *app) *cobra.Command {
	return batchCmd(a, "dedup-images", "Funde Images com o mesmo hash", (*batch.Jobs).DedupImages)
}

func newRematchCmd(a *app) *cobra.Command {
	return batchCmd(a, "rematch", "Recalcula as compliances de todas as unidades OCR", (*batch.Jobs).Rematch)
}

func printSummary(w io.Writer, s batch.Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

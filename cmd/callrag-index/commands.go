package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/callrag/internal/app"
	"github.com/kailas-cloud/callrag/internal/config"
	domdoc "github.com/kailas-cloud/callrag/internal/domain/document"
	logpkg "github.com/kailas-cloud/callrag/internal/logger"
	"github.com/kailas-cloud/callrag/internal/metrics"
	"github.com/kailas-cloud/callrag/internal/usecase/ingest"
)

// session holds the wired ingest service for one command invocation.
type session struct {
	logger  *zap.Logger
	service *ingest.Service
	close   func()
}

func setup(cmd *cobra.Command) (*session, error) {
	env, _ := cmd.Flags().GetString("env")
	if env == "" {
		env = config.GetEnv()
	}

	cfg, err := config.Load(env)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logpkg.NewLogger(env, cfg.Logging.Level, "callrag-index")
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	metrics.RegisterEmbeddingMetrics()

	ctx := cmd.Context()
	store, err := app.OpenStore(ctx, cfg, "callrag-index", logger)
	if err != nil {
		return nil, err
	}
	stores, err := app.OpenStores(ctx, cfg, store, logger)
	if err != nil {
		store.Close()
		return nil, err
	}
	embedders := app.BuildEmbedders(cfg, store, logger)

	var embed ingest.Embedder
	if embedders.Document != nil {
		embed = embedders.Document
	}

	svc := ingest.New(embed, cfg.Embedding.Dimensions, stores.Targets...).
		WithBatchSize(cfg.Index.LoadBatchSize)

	return &session{
		logger:  logger,
		service: svc,
		close: func() {
			stores.Close()
			store.Close()
			_ = logger.Sync()
		},
	}, nil
}

func tablesFlag(cmd *cobra.Command) ([]domdoc.Table, error) {
	names, _ := cmd.Flags().GetStringSlice("table")
	if len(names) == 0 {
		return []domdoc.Table{domdoc.CardProducts, domdoc.ServiceGuides}, nil
	}
	out := make([]domdoc.Table, 0, len(names))
	for _, n := range names {
		t, err := domdoc.ParseTable(n)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func newEnsureCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ensure",
		Short: "Create the retrieval indexes if they do not exist",
		RunE: func(cmd *cobra.Command, _ []string) error {
			tables, err := tablesFlag(cmd)
			if err != nil {
				return err
			}
			rt, err := setup(cmd)
			if err != nil {
				return err
			}
			defer rt.close()

			ensure := rt.service.Ensure
			if recreate, _ := cmd.Flags().GetBool("recreate"); recreate {
				ensure = rt.service.Recreate
			}
			if err := ensure(logpkg.ContextWithLogger(cmd.Context(), rt.logger), tables...); err != nil {
				return err
			}
			rt.logger.Info("Indexes ready", zap.Int("tables", len(tables)))
			return nil
		},
	}
	cmd.Flags().StringSlice("table", nil, "tables to prepare (card_products, service_guide_documents); default both")
	cmd.Flags().Bool("recreate", false, "drop and rebuild Redis indexes over the stored documents (e.g. after a dimension change)")
	return cmd
}

func newLoadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Embed and index a JSONL corpus",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := cmd.Flags().GetString("file")
			tableName, _ := cmd.Flags().GetString("table")
			table, err := domdoc.ParseTable(tableName)
			if err != nil {
				return err
			}

			f, err := os.Open(filepath.Clean(path))
			if err != nil {
				return fmt.Errorf("open corpus: %w", err)
			}
			defer f.Close()

			total := -1
			if n, _ := cmd.Flags().GetInt("count"); n > 0 {
				total = n
			}

			rt, err := setup(cmd)
			if err != nil {
				return err
			}
			defer rt.close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			bar := progressbar.Default(int64(total), "indexing "+string(table))
			rep, err := rt.service.Load(ctx, f, table, bar)
			_ = bar.Finish()
			if err != nil {
				return err
			}

			for _, fl := range rep.Failures {
				rt.logger.Warn("Skipped document", zap.Int("line", fl.Line), zap.String("id", fl.ID), zap.Error(fl.Err))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "read=%d indexed=%d embedded=%d tokens=%d skipped=%d\n",
				rep.Read, rep.Indexed, rep.Embedded, rep.Tokens, len(rep.Failures))
			return nil
		},
	}
	cmd.Flags().String("file", "", "path to a JSONL corpus")
	cmd.Flags().String("table", "", "target table (card_products or service_guide_documents)")
	cmd.Flags().Int("count", 0, "expected document count for the progress bar")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("table")
	return cmd
}

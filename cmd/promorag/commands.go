package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/promorag/internal/config"
	httpserver "github.com/fyrsmithlabs/promorag/internal/http"
	"github.com/fyrsmithlabs/promorag/internal/query"
)

// withApp runs fn with a started app and closes it afterwards.
func withApp(cmd *cobra.Command, flags *globalFlags, fn func(ctx context.Context, a *app) error) (err error) {
	ctx := cmd.Context()
	a, err := newApp(ctx, flags)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(ctx); cerr != nil && err == nil {
			a.logger.Warn(ctx, "shutdown incomplete", zap.Error(cerr))
		}
	}()
	return fn(ctx, a)
}

func newProcessCmd(flags *globalFlags) *cobra.Command {
	var source, output string
	cmd := &cobra.Command{
		Use:   "process",
		Short: "Parse and chunk source documents into the chunk store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, flags, func(ctx context.Context, a *app) error {
				if source != "" {
					a.cfg.Ingest.Source = source
				}
				if output != "" {
					a.cfg.Ingest.Output = output
				}
				ing, err := a.ingestor(ctx, false)
				if err != nil {
					return err
				}

				start := time.Now()
				chunks, err := ing.Process(ctx)
				if err != nil {
					return err
				}
				a.logger.Info(ctx, "processing complete",
					zap.Int("chunks", len(chunks)),
					zap.String("output", a.cfg.Ingest.Output),
					zap.Duration("duration", time.Since(start)))
				fmt.Fprintf(cmd.OutOrStdout(), "%d chunks written to %s\n", len(chunks), a.cfg.Ingest.Output)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "document directory or URL (overrides ingest.source)")
	cmd.Flags().StringVar(&output, "output", "", "chunk store path (overrides ingest.output)")
	return cmd
}

func newIndexCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "index",
		Short: "Embed the chunk store into the vector index, replacing its content",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, flags, func(ctx context.Context, a *app) error {
				ing, err := a.ingestor(ctx, true)
				if err != nil {
					return err
				}
				start := time.Now()
				if err := ing.Index(ctx); err != nil {
					return err
				}
				count, err := ing.Vectors.Count(ctx)
				if err != nil {
					return err
				}
				a.logger.Info(ctx, "indexing complete",
					zap.Int("vectors", count),
					zap.Duration("duration", time.Since(start)))
				fmt.Fprintf(cmd.OutOrStdout(), "%d vectors indexed\n", count)
				return nil
			})
		},
	}
}

func newAskCmd(flags *globalFlags) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Answer a question, or start a chat on stdin when none is given",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, func(ctx context.Context, a *app) error {
				r, err := a.retriever(ctx, true)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(args) == 0 {
					return runChat(ctx, r, cmd.InOrStdin(), out)
				}
				answer, err := r.Ask(ctx, strings.Join(args, " "))
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(out, answer)
				}
				fmt.Fprintln(out, answer.Text)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full answer with candidates as JSON")
	return cmd
}

// newClassifyCmd classifies queries offline; it needs neither the index nor
// the embedder.
func newClassifyCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "classify <query>",
		Short: "Print the query type and parameters",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := config.Load(config.Options{File: flags.configFile, DotEnv: flags.envFile}); err != nil {
				return err
			}
			q := strings.Join(args, " ")
			cls := query.NewClassifier(query.DefaultKeywords()).Classify(q)
			return writeJSON(cmd.OutOrStdout(), httpserver.ClassifyResponse{Query: q, Classification: cls})
		},
	}
}

func newServeCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, flags, func(ctx context.Context, a *app) error {
				r, err := a.retriever(ctx, true)
				if err != nil {
					return err
				}
				srv, err := httpserver.NewServer(r, a.zapLogger(), &httpserver.Config{
					Host:           a.cfg.Server.Host,
					Port:           a.cfg.Server.Port,
					RequestTimeout: a.cfg.Server.RequestTimeout.Duration(),
				})
				if err != nil {
					return err
				}
				return serve(ctx, srv, a.cfg.Server.ShutdownTimeout.Duration())
			})
		},
	}
}

type server interface {
	Start() error
	Shutdown(ctx context.Context) error
}

// serve runs srv until ctx is done, then shuts it down within timeout.
func serve(ctx context.Context, srv server, timeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

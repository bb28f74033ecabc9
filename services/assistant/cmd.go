package assistant

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/kaytu-io/news-assistant/pkg/httpserver"
	"github.com/kaytu-io/news-assistant/pkg/koanf"
	"github.com/kaytu-io/news-assistant/services/assistant/actions"
	"github.com/kaytu-io/news-assistant/services/assistant/api"
	"github.com/kaytu-io/news-assistant/services/assistant/config"
	"github.com/kaytu-io/news-assistant/services/assistant/model"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func Command() *cobra.Command {
	// a missing .env file is fine, the environment may be set already
	_ = godotenv.Load()

	cnf := koanf.Provide("assistant", config.Default()).WithFallbackKeys()

	cmd := &cobra.Command{
		Use:   "assistant-service",
		Short: "Serve the news summarizer assistant over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := zap.NewProduction()
			if err != nil {
				return err
			}

			logger = logger.Named("assistant")

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			s, err := newService(ctx, logger, cnf)
			if err != nil {
				return err
			}

			if cnf.Run.MaxWait <= 0 || cnf.Run.StaleAfter <= cnf.Run.MaxWait {
				logger.Warn("stale_after does not exceed max_wait, awaited runs may be reaped",
					zap.Duration("stale_after", cnf.Run.StaleAfter), zap.Duration("max_wait", cnf.Run.MaxWait))
			}
			reaper := actions.NewReaper(logger, s.oc, s.runs, cnf.Run.ReapInterval, cnf.Run.StaleAfter)
			go reaper.Run(ctx)

			cmd.SilenceUsage = true

			return httpserver.RegisterAndStart(
				ctx,
				logger,
				cnf.Http.Address,
				api.New(logger, s.oc, s.coordinator, s.threads, s.runs, s.assistantID),
			)
		},
	}

	cmd.AddCommand(summarizeCommand(&cnf))

	return cmd
}

func summarizeCommand(cnf *config.AssistantConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "summarize <topic>",
		Short: "Summarize the latest news on a topic",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := zap.NewProduction()
			if err != nil {
				return err
			}
			logger = logger.Named("assistant")

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			s, err := newService(ctx, logger, *cnf)
			if err != nil {
				return err
			}

			cmd.SilenceUsage = true

			threadID, err := s.oc.NewThread(ctx)
			if err != nil {
				return err
			}
			if err := s.threads.Create(ctx, model.Thread{ID: threadID}); err != nil {
				logger.Warn("failed to store thread", zap.Error(err), zap.String("thread_id", threadID))
			}

			topic := strings.Join(args, " ")
			if err := s.oc.SendMessage(ctx, threadID, fmt.Sprintf("summarize the news on this topic %s?", topic)); err != nil {
				return err
			}

			summary, err := s.coordinator.Execute(ctx, threadID, s.assistantID, cnf.Assistant.RunInstructions)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), summary)
			return err
		},
	}
}

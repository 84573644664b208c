package server

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/malonaz/ragchat/internal/cli"
	"github.com/malonaz/ragchat/internal/configuration"
	"github.com/malonaz/ragchat/internal/file"
	"github.com/malonaz/ragchat/store"
)

// NewServeCmd instantiates and returns the serve command.
func NewServeCmd(config *configuration.Config) *cobra.Command {
	var opts struct {
		Port     int
		Database string
		Seed     bool
	}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the rag-chat API backed by a local database",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := file.CreateParentDirectory(opts.Database); err != nil {
				return err
			}
			s, err := store.New(opts.Database)
			if err != nil {
				return err
			}
			defer s.Close()

			if opts.Seed {
				n, err := s.SeedKnowledgeBases(SampleKnowledgeBases())
				if err != nil {
					return err
				}
				if n > 0 {
					cli.Info("seeded %d knowledge bases\n", n)
				}
			}

			server, err := New(s, &Options{
				Port:           opts.Port,
				AnswerTemplate: config.Server.AnswerTemplate,
				ChunkRunes:     config.Server.ChunkRunes,
				ChunkDelay:     config.Server.ChunkDelay(),
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return server.Start(ctx)
		},
	}

	cmd.Flags().IntVarP(&opts.Port, "port", "p", config.Server.Port, "Port to serve on")
	cmd.Flags().StringVar(&opts.Database, "database", config.Server.Database, "Path of the sqlite database")
	cmd.Flags().BoolVar(&opts.Seed, "seed", true, "Seed an empty database with sample knowledge bases")
	return cmd
}

package chat

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/malonaz/ragchat/cli/tui"
	"github.com/malonaz/ragchat/internal/configuration"
	"github.com/malonaz/ragchat/internal/rag"
)

// NewCmd instantiates and returns the chat command.
func NewCmd(config *configuration.Config) *cobra.Command {
	var opts struct {
		KnowledgeBaseIDs []int64
		SessionID        int64
	}
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with your knowledge bases",
		Long:  "Interactive chat answering questions from the selected knowledge bases",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client := rag.NewClientFromConfig(config)

			m, err := tui.New(ctx, config, client, tui.Options{
				KnowledgeBaseIDs: opts.KnowledgeBaseIDs,
				SessionID:        opts.SessionID,
			})
			if err != nil {
				return err
			}

			// Create the Bubble Tea program
			p := tea.NewProgram(
				m,
				tea.WithAltScreen(),
				tea.WithContext(ctx),
				tea.WithMouseCellMotion(),
			)

			// Set the program reference for async message sending
			m.SetProgram(p)
			defer m.Close()

			if _, err := p.Run(); err != nil {
				return fmt.Errorf("error running chat: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().Int64SliceVarP(&opts.KnowledgeBaseIDs, "kb", "k", nil, "Knowledge bases to ask (defaults to the configured ones)")
	cmd.Flags().Int64VarP(&opts.SessionID, "session", "s", 0, "Open an existing session")
	return cmd
}

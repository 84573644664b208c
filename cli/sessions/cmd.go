// Package sessions implements the commands managing chat sessions.
package sessions

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/malonaz/ragchat/internal/cli"
	"github.com/malonaz/ragchat/internal/configuration"
	"github.com/malonaz/ragchat/internal/markdown"
	"github.com/malonaz/ragchat/internal/rag"
)

const timeLayout = "2006-01-02 15:04"

// NewCmd instantiates and returns the sessions command.
func NewCmd(config *configuration.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sessions",
		Aliases: []string{"session"},
		Short:   "Manage chat sessions",
		Long:    "List, inspect, rename, pin, rebind and delete chat sessions",
	}
	cmd.AddCommand(
		newListCmd(config),
		newShowCmd(config),
		newRenameCmd(config),
		newPinCmd(config),
		newSetKnowledgeBasesCmd(config),
		newDeleteCmd(config),
	)
	return cmd
}

func newListCmd(config *configuration.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List sessions, pinned first",
		Args:  cobra.ExactArgs(0),
		Run: func(cmd *cobra.Command, args []string) {
			client := rag.NewClientFromConfig(config)
			sessions, err := client.ListSessions(cmd.Context())
			cobra.CheckErr(err)

			cli.Title("RAGCHAT SESSIONS")
			if len(sessions) == 0 {
				cli.Info("no session\n")
				return
			}
			for _, session := range sessions {
				pin := "  "
				if session.IsPinned {
					pin = "📌"
				}
				cli.Highlight("%s %d ", pin, session.ID)
				cli.Answer(session.Title)
				cli.Info("  %d messages  [%s]  %s\n",
					session.MessageCount, strings.Join(session.KnowledgeBaseNames, ", "), session.UpdatedAt.Local().Format(timeLayout))
			}
		},
	}
}

func newShowCmd(config *configuration.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print a session and its messages",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			id, err := cli.ParseID(args[0])
			cobra.CheckErr(err)
			client := rag.NewClientFromConfig(config)
			session, err := client.GetSession(cmd.Context(), id)
			cobra.CheckErr(err)

			cli.Title("%s (%d)", session.Title, session.ID)
			names := make([]string, 0, len(session.KnowledgeBases))
			for _, knowledgeBase := range session.KnowledgeBases {
				names = append(names, knowledgeBase.Name)
			}
			cli.Info("knowledge bases: %s\n", strings.Join(names, ", "))
			cli.Info("created %s, updated %s\n", session.CreatedAt.Local().Format(timeLayout), session.UpdatedAt.Local().Format(timeLayout))
			for _, message := range session.Messages {
				cli.Separator()
				if message.Role == rag.RoleUser {
					cli.Question(message.Content)
					continue
				}
				cli.Answer(markdown.Normalize(message.Content) + "\n")
			}
		},
	}
}

func newRenameCmd(config *configuration.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id> <title>",
		Short: "Rename a session",
		Args:  cobra.MinimumNArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			id, err := cli.ParseID(args[0])
			cobra.CheckErr(err)
			title := strings.TrimSpace(strings.Join(args[1:], " "))
			if title == "" {
				cobra.CheckErr(errors.New("title must not be empty"))
			}
			client := rag.NewClientFromConfig(config)
			cobra.CheckErr(client.UpdateSessionTitle(cmd.Context(), id, title))
			cli.Info("session %d renamed to %s\n", id, title)
		},
	}
}

func newPinCmd(config *configuration.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "pin <id>",
		Short: "Pin or unpin a session",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			id, err := cli.ParseID(args[0])
			cobra.CheckErr(err)
			client := rag.NewClientFromConfig(config)
			cobra.CheckErr(client.ToggleSessionPin(cmd.Context(), id))
			session, err := client.GetSession(cmd.Context(), id)
			cobra.CheckErr(err)
			cli.Info("session %d (%s) pin toggled\n", id, session.Title)
		},
	}
}

func newSetKnowledgeBasesCmd(config *configuration.Config) *cobra.Command {
	var knowledgeBaseIDs []int64
	cmd := &cobra.Command{
		Use:   "set-kbs <id>",
		Short: "Replace the knowledge bases of a session",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			id, err := cli.ParseID(args[0])
			cobra.CheckErr(err)
			if len(knowledgeBaseIDs) == 0 {
				cobra.CheckErr(errors.New("at least one knowledge base is required"))
			}
			client := rag.NewClientFromConfig(config)
			cobra.CheckErr(client.UpdateSessionKnowledgeBases(cmd.Context(), id, knowledgeBaseIDs))
			cli.Info("session %d now uses knowledge bases %v\n", id, knowledgeBaseIDs)
		},
	}
	cmd.Flags().Int64SliceVarP(&knowledgeBaseIDs, "kb", "k", nil, "Knowledge bases of the session")
	return cmd
}

func newDeleteCmd(config *configuration.Config) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a session and its messages",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			id, err := cli.ParseID(args[0])
			cobra.CheckErr(err)
			if !yes && !cli.QueryUser("delete session "+args[0]+"?") {
				return
			}
			client := rag.NewClientFromConfig(config)
			cobra.CheckErr(client.DeleteSession(cmd.Context(), id))
			cli.Info("session %d deleted\n", id)
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

// Package kb implements the commands browsing knowledge bases.
package kb

import (
	"fmt"
	"slices"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/malonaz/ragchat/internal/cli"
	"github.com/malonaz/ragchat/internal/configuration"
	"github.com/malonaz/ragchat/internal/rag"
)

const timeLayout = "2006-01-02 15:04"

var sortOrders = []string{rag.SortByTime, rag.SortBySize, rag.SortByAccess, rag.SortByQuestion}

// NewCmd instantiates and returns the kb command.
func NewCmd(config *configuration.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "kb",
		Aliases: []string{"knowledge-bases"},
		Short:   "Browse knowledge bases",
	}
	cmd.AddCommand(
		newListCmd(config),
		newSearchCmd(config),
		newStatsCmd(config),
		newShowCmd(config),
		newDeleteCmd(config),
	)
	return cmd
}

func newListCmd(config *configuration.Config) *cobra.Command {
	var sortBy string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List knowledge bases",
		Args:  cobra.ExactArgs(0),
		Run: func(cmd *cobra.Command, args []string) {
			if sortBy != "" && !slices.Contains(sortOrders, sortBy) {
				cobra.CheckErr(errors.Errorf("unknown sort order %q, expected one of %v", sortBy, sortOrders))
			}
			client := rag.NewClientFromConfig(config)
			knowledgeBases, err := client.ListKnowledgeBases(cmd.Context(), &rag.ListKnowledgeBasesRequest{SortBy: sortBy})
			cobra.CheckErr(err)
			cli.Title("RAGCHAT KNOWLEDGE BASES")
			printKnowledgeBases(knowledgeBases)
		},
	}
	cmd.Flags().StringVar(&sortBy, "sort", "", fmt.Sprintf("Sort order, one of %v", sortOrders))
	cmd.RegisterFlagCompletionFunc("sort", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return sortOrders, cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}

func newSearchCmd(config *configuration.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "search <keyword>",
		Short: "Search knowledge bases by name",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			client := rag.NewClientFromConfig(config)
			knowledgeBases, err := client.SearchKnowledgeBases(cmd.Context(), args[0])
			cobra.CheckErr(err)
			cli.Title("RAGCHAT KNOWLEDGE BASES [%s]", args[0])
			printKnowledgeBases(knowledgeBases)
		},
	}
}

func newStatsCmd(config *configuration.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print usage statistics",
		Args:  cobra.ExactArgs(0),
		Run: func(cmd *cobra.Command, args []string) {
			client := rag.NewClientFromConfig(config)
			stats, err := client.GetKnowledgeBaseStats(cmd.Context())
			cobra.CheckErr(err)
			cli.Info("knowledge bases: %d\n", stats.TotalCount)
			cli.Info("questions:       %d\n", stats.TotalQuestionCount)
			cli.Info("accesses:        %d\n", stats.TotalAccessCount)
		},
	}
}

func newShowCmd(config *configuration.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print a knowledge base",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			id, err := cli.ParseID(args[0])
			cobra.CheckErr(err)
			client := rag.NewClientFromConfig(config)
			knowledgeBase, err := client.GetKnowledgeBase(cmd.Context(), id)
			cobra.CheckErr(err)

			cli.Title("%s (%d)", knowledgeBase.Name, knowledgeBase.ID)
			cli.Info("category:  %s\n", knowledgeBase.Category)
			cli.Info("file:      %s (%s, %s)\n", knowledgeBase.OriginalFilename, knowledgeBase.ContentType, formatSize(knowledgeBase.FileSize))
			cli.Info("uploaded:  %s\n", knowledgeBase.UploadedAt.Local().Format(timeLayout))
			if !knowledgeBase.LastAccessedAt.IsZero() {
				cli.Info("accessed:  %s\n", knowledgeBase.LastAccessedAt.Local().Format(timeLayout))
			}
			cli.Info("accesses:  %d\n", knowledgeBase.AccessCount)
			cli.Info("questions: %d\n", knowledgeBase.QuestionCount)
		},
	}
}

func newDeleteCmd(config *configuration.Config) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a knowledge base",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			id, err := cli.ParseID(args[0])
			cobra.CheckErr(err)
			if !yes && !cli.QueryUser("delete knowledge base "+args[0]+"?") {
				return
			}
			client := rag.NewClientFromConfig(config)
			cobra.CheckErr(client.DeleteKnowledgeBase(cmd.Context(), id))
			cli.Info("knowledge base %d deleted\n", id)
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func printKnowledgeBases(knowledgeBases []*rag.KnowledgeBase) {
	if len(knowledgeBases) == 0 {
		cli.Info("no knowledge base\n")
		return
	}
	for _, knowledgeBase := range knowledgeBases {
		cli.Highlight("%4d ", knowledgeBase.ID)
		cli.Answer(knowledgeBase.Name)
		if knowledgeBase.Category != "" {
			cli.Info("  [%s]", knowledgeBase.Category)
		}
		cli.Info("  %s  %d questions  %d accesses\n", formatSize(knowledgeBase.FileSize), knowledgeBase.QuestionCount, knowledgeBase.AccessCount)
	}
}

// formatSize formats a byte count with a binary unit.
func formatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(size)/float64(div), "KMGTPE"[exp])
}

package chat

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/malonaz/ragchat/internal/apierr"
	"github.com/malonaz/ragchat/internal/cli"
	"github.com/malonaz/ragchat/internal/configuration"
	"github.com/malonaz/ragchat/internal/markdown"
	"github.com/malonaz/ragchat/internal/rag"
	"github.com/malonaz/ragchat/internal/turn"
)

// askHistoryFilename holds the readline history of the ask command, next to the chat history.
const askHistoryFilename = "ask_history"

// askClient is the part of the rag client the ask command uses.
type askClient interface {
	ListKnowledgeBases(ctx context.Context, request *rag.ListKnowledgeBasesRequest) ([]*rag.KnowledgeBase, error)
	GetSession(ctx context.Context, sessionID int64) (*rag.SessionDetail, error)
	CreateSession(ctx context.Context, request *rag.CreateSessionRequest) (*rag.Session, error)
	StreamMessage(ctx context.Context, sessionID int64, question string, handler rag.Handler)
}

// NewAskCmd instantiates and returns the ask command: a line-oriented chat for terminals where
// the full screen chat is not wanted.
func NewAskCmd(config *configuration.Config) *cobra.Command {
	var opts struct {
		KnowledgeBaseIDs []int64
		SessionID        int64
	}
	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Line by line chat",
		Long:  "Line by line chat. Ctrl+J submits a question, Ctrl+C interrupts an answer. A question given as argument is answered once",
		Args:  cobra.ArbitraryArgs,
		Run: func(cmd *cobra.Command, args []string) {
			ctx := cmd.Context()
			client := rag.NewClientFromConfig(config)

			sessionID := opts.SessionID
			title := "新对话"
			kbIDs := opts.KnowledgeBaseIDs
			if sessionID != 0 {
				session, err := client.GetSession(ctx, sessionID)
				cobra.CheckErr(err)
				title = session.Title
				kbIDs = session.KnowledgeBaseIDs()
				cli.Title("RAGCHAT [%s](%d)", title, sessionID)
				for _, message := range session.Messages {
					if message.Role == rag.RoleUser {
						cli.Question(message.Content)
						continue
					}
					cli.Answer(markdown.Unescape(message.Content) + "\n")
				}
			} else {
				if len(kbIDs) == 0 {
					kbIDs = config.Chat.DefaultKnowledgeBaseIDs
				}
				if len(kbIDs) == 0 {
					selected, err := selectKnowledgeBases(ctx, client)
					cobra.CheckErr(err)
					kbIDs = selected
				}
				cli.Title("RAGCHAT [%s]", title)
			}

			ensureSession := func() bool {
				if sessionID != 0 {
					return true
				}
				session, err := client.CreateSession(ctx, &rag.CreateSessionRequest{KnowledgeBaseIDs: kbIDs})
				if err != nil {
					cli.Error("创建会话失败：%s\n", apierr.Message(err))
					return false
				}
				sessionID = session.ID
				cli.Info("session %d (%s)\n", session.ID, session.Title)
				return true
			}

			if question := strings.TrimSpace(strings.Join(args, " ")); question != "" {
				cli.Question(question)
				if ensureSession() {
					ask(ctx, client, sessionID, question)
				}
				return
			}

			historyFile := ""
			if config.Chat.HistoryFile != "" {
				historyFile = filepath.Join(filepath.Dir(config.Chat.HistoryFile), askHistoryFilename)
			}
			for {
				text, err := cli.PromptUser(historyFile)
				if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
					return
				}
				cobra.CheckErr(err)
				question := strings.TrimSpace(text)
				if question == "" {
					continue
				}

				if !ensureSession() {
					continue
				}
				ask(ctx, client, sessionID, question)
			}
		},
	}

	cmd.Flags().Int64SliceVarP(&opts.KnowledgeBaseIDs, "kb", "k", nil, "Knowledge bases to ask (defaults to the configured ones)")
	cmd.Flags().Int64VarP(&opts.SessionID, "session", "s", 0, "Continue an existing session")
	return cmd
}

// selectKnowledgeBases prompts the user for the knowledge bases of a new session.
func selectKnowledgeBases(ctx context.Context, client askClient) ([]int64, error) {
	knowledgeBases, err := client.ListKnowledgeBases(ctx, nil)
	if err != nil {
		return nil, err
	}
	if len(knowledgeBases) == 0 {
		return nil, errors.New("no knowledge base available")
	}
	options := make([]string, 0, len(knowledgeBases))
	for _, knowledgeBase := range knowledgeBases {
		options = append(options, knowledgeBase.Name)
	}
	for {
		selected, err := cli.SelectMany("选择知识库", options, nil)
		if err != nil {
			return nil, err
		}
		if len(selected) == 0 {
			cli.Error("至少选择一个知识库\n")
			continue
		}
		ids := make([]int64, 0, len(selected))
		for _, i := range selected {
			ids = append(ids, knowledgeBases[i].ID)
		}
		return ids, nil
	}
}

// ask streams the answer to question, printing it as it arrives. Ctrl+C interrupts the answer.
func ask(ctx context.Context, client askClient, sessionID int64, question string) {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	p := &answerPrinter{out: cli.Answer}
	var streamErr error
	client.StreamMessage(ctx, sessionID, question, rag.HandlerFuncs{
		Fragment: p.write,
		Error:    func(err error) { streamErr = err },
	})
	p.flush()

	switch {
	case streamErr == nil:
		cli.Answer("\n")
	case errors.Is(streamErr, context.Canceled):
		cli.Highlight("\n#已中断\n")
	case p.printed == 0:
		cli.Error("%s\n", turn.FailureText("", streamErr))
	default:
		cli.Error("\n%s\n", apierr.Message(streamErr))
	}
}

// answerPrinter prints streamed fragments with their escaped newlines restored.
type answerPrinter struct {
	out func(text string)
	// pending is the raw text not printed yet.
	pending string
	printed int
}

func (p *answerPrinter) write(fragment string) {
	p.pending += fragment
	p.print(escapeBoundary(p.pending))
}

func (p *answerPrinter) flush() {
	p.print(len(p.pending))
}

// print prints the first n raw bytes of pending.
func (p *answerPrinter) print(n int) {
	if n == 0 {
		return
	}
	text := markdown.Unescape(p.pending[:n])
	p.pending = p.pending[n:]
	if text == "" {
		return
	}
	p.out(text)
	p.printed += len(text)
}

// escapeBoundary returns the length of the longest prefix of raw that does not end inside an
// escape sequence: a trailing backslash may be completed by the next fragment.
func escapeBoundary(raw string) int {
	for i := 0; i < len(raw); i++ {
		if raw[i] != '\\' {
			continue
		}
		if i == len(raw)-1 {
			return i
		}
		i++
	}
	return len(raw)
}

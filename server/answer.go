package server

import (
	"strings"

	"github.com/malonaz/ragchat/internal/stream"
)

// NoResultAnswer is the answer to a question asked in a session without knowledge bases.
const NoResultAnswer = "抱歉，在选定的知识库中没有找到相关信息。请尝试调整问题或选择其他知识库。"

// AnswerData is the input of the answer template.
type AnswerData struct {
	Question           string
	SessionTitle       string
	KnowledgeBaseNames []string
	// QuestionIndex is the 1-based position of the question within its session.
	QuestionIndex int
}

// renderAnswer produces the answer to a question.
func (s *Server) renderAnswer(data *AnswerData) (string, error) {
	if len(data.KnowledgeBaseNames) == 0 {
		return NoResultAnswer, nil
	}
	var sb strings.Builder
	if err := s.answer.Execute(&sb, data); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// chunkRunes splits text into pieces of at most size runes.
func chunkRunes(text string, size int) []string {
	runes := []rune(text)
	chunks := make([]string, 0, len(runes)/size+1)
	for start := 0; start < len(runes); start += size {
		end := min(start+size, len(runes))
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}

var eventEscaper = strings.NewReplacer("\n", `\n`, "\r", `\r`)

// encodeEvent frames a chunk as an event. Line breaks are escaped so they cannot end the event.
// Readers strip one space after the marker, so it is always written: a chunk starting with a
// space keeps it.
func encodeEvent(chunk string) string {
	return stream.FieldMarker + " " + eventEscaper.Replace(chunk) + "\n\n"
}

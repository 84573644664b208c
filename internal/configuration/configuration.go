package configuration

import (
	"encoding/json"
	"os"
	"time"

	"dario.cat/mergo"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"

	"github.com/malonaz/ragchat/internal/file"
)

// EnvFilepath is loaded, if present, before environment overrides are applied.
const EnvFilepath = ".env"

var defaultConfig = Config{
	BaseURL:           "http://localhost:8080/api/rag-chat",
	KnowledgeBaseURL:  "http://localhost:8080/api/knowledgebase",
	RequestTimeout:    30,
	StreamIdleTimeout: 60,

	Chat: ChatConfig{
		RenderIntervalMs:    66,
		NearBottomLines:     3,
		ScrollResumeDelayMs: 1000,
		HistoryFile:         "~/.config/ragchat/question_history",
	},

	Server: ServerConfig{
		Port:         8080,
		Database:     "~/.config/ragchat/server.db",
		ChunkRunes:   4,
		ChunkDelayMs: 30,
		AnswerTemplate: `根据知识库 {{ .KnowledgeBaseNames | join "、" }} 的内容，关于「{{ .Question | trim }}」：

1. 会话「{{ .SessionTitle }}」中这是第 {{ .QuestionIndex }} 个问题。
2. 检索到 {{ len .KnowledgeBaseNames }} 个相关知识库。

以上内容根据 {{ now | date "2006-01-02" }} 的检索结果生成。`,
	},
}

// Config holds configuration for the ragchat tool.
type Config struct {
	// Base URL of the rag-chat session API.
	BaseURL string `json:"base_url" env:"RAGCHAT_BASE_URL"`
	// Base URL of the knowledge-base API.
	KnowledgeBaseURL string `json:"knowledge_base_url" env:"RAGCHAT_KNOWLEDGE_BASE_URL"`
	// Timeout in seconds of non-streaming requests.
	RequestTimeout int `json:"request_timeout" env:"RAGCHAT_REQUEST_TIMEOUT"`
	// A stream that yields no bytes for this many seconds fails. A negative value disables the
	// bound; zero is replaced by the default like every other zero field.
	StreamIdleTimeout int `json:"stream_idle_timeout" env:"RAGCHAT_STREAM_IDLE_TIMEOUT"`

	Chat   ChatConfig   `json:"chat"`
	Server ServerConfig `json:"server"`
}

// ChatConfig holds configuration for ragchat chat.
type ChatConfig struct {
	// Minimum interval between two renders of a streaming answer.
	RenderIntervalMs int `json:"render_interval_ms"`
	// The view counts as "at the bottom" within this many lines.
	NearBottomLines int `json:"near_bottom_lines"`
	// Auto-scroll resumes once the user stayed near the bottom for this long.
	ScrollResumeDelayMs int `json:"scroll_resume_delay_ms"`
	// Where submitted questions are persisted.
	HistoryFile string `json:"history_file"`
	// Knowledge bases selected when none are given on the command line.
	DefaultKnowledgeBaseIDs []int64 `json:"default_knowledge_base_ids"`
}

// ServerConfig holds configuration for ragchat serve.
type ServerConfig struct {
	Port     int    `json:"port" env:"RAGCHAT_SERVER_PORT"`
	Database string `json:"database" env:"RAGCHAT_SERVER_DATABASE"`
	// text/template (with sprig functions) used to produce answers.
	AnswerTemplate string `json:"answer_template"`
	ChunkRunes     int    `json:"chunk_runes"`
	ChunkDelayMs   int    `json:"chunk_delay_ms"`
}

// RequestTimeoutDuration returns the request timeout.
func (c *Config) RequestTimeoutDuration() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// StreamIdleTimeoutDuration returns the stream idle timeout, 0 meaning unbounded.
func (c *Config) StreamIdleTimeoutDuration() time.Duration {
	if c.StreamIdleTimeout < 0 {
		return 0
	}
	return time.Duration(c.StreamIdleTimeout) * time.Second
}

// RenderInterval returns the render interval.
func (c *ChatConfig) RenderInterval() time.Duration {
	return time.Duration(c.RenderIntervalMs) * time.Millisecond
}

// ScrollResumeDelay returns the scroll resume delay.
func (c *ChatConfig) ScrollResumeDelay() time.Duration {
	return time.Duration(c.ScrollResumeDelayMs) * time.Millisecond
}

// ChunkDelay returns the delay between two streamed chunks.
func (c *ServerConfig) ChunkDelay() time.Duration {
	return time.Duration(c.ChunkDelayMs) * time.Millisecond
}

// Default returns a copy of the default configuration, with paths expanded.
func Default() (*Config, error) {
	config := defaultConfig
	if err := config.expandPaths(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Parse a configuration file.
func Parse(path string) (*Config, error) {
	path, err := file.ExpandPath(path)
	if err != nil {
		return nil, errors.Wrap(err, "expanding path")
	}

	if err := initializeIfNotPresent(path); err != nil {
		return nil, errors.Wrap(err, "initializing configuration")
	}
	bytes, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading file")
	}

	config := &Config{}
	if err = json.Unmarshal(bytes, config); err != nil {
		return nil, errors.Wrap(err, "unmarshaling into config")
	}

	// Fields missing from older config files fall back to the defaults.
	if err := mergo.Merge(config, defaultConfig); err != nil {
		return nil, errors.Wrap(err, "merging default config")
	}

	if err := godotenv.Load(EnvFilepath); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "loading env file")
	}
	if err := cleanenv.ReadEnv(config); err != nil {
		return nil, errors.Wrap(err, "reading env overrides")
	}

	if err := config.expandPaths(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) expandPaths() error {
	historyFile, err := file.ExpandPath(c.Chat.HistoryFile)
	if err != nil {
		return errors.Wrap(err, "expanding history file path")
	}
	c.Chat.HistoryFile = historyFile

	database, err := file.ExpandPath(c.Server.Database)
	if err != nil {
		return errors.Wrap(err, "expanding database path")
	}
	c.Server.Database = database
	return nil
}

// save a configuration file.
func (c *Config) save(path string) error {
	bytes, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshaling config")
	}

	err = os.WriteFile(path, bytes, 0644)
	if err != nil {
		return errors.Wrap(err, "writing file")
	}

	return nil
}

// initializeIfNotPresent writes the default config to path if no file exists there.
func initializeIfNotPresent(path string) error {
	exists, err := file.Exists(path)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	if err := file.CreateParentDirectory(path); err != nil {
		return errors.Wrap(err, "creating folders")
	}
	if err := defaultConfig.save(path); err != nil {
		return errors.Wrap(err, "saving default config")
	}
	return nil
}

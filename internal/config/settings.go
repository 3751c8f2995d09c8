package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Settings are the values that change between deployments.
// The constants in environmentVariables.go are their defaults.
type Settings struct {
	Server    ServerSettings    `mapstructure:"server"`
	Log       LogSettings       `mapstructure:"log"`
	Qdrant    QdrantSettings    `mapstructure:"qdrant"`
	Redis     RedisSettings     `mapstructure:"redis"`
	LLM       LLMSettings       `mapstructure:"llm"`
	Embedding EmbeddingSettings `mapstructure:"embedding"`
	Crawler   CrawlerSettings   `mapstructure:"crawler"`
	Chunker   ChunkerSettings   `mapstructure:"chunker"`
}

type ServerSettings struct {
	ListenAddr string `mapstructure:"listen_addr"`
}

type LogSettings struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

type QdrantSettings struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	APIKey     string `mapstructure:"api_key"`
	UseTLS     bool   `mapstructure:"use_tls"`
	Collection string `mapstructure:"collection"`
}

type RedisSettings struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
}

type LLMSettings struct {
	Provider      string `mapstructure:"provider"`
	Model         string `mapstructure:"model"`
	APIKey        string `mapstructure:"api_key"`
	BaseURL       string `mapstructure:"base_url"`
	LLMClassifier bool   `mapstructure:"llm_classifier"`
	SystemPrompt  string `mapstructure:"system_prompt"`
}

type EmbeddingSettings struct {
	Provider  string `mapstructure:"provider"`
	Model     string `mapstructure:"model"`
	APIKey    string `mapstructure:"api_key"`
	BaseURL   string `mapstructure:"base_url"`
	Dimension int    `mapstructure:"dimension"`
	Cache     bool   `mapstructure:"cache"`
}

type CrawlerSettings struct {
	BaseURL         string        `mapstructure:"base_url"`
	NewsURLs        []string      `mapstructure:"news_urls"`
	MaxConcurrent   int           `mapstructure:"max_concurrent"`
	FetchTimeout    time.Duration `mapstructure:"fetch_timeout"`
	Retries         int           `mapstructure:"retries"`
	ExcludePatterns []string      `mapstructure:"exclude_patterns"`
	Render          bool          `mapstructure:"render"`
	UserAgent       string        `mapstructure:"user_agent"`
}

type ChunkerSettings struct {
	Size    int    `mapstructure:"size"`
	Overlap int    `mapstructure:"overlap"`
	Unit    string `mapstructure:"unit"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.listen_addr", ServerListenAddr)
	v.SetDefault("log.level", "debug")
	v.SetDefault("log.json", IS_PROD)

	v.SetDefault("qdrant.host", QdrantHost)
	v.SetDefault("qdrant.port", QdrantGrpcPort)
	v.SetDefault("qdrant.use_tls", QdrantUseTLS)
	v.SetDefault("qdrant.collection", CollectionName)
	v.SetDefault("qdrant.api_key", "")

	v.SetDefault("redis.addr", RedisAddr)
	v.SetDefault("redis.password", "")

	v.SetDefault("llm.provider", LLMProviderGemini)
	v.SetDefault("llm.model", GeminiModelName)
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", OpenAIBaseURL)
	v.SetDefault("llm.llm_classifier", false)
	v.SetDefault("llm.system_prompt", ModelContext)

	v.SetDefault("embedding.provider", LLMProviderGemini)
	v.SetDefault("embedding.model", GoogleEmbeddingModel)
	v.SetDefault("embedding.api_key", "")
	v.SetDefault("embedding.base_url", OpenAIBaseURL)
	v.SetDefault("embedding.dimension", int(EmbeddingOutputDimensionality))
	v.SetDefault("embedding.cache", true)

	v.SetDefault("crawler.base_url", DefaultBaseURL)
	v.SetDefault("crawler.news_urls", []string{DefaultBaseURL + DefaultNewsPath})
	v.SetDefault("crawler.max_concurrent", DefaultMaxConcurrentFetches)
	v.SetDefault("crawler.fetch_timeout", DefaultFetchTimeout)
	v.SetDefault("crawler.retries", DefaultFetchRetries)
	v.SetDefault("crawler.exclude_patterns", []string{DefaultExcludePattern})
	v.SetDefault("crawler.render", true)
	v.SetDefault("crawler.user_agent", CrawlUserAgent)

	v.SetDefault("chunker.size", DefaultChunkSize)
	v.SetDefault("chunker.overlap", DefaultChunkOverlap)
	v.SetDefault("chunker.unit", "characters")
}

// Load reads an optional config file and CAMPUSRAG_* environment variables.
// An empty path looks for config.yaml in ./config and the working directory;
// a missing file is not an error, every key has a default.
func Load(path string) (*Settings, error) {
	v := viper.New()
	setDefaults(v)

	if path == "" {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix("CAMPUSRAG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return &settings, nil
}

func (s *Settings) Validate() error {
	switch s.LLM.Provider {
	case LLMProviderGemini, LLMProviderOpenAI:
	default:
		return fmt.Errorf("llm.provider must be %q or %q, got %q", LLMProviderGemini, LLMProviderOpenAI, s.LLM.Provider)
	}
	switch s.Embedding.Provider {
	case LLMProviderGemini, LLMProviderOpenAI:
	default:
		return fmt.Errorf("embedding.provider must be %q or %q, got %q", LLMProviderGemini, LLMProviderOpenAI, s.Embedding.Provider)
	}
	if s.Embedding.Dimension <= 0 {
		return errors.New("embedding.dimension must be positive")
	}
	if s.Chunker.Size <= 0 || s.Chunker.Overlap < 0 || s.Chunker.Overlap >= s.Chunker.Size {
		return fmt.Errorf("chunker overlap %d must be in [0, size %d)", s.Chunker.Overlap, s.Chunker.Size)
	}
	if s.Chunker.Unit != "characters" && s.Chunker.Unit != "tokens" {
		return fmt.Errorf("chunker.unit must be characters or tokens, got %q", s.Chunker.Unit)
	}
	if s.Crawler.MaxConcurrent <= 0 {
		return errors.New("crawler.max_concurrent must be positive")
	}
	if s.Qdrant.Collection == "" {
		return errors.New("qdrant.collection is required")
	}
	return nil
}

// Package config loads environment variables and provides a typed Config used across the bot.
// It applies sensible defaults so the binary can run locally with minimal setup.
// For feature-gated credentials (AI provider, YouTube, Twitch) use the Validate*Ready helpers.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ProviderGemini and ProviderOllama are the recognized AI_PROVIDER values.
const (
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
)

type Config struct {
	// AI backend
	AIEnabled     bool
	AIProvider    string   // "gemini" | "ollama"
	GeminiAPIKeys []string // comma-separated in GEMINI_API_KEYS
	GeminiModel   string
	OllamaHost    string
	OllamaModel   string
	BotPersona    string // system persona instruction sent to the model

	// Knowledge base
	KnowledgePath string

	// Moderation
	EmojiLimit    int
	WordLimit     int
	TimeoutNormal time.Duration
	TimeoutMod    time.Duration

	// Cooldowns
	SayDelay time.Duration // 0 disables command cooldowns

	// Permissions: "all" | "sponsor" | "mod" | "off" per command group
	PermSay     string
	PermWelcome string
	PermJokes   string
	PermDiscord string
	PermChannel string

	// YouTube OAuth + live chat
	YTClientID     string
	YTClientSecret string
	YTRedirectURI  string
	YTScopes       string
	YTVideoID      string // live video URL or 11-char id
	BotChannelID   string // the bot's own channel, skipped when polling

	// Twitch chat (optional second frontend)
	TwitchChannel      string
	TwitchBotUsername  string
	TwitchOAuthToken   string
	TwitchClientID     string
	TwitchClientSecret string
	TwitchRedirectURI  string
	TwitchScopes       string

	// HTTP
	HTTPAddr string

	// Links / channel info surfaced by chat commands
	DiscordLink    string
	ChannelInfo    string
	ChannelOwnerID string
}

// defaultPersona is the bot personality when BOT_PERSONA is unset. Kept in
// Vietnamese because the audience and knowledge base are Vietnamese.
const defaultPersona = `Bạn là bot cho livestream của youtuber ACN.
Quy tắc QUAN TRỌNG:
- Trả lời CỰC NGẮN 1-2 câu bằng tiếng Việt (max 150 ký tự)
- Dùng emoji phù hợp
- Phong cách GenZ, lầy lội, hài hước

TUYỆT ĐỐI:
- Nếu có CONTEXT bên dưới, PHẢI trả lời dựa 100% vào CONTEXT đó
- KHÔNG được tự sáng tác thông tin nếu đã có CONTEXT`

// Load reads environment variables and applies defaults. It doesn't fail if
// provider or platform creds are missing; missing optional variables disable
// features (e.g., Twitch frontend, tracing).
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.AIEnabled = envBool("AI_ENABLED", true)
	cfg.AIProvider = strings.ToLower(os.Getenv("AI_PROVIDER"))
	if cfg.AIProvider == "" {
		cfg.AIProvider = ProviderGemini
	}
	if cfg.AIProvider != ProviderGemini && cfg.AIProvider != ProviderOllama {
		return nil, fmt.Errorf("invalid AI_PROVIDER %q (want %q or %q)", cfg.AIProvider, ProviderGemini, ProviderOllama)
	}

	for _, k := range strings.Split(os.Getenv("GEMINI_API_KEYS"), ",") {
		k = strings.TrimSpace(k)
		if k != "" {
			cfg.GeminiAPIKeys = append(cfg.GeminiAPIKeys, k)
		}
	}
	cfg.GeminiModel = os.Getenv("GEMINI_MODEL")
	if cfg.GeminiModel == "" {
		cfg.GeminiModel = "gemini-2.5-flash"
	}
	cfg.OllamaHost = os.Getenv("OLLAMA_HOST")
	if cfg.OllamaHost == "" {
		cfg.OllamaHost = "http://localhost:11434"
	}
	cfg.OllamaModel = os.Getenv("OLLAMA_MODEL")
	if cfg.OllamaModel == "" {
		cfg.OllamaModel = "llama3"
	}
	cfg.BotPersona = os.Getenv("BOT_PERSONA")
	if cfg.BotPersona == "" {
		cfg.BotPersona = defaultPersona
	}

	cfg.KnowledgePath = os.Getenv("KNOWLEDGE_PATH")
	if cfg.KnowledgePath == "" {
		cfg.KnowledgePath = "config/knowledge.json"
	}

	cfg.EmojiLimit = envInt("MOD_EMOJI_LIMIT", 5)
	cfg.WordLimit = envInt("MOD_WORD_LIMIT", 3)
	cfg.TimeoutNormal = time.Duration(envInt("MOD_TIMEOUT_NORMAL", 300)) * time.Second
	cfg.TimeoutMod = time.Duration(envInt("MOD_TIMEOUT_MOD", 60)) * time.Second

	cfg.SayDelay = time.Duration(envInt("COOLDOWN_SAY_DELAY", 10)) * time.Second

	cfg.PermSay = envPerm("PERM_SAY")
	cfg.PermWelcome = envPerm("PERM_WELCOME")
	cfg.PermJokes = envPerm("PERM_JOKES")
	cfg.PermDiscord = envPerm("PERM_DISCORD")
	cfg.PermChannel = envPerm("PERM_CHANNEL")

	cfg.YTClientID = os.Getenv("YT_CLIENT_ID")
	cfg.YTClientSecret = os.Getenv("YT_CLIENT_SECRET")
	cfg.YTRedirectURI = os.Getenv("YT_REDIRECT_URI")
	cfg.YTScopes = os.Getenv("YT_SCOPES")
	if cfg.YTScopes == "" {
		cfg.YTScopes = "https://www.googleapis.com/auth/youtube.force-ssl"
	}
	cfg.YTVideoID = os.Getenv("YT_VIDEO_ID")
	cfg.BotChannelID = os.Getenv("BOT_CHANNEL_ID")

	cfg.TwitchChannel = os.Getenv("TWITCH_CHANNEL")
	cfg.TwitchBotUsername = os.Getenv("TWITCH_BOT_USERNAME")
	cfg.TwitchOAuthToken = os.Getenv("TWITCH_OAUTH_TOKEN")
	cfg.TwitchClientID = os.Getenv("TWITCH_CLIENT_ID")
	cfg.TwitchClientSecret = os.Getenv("TWITCH_CLIENT_SECRET")
	cfg.TwitchRedirectURI = os.Getenv("TWITCH_REDIRECT_URI")
	cfg.TwitchScopes = os.Getenv("TWITCH_SCOPES")
	if cfg.TwitchScopes == "" {
		cfg.TwitchScopes = "chat:read chat:edit moderator:manage:banned_users"
	}

	cfg.HTTPAddr = os.Getenv("HTTP_ADDR")
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}

	cfg.DiscordLink = os.Getenv("DISCORD_LINK")
	cfg.ChannelInfo = os.Getenv("CHANNEL_INFO")
	if cfg.ChannelInfo == "" {
		cfg.ChannelInfo = "Kênh của ACN - Content sáng tạo và giải trí!"
	}
	cfg.ChannelOwnerID = os.Getenv("CHANNEL_OWNER_ID")

	return cfg, nil
}

// ValidateAIReady checks required fields for the configured AI provider.
func (c *Config) ValidateAIReady() error {
	if !c.AIEnabled {
		return fmt.Errorf("ai disabled (AI_ENABLED=0)")
	}
	switch c.AIProvider {
	case ProviderGemini:
		if len(c.GeminiAPIKeys) == 0 {
			return fmt.Errorf("missing gemini env: require GEMINI_API_KEYS")
		}
	case ProviderOllama:
		if c.OllamaHost == "" || c.OllamaModel == "" {
			return fmt.Errorf("missing ollama env: require OLLAMA_HOST, OLLAMA_MODEL")
		}
	}
	return nil
}

// ValidateYouTubeReady checks required fields when the YouTube live chat runner is enabled.
func (c *Config) ValidateYouTubeReady() error {
	if c.YTClientID == "" || c.YTClientSecret == "" {
		return fmt.Errorf("missing youtube env: require YT_CLIENT_ID, YT_CLIENT_SECRET")
	}
	if c.YTVideoID == "" {
		return fmt.Errorf("missing youtube env: require YT_VIDEO_ID (live URL or video id)")
	}
	return nil
}

// ValidateTwitchReady checks required fields when the Twitch chat runner is enabled.
func (c *Config) ValidateTwitchReady() error {
	if c.TwitchChannel == "" || c.TwitchBotUsername == "" || c.TwitchOAuthToken == "" {
		return fmt.Errorf("missing twitch env: require TWITCH_CHANNEL, TWITCH_BOT_USERNAME, TWITCH_OAUTH_TOKEN")
	}
	return nil
}

func envInt(name string, def int) int {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envPerm(name string) string {
	switch v := strings.ToLower(os.Getenv(name)); v {
	case "all", "sponsor", "mod", "off":
		return v
	default:
		return "all"
	}
}

func envBool(name string, def bool) bool {
	switch strings.ToLower(os.Getenv(name)) {
	case "":
		return def
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

package internal

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
)

// MaxHistoryLimit caps the history pushed on login.
const MaxHistoryLimit = 100

type Config struct {
	Host                    string        `env:"HOST,default=0.0.0.0"`
	Port                    int           `env:"PORT,default=3001"`
	HealthPort              int           `env:"HEALTH_PORT,default=3002"`
	BadgerFilepath          string        `env:"BADGER_FILEPATH,required=true"`
	BlugeFilepath           string        `env:"BLUGE_FILEPATH,default=./data/bluge"`
	LogLevel                string        `env:"LOG_LEVEL,default=INFO"`
	ConnectionBufferSize    int           `env:"CONNECTION_BUFFER_SIZE,default=64"`
	WriteTimeout            time.Duration `env:"WRITE_TIMEOUT,default=10s"`
	LoginTimeout            time.Duration `env:"LOGIN_TIMEOUT,default=0s"`
	HistoryLimit            int           `env:"HISTORY_LIMIT,default=100"`
	MaxContentLength        int           `env:"MAX_CONTENT_LENGTH,default=2000"`
	AuthTokenDuration       time.Duration `env:"AUTH_TOKEN_DURATION,default=24h"`
	AuthTokenSecret         string        `env:"AUTH_TOKEN_SECRET,required=true"`
	AllowAnonymousTyping    bool          `env:"ALLOW_ANONYMOUS_TYPING,default=true"`
	ClearTypingOnDisconnect bool          `env:"CLEAR_TYPING_ON_DISCONNECT,default=true"`
	RestartInterval         time.Duration `env:"RESTART_INTERVAL,default=200ms"`
	CorsAllowedOrigins      string        `env:"CORS_ALLOWED_ORIGINS,default=*"`
	StatsInterval           time.Duration `env:"STATS_INTERVAL,default=1m"`
	// Comma separated, empty disables moderation
	BlockedWords  string `env:"MODERATION_BLOCKED_WORDS"`
	DictionaryDir string `env:"MODERATION_DICTIONARY_DIR"`
	MaskCharacter string `env:"MODERATION_MASK_CHARACTER,default=*"`
}

// LoadConfig reads an optional .env file then the environment.
// Variables already set in the environment win over the file.
func LoadConfig(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("loading %s: %w", file, err)
		}
	}

	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return Config{}, err
	}
	return config, config.Validate()
}

func (c Config) Validate() error {
	var problems []string
	if c.Port == c.HealthPort {
		problems = append(problems, "PORT and HEALTH_PORT must differ")
	}
	if c.HistoryLimit < 1 || c.HistoryLimit > MaxHistoryLimit {
		problems = append(problems, fmt.Sprintf("HISTORY_LIMIT must be between 1 and %d", MaxHistoryLimit))
	}
	if c.ConnectionBufferSize < 1 {
		problems = append(problems, "CONNECTION_BUFFER_SIZE must be positive")
	}
	if c.MaxContentLength < 1 {
		problems = append(problems, "MAX_CONTENT_LENGTH must be positive")
	}
	if len(c.AuthTokenSecret) < 16 {
		problems = append(problems, "AUTH_TOKEN_SECRET must be at least 16 characters")
	}
	if c.AuthTokenDuration <= 0 {
		problems = append(problems, "AUTH_TOKEN_DURATION must be positive")
	}
	if utf8.RuneCountInString(c.MaskCharacter) != 1 {
		problems = append(problems, "MODERATION_MASK_CHARACTER must be a single character")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, ", "))
	}
	return nil
}

func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c Config) HealthAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HealthPort)
}

func (c Config) BlockedWordList() []string {
	var words []string
	for _, word := range strings.Split(c.BlockedWords, ",") {
		if word = strings.TrimSpace(word); word != "" {
			words = append(words, word)
		}
	}
	return words
}

func (c Config) Mask() rune {
	r, _ := utf8.DecodeRuneInString(c.MaskCharacter)
	return r
}

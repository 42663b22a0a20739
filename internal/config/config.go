// Package config holds the settings shared by the parallax binaries.
package config

import (
	"time"

	"github.com/polluterofminds/parallax-server/internal/envstruct"
	"github.com/polluterofminds/parallax-server/internal/errors"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"

	BackendSQLite   = "sqlite"
	BackendMongo    = "mongo"
	BackendSupabase = "supabase"
)

var ErrInvalidConfig = errors.NewSentinel("invalid configuration")

type Config struct {
	Addr      string `env:"PARALLAX_ADDR" envDefault:"localhost:4000"`
	SQLiteURL string `env:"PARALLAX_SQLITE_URL" envDefault:"./parallax.sqlite"`

	TextProvider    string `env:"PARALLAX_TEXT_PROVIDER" envDefault:"openai"`
	OpenAIAPIKey    string `env:"OPENAI_API_KEY" envDefault:""`
	OpenAIBaseURL   string `env:"PARALLAX_OPENAI_BASE_URL" envDefault:""`
	OpenAIModel     string `env:"PARALLAX_OPENAI_MODEL" envDefault:"gpt-4o"`
	OpenAIChatModel string `env:"PARALLAX_OPENAI_CHAT_MODEL" envDefault:"gpt-4o-mini"`
	GeminiAPIKey    string `env:"GEMINI_API_KEY" envDefault:""`
	GeminiModel     string `env:"PARALLAX_GEMINI_MODEL" envDefault:"gemini-2.5-flash"`

	ArtifactStore string `env:"PARALLAX_ARTIFACT_STORE" envDefault:"sqlite"`
	MongoURI      string `env:"MONGODB_URI" envDefault:""`
	MongoDatabase string `env:"PARALLAX_MONGO_DATABASE" envDefault:"parallax"`

	EpisodeStore string `env:"PARALLAX_EPISODE_STORE" envDefault:"sqlite"`
	SupabaseURL  string `env:"SUPABASE_URL" envDefault:""`
	SupabaseKey  string `env:"SUPABASE_SERVICE_ROLE_KEY" envDefault:""`

	CharacterCount        int           `env:"PARALLAX_CHARACTER_COUNT" envDefault:"10"`
	CaseDuration          time.Duration `env:"PARALLAX_CASE_DURATION" envDefault:"168h"`
	SchedulerInterval     time.Duration `env:"PARALLAX_SCHEDULER_INTERVAL" envDefault:"1h"`
	RosterRequestInterval time.Duration `env:"PARALLAX_ROSTER_REQUEST_INTERVAL" envDefault:"1s"`
	ExtractionMaxTries    uint          `env:"PARALLAX_EXTRACTION_MAX_TRIES" envDefault:"20"`
	ExtractionMaxElapsed  time.Duration `env:"PARALLAX_EXTRACTION_MAX_ELAPSED" envDefault:"5m"`
	FragmentMaxTries      uint          `env:"PARALLAX_FRAGMENT_MAX_TRIES" envDefault:"5"`
	CaseLockTTL           time.Duration `env:"PARALLAX_CASE_LOCK_TTL" envDefault:"30m"`

	NotifyURL       string `env:"PARALLAX_NOTIFY_URL" envDefault:""`
	NotifyTargetURL string `env:"PARALLAX_NOTIFY_TARGET_URL" envDefault:""`

	OTelEndpoint string `env:"PARALLAX_OTEL_ENDPOINT" envDefault:""`
	PprofAddr    string `env:"PARALLAX_PPROF_ADDR" envDefault:""`

	// AdminToken guards manual case creation over HTTP. Empty disables the endpoint.
	AdminToken string `env:"PARALLAX_ADMIN_TOKEN" envDefault:""`
}

// Load reads the configuration from environ, or from the process environment when environ is nil.
func Load(environ map[string]string) (Config, error) {
	var cfg Config
	if err := envstruct.Populate(&cfg, environ); err != nil {
		return Config{}, errors.Wrap(err, "populate config")
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.TextProvider {
	case ProviderOpenAI, ProviderGemini:
	default:
		return errors.Wrap(ErrInvalidConfig, "unknown text provider")
	}
	switch c.ArtifactStore {
	case BackendSQLite:
	case BackendMongo:
		if c.MongoURI == "" {
			return errors.Wrap(ErrInvalidConfig, "MONGODB_URI is required for the mongo artifact store")
		}
	default:
		return errors.Wrap(ErrInvalidConfig, "unknown artifact store")
	}
	switch c.EpisodeStore {
	case BackendSQLite:
	case BackendSupabase:
		if c.SupabaseURL == "" || c.SupabaseKey == "" {
			return errors.Wrap(ErrInvalidConfig, "SUPABASE_URL and SUPABASE_SERVICE_ROLE_KEY are required")
		}
	default:
		return errors.Wrap(ErrInvalidConfig, "unknown episode store")
	}
	if c.CharacterCount < 3 { //nolint:mnd // two culprit holders plus at least one other
		return errors.Wrap(ErrInvalidConfig, "at least three characters are required")
	}
	return nil
}

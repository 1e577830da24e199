package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	DataDir   string          `mapstructure:"data_dir"`
	Log       LogConfig       `mapstructure:"log"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	AQS       AQSConfig       `mapstructure:"aqs"`
	Pageviews PageviewsConfig `mapstructure:"pageviews"`
	PageInfo  PageInfoConfig  `mapstructure:"pageinfo"`
	ORES      ORESConfig      `mapstructure:"ores"`
	Wildfire  WildfireConfig  `mapstructure:"wildfire"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Dir    string `mapstructure:"dir"` // empty logs to stdout
}

type HTTPConfig struct {
	Timeout    time.Duration `mapstructure:"timeout"`
	UserAgent  string        `mapstructure:"user_agent"`
	MaxRetries int           `mapstructure:"max_retries"`
	CacheTTL   time.Duration `mapstructure:"cache_ttl"`
}

type AQSConfig struct {
	BaseURL           string  `mapstructure:"base_url"`
	Email             string  `mapstructure:"email"`
	Key               string  `mapstructure:"key"`
	FIPS              string  `mapstructure:"fips"` // 5-digit state+county, overrides state/county
	State             string  `mapstructure:"state"`
	County            string  `mapstructure:"county"`
	GaseousParams     string  `mapstructure:"gaseous_params"`
	ParticulateParams string  `mapstructure:"particulate_params"`
	StartYear         int     `mapstructure:"start_year"`
	EndYear           int     `mapstructure:"end_year"` // exclusive
	SeasonStart       string  `mapstructure:"season_start"`
	SeasonEnd         string  `mapstructure:"season_end"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Concurrency       int     `mapstructure:"concurrency"`
	Output            string  `mapstructure:"output"`
}

type PageviewsConfig struct {
	Endpoint          string  `mapstructure:"endpoint"`
	Project           string  `mapstructure:"project"`
	Agent             string  `mapstructure:"agent"`
	Granularity       string  `mapstructure:"granularity"`
	Start             string  `mapstructure:"start"`
	End               string  `mapstructure:"end"`
	TitlesFile        string  `mapstructure:"titles_file"`
	TitleColumn       string  `mapstructure:"title_column"`
	OutputPrefix      string  `mapstructure:"output_prefix"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Concurrency       int     `mapstructure:"concurrency"`
}

type PageInfoConfig struct {
	Endpoint          string  `mapstructure:"endpoint"`
	TitlesFile        string  `mapstructure:"titles_file"`
	TitleColumn       string  `mapstructure:"title_column"`
	Output            string  `mapstructure:"output"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
}

type ORESConfig struct {
	Endpoint          string  `mapstructure:"endpoint"` // %s is replaced by the model name
	Model             string  `mapstructure:"model"`
	Language          string  `mapstructure:"language"`
	AccessToken       string  `mapstructure:"access_token"`
	Email             string  `mapstructure:"email"`
	RevisionsFile     string  `mapstructure:"revisions_file"`
	RevisionColumn    string  `mapstructure:"revision_column"`
	Output            string  `mapstructure:"output"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
}

type WildfireConfig struct {
	Input            string   `mapstructure:"input"`
	Output           string   `mapstructure:"output"`
	GeoJSONOutput    string   `mapstructure:"geojson_output"` // optional
	ReferenceName    string   `mapstructure:"reference_name"`
	ReferenceLat     float64  `mapstructure:"reference_lat"`
	ReferenceLon     float64  `mapstructure:"reference_lon"`
	MinYear          int      `mapstructure:"min_year"`
	MaxYear          int      `mapstructure:"max_year"` // exclusive
	MaxDistanceMiles float64  `mapstructure:"max_distance_miles"`
	YearField        string   `mapstructure:"year_field"`
	NameFields       []string `mapstructure:"name_fields"`
	DistanceField    string   `mapstructure:"distance_field"`
	Workers          int      `mapstructure:"workers"`
	ProgressEvery    int      `mapstructure:"progress_every"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"` // empty disables the response cache
}

type NATSConfig struct {
	URL string `mapstructure:"url"` // empty disables artifact events
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	OTLPAddr    string `mapstructure:"otlp_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

type MetricsConfig struct {
	PushgatewayURL string `mapstructure:"pushgateway_url"` // empty disables the push
}

// Load reads configuration from an optional .env file, an optional config
// file and environment variables.
func Load(service string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v, service)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: DATA512_AQS_EMAIL → aqs.email
	v.SetEnvPrefix("DATA512")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Secrets are also accepted under their legacy unprefixed names.
	_ = v.BindEnv("aqs.email", "DATA512_AQS_EMAIL", "AQS_EMAIL")
	_ = v.BindEnv("aqs.key", "DATA512_AQS_KEY", "AQS_KEY")
	_ = v.BindEnv("ores.access_token", "DATA512_ORES_ACCESS_TOKEN", "WIKIMEDIA_ACCESS_TOKEN")
	_ = v.BindEnv("ores.email", "DATA512_ORES_EMAIL", "WIKIMEDIA_EMAIL_ADDRESS")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper, service string) {
	v.SetDefault("data_dir", "data")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.dir", "")

	v.SetDefault("http.timeout", 60*time.Second)
	v.SetDefault("http.user_agent", "data512 research-data acquisition")
	v.SetDefault("http.max_retries", 2)
	v.SetDefault("http.cache_ttl", 24*time.Hour)

	v.SetDefault("aqs.base_url", "https://aqs.epa.gov/data/api")
	v.SetDefault("aqs.state", "26")   // Michigan
	v.SetDefault("aqs.county", "163") // Wayne County
	v.SetDefault("aqs.gaseous_params", "42101,42401,42602,44201")
	v.SetDefault("aqs.particulate_params", "81102,88101,88502")
	v.SetDefault("aqs.start_year", 1961)
	v.SetDefault("aqs.end_year", 2022)
	v.SetDefault("aqs.season_start", "05-01")
	v.SetDefault("aqs.season_end", "10-31")
	v.SetDefault("aqs.requests_per_second", 100.0)
	v.SetDefault("aqs.concurrency", 1)
	v.SetDefault("aqs.output", "data/AQI_Dearborn_Michigan.csv")

	v.SetDefault("pageviews.endpoint", "https://wikimedia.org/api/rest_v1/metrics/pageviews/")
	v.SetDefault("pageviews.project", "en.wikipedia.org")
	v.SetDefault("pageviews.agent", "user")
	v.SetDefault("pageviews.granularity", "monthly")
	v.SetDefault("pageviews.start", "2015070100")
	v.SetDefault("pageviews.end", "2024093000")
	v.SetDefault("pageviews.titles_file", "data/rare-disease_cleaned.AUG.2024.csv")
	v.SetDefault("pageviews.title_column", "disease")
	v.SetDefault("pageviews.output_prefix", "rare-disease")
	v.SetDefault("pageviews.requests_per_second", 100.0)
	v.SetDefault("pageviews.concurrency", 8)

	v.SetDefault("pageinfo.endpoint", "https://en.wikipedia.org/w/api.php")
	v.SetDefault("pageinfo.titles_file", "data/politicians_by_country_AUG.2024.csv")
	v.SetDefault("pageinfo.title_column", "name")
	v.SetDefault("pageinfo.output", "data/article_revision_ids.csv")
	v.SetDefault("pageinfo.requests_per_second", 100.0)

	v.SetDefault("ores.endpoint", "https://api.wikimedia.org/service/lw/inference/v1/models/%s:predict")
	v.SetDefault("ores.model", "enwiki-articlequality")
	v.SetDefault("ores.language", "en")
	v.SetDefault("ores.revisions_file", "data/article_revision_ids.csv")
	v.SetDefault("ores.revision_column", "revision_id")
	v.SetDefault("ores.output", "data/article_quality.csv")
	v.SetDefault("ores.requests_per_second", 5000.0/3600.0) // token grants 5000 requests per hour

	v.SetDefault("wildfire.input", "data/USGS_Wildland_Fire_Combined_Dataset.json")
	v.SetDefault("wildfire.output", "data/USGS_Wildland_Fire_Combined_Dataset_filtered.json")
	v.SetDefault("wildfire.geojson_output", "")
	v.SetDefault("wildfire.reference_name", "Dearborn, MI")
	v.SetDefault("wildfire.reference_lat", 42.322262)
	v.SetDefault("wildfire.reference_lon", -83.176315)
	v.SetDefault("wildfire.min_year", 1961)
	v.SetDefault("wildfire.max_year", 2022)
	v.SetDefault("wildfire.max_distance_miles", 1800.0)
	v.SetDefault("wildfire.year_field", "fire_year")
	v.SetDefault("wildfire.name_fields", []string{"name", "Listed_Fire_Names"})
	v.SetDefault("wildfire.distance_field", "distance_to_reference_miles")
	v.SetDefault("wildfire.workers", 1)
	v.SetDefault("wildfire.progress_every", 10000)

	v.SetDefault("valkey.addr", "")
	v.SetDefault("nats.url", "")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.otlp_addr", "localhost:4317")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("metrics.pushgateway_url", "")
}

// Validate checks that configuration values are present and sane.
func (c *Config) Validate() error {
	var errs []string

	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		errs = append(errs, fmt.Sprintf("log.format must be json or text, got %q", c.Log.Format))
	}
	if c.HTTP.Timeout <= 0 {
		errs = append(errs, "http.timeout must be positive")
	}
	if c.HTTP.MaxRetries < 0 {
		errs = append(errs, "http.max_retries must not be negative")
	}
	if c.AQS.StartYear >= c.AQS.EndYear {
		errs = append(errs, fmt.Sprintf("aqs.start_year (%d) must be before aqs.end_year (%d)", c.AQS.StartYear, c.AQS.EndYear))
	}
	if c.AQS.FIPS != "" && len(c.AQS.FIPS) != 5 {
		errs = append(errs, fmt.Sprintf("aqs.fips must have 5 digits, got %q", c.AQS.FIPS))
	}
	for name, rps := range map[string]float64{
		"aqs.requests_per_second":       c.AQS.RequestsPerSecond,
		"pageviews.requests_per_second": c.Pageviews.RequestsPerSecond,
		"pageinfo.requests_per_second":  c.PageInfo.RequestsPerSecond,
		"ores.requests_per_second":      c.ORES.RequestsPerSecond,
	} {
		if rps <= 0 {
			errs = append(errs, name+" must be positive")
		}
	}
	if c.Wildfire.ReferenceLat < -90 || c.Wildfire.ReferenceLat > 90 {
		errs = append(errs, fmt.Sprintf("wildfire.reference_lat must be -90..90, got %v", c.Wildfire.ReferenceLat))
	}
	if c.Wildfire.ReferenceLon < -180 || c.Wildfire.ReferenceLon > 180 {
		errs = append(errs, fmt.Sprintf("wildfire.reference_lon must be -180..180, got %v", c.Wildfire.ReferenceLon))
	}
	if c.Wildfire.MinYear >= c.Wildfire.MaxYear {
		errs = append(errs, fmt.Sprintf("wildfire.min_year (%d) must be before wildfire.max_year (%d)", c.Wildfire.MinYear, c.Wildfire.MaxYear))
	}
	if c.Wildfire.MaxDistanceMiles < 0 {
		errs = append(errs, "wildfire.max_distance_miles must not be negative")
	}
	if c.Wildfire.YearField == "" {
		errs = append(errs, "wildfire.year_field is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// RequireAQSCredentials checks the credentials the AQS API needs.
func (c *Config) RequireAQSCredentials() error {
	if c.AQS.Email == "" || c.AQS.Key == "" {
		return errors.New("aqs.email and aqs.key are required (DATA512_AQS_EMAIL / DATA512_AQS_KEY)")
	}
	return nil
}

// RequireORESCredentials checks the credentials LiftWing needs.
func (c *Config) RequireORESCredentials() error {
	if c.ORES.AccessToken == "" {
		return errors.New("ores.access_token is required (WIKIMEDIA_ACCESS_TOKEN)")
	}
	if c.ORES.Email == "" {
		return errors.New("ores.email is required (WIKIMEDIA_EMAIL_ADDRESS)")
	}
	return nil
}

// PrimaryUserAgent returns the User-Agent, prefixed with a contact email when one is known.
func (c *Config) PrimaryUserAgent(email string) string {
	if email == "" {
		return c.HTTP.UserAgent
	}
	return fmt.Sprintf("<%s>, %s", email, c.HTTP.UserAgent)
}

package config

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tendant/photodrop/pkg/eventtoken"
	"github.com/tendant/photodrop/pkg/photodrop"
	fsstorage "github.com/tendant/photodrop/pkg/photodrop/storage/fs"
	memorystorage "github.com/tendant/photodrop/pkg/photodrop/storage/memory"
	s3storage "github.com/tendant/photodrop/pkg/photodrop/storage/s3"
)

// InsecureSecret is the placeholder secret shipped in sample env files
const InsecureSecret = "change_me"

const (
	EnvDevelopment = "development"
	EnvTesting     = "testing"
	EnvProduction  = "production"
)

var (
	// ErrMissingSecret indicates EVENT_SECRET was not provided
	ErrMissingSecret = errors.New("event secret is required")

	// ErrInsecureSecret indicates the placeholder secret was used in production
	ErrInsecureSecret = errors.New("event secret must be changed in production")

	// ErrDevTokenInProduction indicates the DEV token was enabled in production
	ErrDevTokenInProduction = errors.New("dev token cannot be enabled in production")

	// ErrUnknownSSEAlgorithm indicates S3_SSE_ALGORITHM is neither AES256 nor aws:kms
	ErrUnknownSSEAlgorithm = errors.New("unknown S3 server-side encryption algorithm")
)

const (
	SSEAlgorithmAES256 = "AES256"
	SSEAlgorithmKMS    = "aws:kms"
)

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top of library defaults.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Port:            "3000",
		Environment:     EnvDevelopment,
		TokenDefaultTTL: eventtoken.DefaultTTL,
		StorageURL:      "memory://",
		Upload: UploadConfig{
			MaxBytes:           50 << 20,
			MaxFiles:           20,
			Concurrency:        photodrop.DefaultConcurrency,
			RequireImageType:   true,
			RateLimitPerMinute: 60,
		},
		CORSAllowedOrigins: []string{"*"},
		LogLevel:           "info",
		LogFormat:          "text",
	}
}

// ServerConfig represents the configuration of the photodrop server
type ServerConfig struct {
	Port        string `env:"PORT" env-default:"3000"`
	Environment string `env:"ENVIRONMENT" env-default:"development"` // development, testing, production

	// Tokens
	EventSecret     string        `env:"EVENT_SECRET"`
	TokenDefaultTTL time.Duration `env:"TOKEN_DEFAULT_TTL" env-default:"24h"`
	EnableDevToken  bool          `env:"ENABLE_DEV_TOKEN" env-default:"false"`

	// Links and admin
	PublicBaseURL     string `env:"PUBLIC_BASE_URL"`
	AdminAPIKeySHA256 string `env:"ADMIN_API_KEY_SHA256"`

	// Storage: memory://, file:///path/to/data or s3://bucket?region=us-east-1
	StorageURL string `env:"STORAGE_URL" env-default:"memory://"`
	S3         S3Config

	Upload UploadConfig

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" env-default:"*" env-separator:","`

	// Forwarding headers are only believed from these peers
	TrustedProxyCIDRs []string `env:"TRUSTED_PROXY_CIDRS" env-separator:","`

	LogLevel  string `env:"LOG_LEVEL" env-default:"info"`
	LogFormat string `env:"LOG_FORMAT" env-default:"text"`
}

// S3Config holds credentials and options that do not fit in STORAGE_URL
type S3Config struct {
	Region          string `env:"AWS_REGION"`
	AccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	CreateBucket    bool   `env:"S3_CREATE_BUCKET" env-default:"false"`
	SSEAlgorithm    string `env:"S3_SSE_ALGORITHM"` // AES256 or aws:kms, empty disables SSE
	SSEKMSKeyID     string `env:"S3_SSE_KMS_KEY_ID"`
}

// UploadConfig bounds what a single upload request may do
type UploadConfig struct {
	MaxBytes           int64 `env:"MAX_UPLOAD_BYTES" env-default:"52428800"`
	MaxFiles           int   `env:"MAX_FILES_PER_REQUEST" env-default:"20"`
	Concurrency        int   `env:"UPLOAD_CONCURRENCY" env-default:"4"`
	RequireImageType   bool  `env:"REQUIRE_IMAGE_CONTENT_TYPE" env-default:"true"`
	RateLimitPerMinute int   `env:"RATE_LIMIT_PER_MINUTE" env-default:"60"`
}

// StorageConfig is the parsed form of StorageURL
type StorageConfig struct {
	Type    string // "memory", "fs", "s3"
	BaseDir string
	S3      s3storage.Config
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}

	switch c.Environment {
	case EnvDevelopment, EnvTesting, EnvProduction:
	default:
		return fmt.Errorf("environment must be one of development, testing, production, got: %s", c.Environment)
	}

	if c.EventSecret == "" {
		return ErrMissingSecret
	}
	if c.IsProduction() {
		if c.EventSecret == InsecureSecret {
			return ErrInsecureSecret
		}
		if c.EnableDevToken {
			return ErrDevTokenInProduction
		}
	}

	if c.TokenDefaultTTL < time.Second {
		return fmt.Errorf("token default ttl must be at least 1s, got: %s", c.TokenDefaultTTL)
	}

	if c.AdminAPIKeySHA256 != "" {
		if b, err := hex.DecodeString(c.AdminAPIKeySHA256); err != nil || len(b) != 32 {
			return errors.New("admin api key digest must be a hex encoded SHA-256")
		}
	}

	if c.PublicBaseURL != "" {
		u, err := url.Parse(c.PublicBaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("public base url must be absolute, got: %s", c.PublicBaseURL)
		}
	}

	if c.Upload.MaxBytes <= 0 {
		return errors.New("max upload bytes must be positive")
	}
	if c.Upload.MaxFiles <= 0 {
		return errors.New("max files per request must be positive")
	}
	if c.Upload.Concurrency <= 0 {
		return errors.New("upload concurrency must be positive")
	}
	if c.Upload.RateLimitPerMinute < 0 {
		return errors.New("rate limit cannot be negative")
	}

	for _, cidr := range c.TrustedProxyCIDRs {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			return fmt.Errorf("invalid trusted proxy CIDR %q: %w", cidr, err)
		}
	}

	switch c.S3.SSEAlgorithm {
	case "", SSEAlgorithmAES256, SSEAlgorithmKMS:
	default:
		return fmt.Errorf("%w: %q (use %s or %s)", ErrUnknownSSEAlgorithm, c.S3.SSEAlgorithm, SSEAlgorithmAES256, SSEAlgorithmKMS)
	}

	if _, err := c.Storage(); err != nil {
		return err
	}

	return nil
}

// IsProduction reports whether the server runs in production
func (c *ServerConfig) IsProduction() bool {
	return c.Environment == EnvProduction
}

// AdminEnabled reports whether the admin routes should be mounted.
// Without a key they are only available in development.
func (c *ServerConfig) AdminEnabled() bool {
	return c.AdminAPIKeySHA256 != "" || c.Environment == EnvDevelopment
}

// Storage parses StorageURL, merging the S3 credentials
func (c *ServerConfig) Storage() (StorageConfig, error) {
	sc, err := ParseStorageURL(c.StorageURL)
	if err != nil {
		return StorageConfig{}, err
	}
	if sc.Type == "s3" {
		if sc.S3.Region == "" {
			sc.S3.Region = c.S3.Region
		}
		sc.S3.AccessKeyID = c.S3.AccessKeyID
		sc.S3.SecretAccessKey = c.S3.SecretAccessKey
		sc.S3.CreateBucketIfNotExist = c.S3.CreateBucket
		if c.S3.SSEAlgorithm != "" {
			sc.S3.EnableSSE = true
			sc.S3.SSEAlgorithm = c.S3.SSEAlgorithm
			sc.S3.SSEKMSKeyID = c.S3.SSEKMSKeyID
		}
	}
	return sc, nil
}

// ParseStorageURL understands:
//
//	memory://                                   (also "" and "memory")
//	file:///path/to/data
//	s3://bucket?region=us-east-1&endpoint=http://localhost:9000&path_style=true
func ParseStorageURL(raw string) (StorageConfig, error) {
	if raw == "" || raw == "memory" || raw == "memory://" {
		return StorageConfig{Type: "memory"}, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return StorageConfig{}, fmt.Errorf("invalid STORAGE_URL: %w", err)
	}

	switch u.Scheme {
	case "file":
		path := u.Host + u.Path
		if path == "" {
			return StorageConfig{}, errors.New("filesystem path cannot be empty in STORAGE_URL")
		}
		return StorageConfig{Type: "fs", BaseDir: path}, nil
	case "s3":
		if u.Host == "" {
			return StorageConfig{}, errors.New("bucket name cannot be empty in STORAGE_URL")
		}
		q := u.Query()
		sc := StorageConfig{
			Type: "s3",
			S3: s3storage.Config{
				Bucket:   u.Host,
				Region:   q.Get("region"),
				Endpoint: q.Get("endpoint"),
			},
		}
		if v := q.Get("path_style"); v != "" {
			pathStyle, err := strconv.ParseBool(v)
			if err != nil {
				return StorageConfig{}, fmt.Errorf("invalid path_style in STORAGE_URL: %w", err)
			}
			sc.S3.UsePathStyle = pathStyle
		}
		return sc, nil
	}

	return StorageConfig{}, fmt.Errorf("unsupported STORAGE_URL format: %s (use 'memory://', 'file://...', or 's3://...')", raw)
}

// Components are the collaborators built from a ServerConfig
type Components struct {
	Signer  *eventtoken.Signer
	Store   photodrop.BlobStore
	Service *photodrop.Service
}

// BuildService creates the token signer, blob store and upload service from the configuration
func (c *ServerConfig) BuildService(ctx context.Context, opts ...photodrop.Option) (*Components, error) {
	signer, err := eventtoken.New(c.EventSecret,
		eventtoken.WithDefaultTTL(c.TokenDefaultTTL),
		eventtoken.WithDevToken(c.EnableDevToken && !c.IsProduction()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build signer: %w", err)
	}

	store, err := c.buildStorageBackend(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to build storage backend: %w", err)
	}

	options := []photodrop.Option{
		photodrop.WithBlobStore(store),
		photodrop.WithConcurrency(c.Upload.Concurrency),
		photodrop.WithMaxFiles(c.Upload.MaxFiles),
	}
	options = append(options, opts...)

	svc, err := photodrop.New(options...)
	if err != nil {
		return nil, fmt.Errorf("failed to build service: %w", err)
	}

	return &Components{Signer: signer, Store: store, Service: svc}, nil
}

func (c *ServerConfig) buildStorageBackend(ctx context.Context) (photodrop.BlobStore, error) {
	sc, err := c.Storage()
	if err != nil {
		return nil, err
	}

	switch sc.Type {
	case "memory":
		return memorystorage.New(), nil
	case "fs":
		return fsstorage.New(fsstorage.Config{BaseDir: sc.BaseDir})
	case "s3":
		return s3storage.New(ctx, sc.S3)
	}
	return nil, fmt.Errorf("unsupported storage backend type: %s", sc.Type)
}

// trimList drops blanks and surrounding spaces from a comma separated list
func trimList(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

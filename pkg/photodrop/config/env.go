package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

// WithEnv applies environment variable overrides.
//
// Server:
//
//	PORT, ENVIRONMENT
//
// Tokens:
//
//	EVENT_SECRET (required), TOKEN_DEFAULT_TTL, ENABLE_DEV_TOKEN
//
// Links and admin:
//
//	PUBLIC_BASE_URL, ADMIN_API_KEY_SHA256
//
// Storage:
//
//	STORAGE_URL - one of:
//	              - "memory://" - In-memory storage (default)
//	              - "file:///path/to/data" - Filesystem storage
//	              - "s3://bucket?region=us-east-1&endpoint=...&path_style=true" - S3 storage
//	AWS_REGION, AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY, S3_CREATE_BUCKET,
//	S3_SSE_ALGORITHM, S3_SSE_KMS_KEY_ID
//
// Uploads:
//
//	MAX_UPLOAD_BYTES, MAX_FILES_PER_REQUEST, UPLOAD_CONCURRENCY,
//	REQUIRE_IMAGE_CONTENT_TYPE, RATE_LIMIT_PER_MINUTE, CORS_ALLOWED_ORIGINS
//
// Proxies:
//
//	TRUSTED_PROXY_CIDRS - peers whose X-Forwarded-For and X-Real-IP are believed
//
// Logging:
//
//	LOG_LEVEL, LOG_FORMAT
//
// Unset variables fall back to their defaults, so apply WithEnv before programmatic options.
func WithEnv() Option {
	return func(c *ServerConfig) error {
		if err := cleanenv.ReadEnv(c); err != nil {
			return fmt.Errorf("failed to read environment: %w", err)
		}
		c.CORSAllowedOrigins = trimList(c.CORSAllowedOrigins)
		c.TrustedProxyCIDRs = trimList(c.TrustedProxyCIDRs)
		return nil
	}
}

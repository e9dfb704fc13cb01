package config

import (
	"fmt"
	"time"
)

// WithPort sets the server port
func WithPort(port string) Option {
	return func(c *ServerConfig) error {
		if port == "" {
			return fmt.Errorf("port cannot be empty")
		}
		c.Port = port
		return nil
	}
}

// WithEnvironment sets the environment (development, production, testing)
func WithEnvironment(env string) Option {
	return func(c *ServerConfig) error {
		if env == "" {
			return fmt.Errorf("environment cannot be empty")
		}
		c.Environment = env
		return nil
	}
}

// WithEventSecret sets the token signing secret
func WithEventSecret(secret string) Option {
	return func(c *ServerConfig) error {
		c.EventSecret = secret
		return nil
	}
}

// WithTokenTTL sets the lifetime of tokens issued without an explicit ttl
func WithTokenTTL(ttl time.Duration) Option {
	return func(c *ServerConfig) error {
		c.TokenDefaultTTL = ttl
		return nil
	}
}

// WithDevToken allows the DEV token outside production
func WithDevToken(enabled bool) Option {
	return func(c *ServerConfig) error {
		c.EnableDevToken = enabled
		return nil
	}
}

// WithStorageURL selects the storage backend
func WithStorageURL(storageURL string) Option {
	return func(c *ServerConfig) error {
		if _, err := ParseStorageURL(storageURL); err != nil {
			return err
		}
		c.StorageURL = storageURL
		return nil
	}
}

// WithAdminKeyDigest protects the admin routes with the hex SHA-256 of an API key
func WithAdminKeyDigest(digest string) Option {
	return func(c *ServerConfig) error {
		c.AdminAPIKeySHA256 = digest
		return nil
	}
}

// WithPublicBaseURL sets the base of shareable upload links
func WithPublicBaseURL(base string) Option {
	return func(c *ServerConfig) error {
		c.PublicBaseURL = base
		return nil
	}
}

// WithTrustedProxyCIDRs sets the peers whose forwarding headers identify the client
func WithTrustedProxyCIDRs(cidrs ...string) Option {
	return func(c *ServerConfig) error {
		c.TrustedProxyCIDRs = cidrs
		return nil
	}
}

package main

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tendant/photodrop/pkg/eventtoken"
)

// errTokenRejected marks a token that failed verification, as opposed to a setup error
var errTokenRejected = errors.New("token rejected")

func NewTokenCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue and inspect upload tokens",
	}

	cmd.AddCommand(NewTokenIssueCommand())
	cmd.AddCommand(NewTokenVerifyCommand())

	return cmd
}

func NewTokenIssueCommand() *cobra.Command {
	var (
		eventID string
		ttl     time.Duration
		baseURL string
	)

	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Mint an upload token and shareable link for an event",
		Example: `  photodrop token issue --event wedding2025 --ttl 48h
  photodrop token issue --event party --base-url https://photos.example.com`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			signer, err := eventtoken.New(cfg.EventSecret, eventtoken.WithDefaultTTL(cfg.TokenDefaultTTL))
			if err != nil {
				return err
			}

			claims, err := signer.IssueClaims(eventID, ttl)
			if err != nil {
				return fmt.Errorf("failed to issue token: %w", err)
			}
			if ttl == 0 {
				ttl = signer.DefaultTTL()
			}

			if baseURL == "" {
				baseURL = cfg.PublicBaseURL
			}
			if baseURL == "" {
				baseURL = "http://localhost:" + cfg.Port
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Event:   %s\n", claims.EventID)
			fmt.Fprintf(out, "TTL:     %s\n", ttl)
			fmt.Fprintf(out, "Expires: %s\n", claims.Expiry().UTC().Format(time.RFC3339))
			fmt.Fprintf(out, "Token:   %s\n", claims.Token())
			fmt.Fprintf(out, "Link:    %s\n", uploadLink(baseURL, claims.EventID, claims.Token()))
			return nil
		},
	}

	cmd.Flags().StringVarP(&eventID, "event", "e", "", "event ID (required)")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default TOKEN_DEFAULT_TTL)")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "base of the shareable link (default PUBLIC_BASE_URL)")
	_ = cmd.MarkFlagRequired("event")

	return cmd
}

func NewTokenVerifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <token>",
		Short: "Check a token against EVENT_SECRET",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			signer, err := eventtoken.New(cfg.EventSecret,
				eventtoken.WithDevToken(cfg.EnableDevToken && !cfg.IsProduction()))
			if err != nil {
				return err
			}

			claims, err := signer.Validate(strings.TrimSpace(args[0]))
			if eventtoken.IsRejection(err) {
				return fmt.Errorf("%w (%s): %w", errTokenRejected, eventtoken.Reason(err), err)
			}
			if err != nil {
				return fmt.Errorf("failed to verify token: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Event:   %s\n", claims.EventID)
			if claims.ExpiresAt > 0 {
				fmt.Fprintf(out, "Expires: %s\n", claims.Expiry().UTC().Format(time.RFC3339))
			}
			return nil
		},
	}
}

func uploadLink(baseURL, eventID, token string) string {
	q := url.Values{}
	q.Set("event", eventID)
	q.Set("token", token)
	return strings.TrimRight(baseURL, "/") + "/upload?" + q.Encode()
}

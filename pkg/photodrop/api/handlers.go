package api

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"mime/multipart"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/tendant/photodrop/pkg/eventtoken"
	"github.com/tendant/photodrop/pkg/photodrop"
	"github.com/tendant/photodrop/web"
)

const (
	defaultAdminEvent = "wedding2025"
	defaultAdminTTL   = 86400

	// maxTTLSeconds is the largest TTL a time.Duration can hold
	maxTTLSeconds = math.MaxInt64 / int64(time.Second)
)

var errTTLTooLarge = fmt.Errorf("ttl cannot exceed %d seconds", maxTTLSeconds)

// ttlDuration converts whole seconds to a Duration, refusing values that would overflow
func ttlDuration(seconds int64) (time.Duration, error) {
	if seconds > maxTTLSeconds {
		return 0, errTTLTooLarge
	}
	return time.Duration(seconds) * time.Second, nil
}

type uploadResponse struct {
	EventID string                   `json:"event_id"`
	Objects []photodrop.StoredObject `json:"objects"`
}

type authorizeResponse struct {
	EventID string `json:"event_id"`
}

type createLinkRequest struct {
	EventID    string `json:"event_id"`
	TTLSeconds int64  `json:"ttl_seconds"`
}

type linkResponse struct {
	EventID   string    `json:"event_id"`
	Token     string    `json:"token"`
	Link      string    `json:"link"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]bool{"ok": true})
}

func (s *Server) handleUploadPage(w http.ResponseWriter, r *http.Request) {
	http.ServeFileFS(w, r, web.Assets(), web.UploadPage)
}

// handleUpload relays a multipart batch to the blob store.
// The token and event come from the query string, or from form fields when the query has no token.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	eventID := r.URL.Query().Get("event")

	var decision photodrop.Decision
	if token != "" {
		// Reject before reading the body
		if decision = s.authorizer.Authorize(token, eventID); !decision.Authorized {
			writeError(w, r, http.StatusForbidden, decision.Reason)
			return
		}
	}

	limit := s.maxUploadBytes
	if token == "" && limit > formTokenMaxBytes {
		// The token is inside the body, so the whole form is read before it can be checked
		limit = formTokenMaxBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) || errors.Is(err, multipart.ErrMessageTooLarge) {
			writeError(w, r, http.StatusRequestEntityTooLarge, "upload too large")
			return
		}
		writeError(w, r, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	if token == "" {
		token = formValue(r.MultipartForm, "token")
		if eventID == "" {
			eventID = formValue(r.MultipartForm, "event")
		}
		if decision = s.authorizer.Authorize(token, eventID); !decision.Authorized {
			writeError(w, r, http.StatusForbidden, decision.Reason)
			return
		}
	}

	files, err := s.collectFiles(r.MultipartForm)
	if err != nil {
		writeError(w, r, http.StatusUnsupportedMediaType, err.Error())
		return
	}

	objects, err := s.uploader.UploadBatch(r.Context(), decision.EventID, files)
	switch {
	case errors.Is(err, photodrop.ErrNoFiles):
		writeError(w, r, http.StatusBadRequest, "no files in upload")
		return
	case errors.Is(err, photodrop.ErrTooManyFiles):
		writeError(w, r, http.StatusBadRequest, "too many files in upload")
		return
	case err != nil:
		slog.Error("Failed to store upload", "event_id", decision.EventID, "files", len(files),
			"request_id", middleware.GetReqID(r.Context()), "error", err)
		writeError(w, r, http.StatusInternalServerError, "server error")
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, uploadResponse{EventID: decision.EventID, Objects: objects})
}

// collectFiles returns every file part, ordered by field name then position
func (s *Server) collectFiles(form *multipart.Form) ([]photodrop.File, error) {
	fields := make([]string, 0, len(form.File))
	for field := range form.File {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var files []photodrop.File
	for _, field := range fields {
		for _, fh := range form.File[field] {
			contentType := fh.Header.Get("Content-Type")
			if s.requireImageType && !strings.HasPrefix(contentType, "image/") {
				return nil, fmt.Errorf("unsupported content type %q", contentType)
			}
			files = append(files, photodrop.File{
				Name:        fh.Filename,
				ContentType: contentType,
				Size:        fh.Size,
				Open: func() (io.ReadCloser, error) {
					return fh.Open()
				},
			})
		}
	}
	return files, nil
}

func formValue(form *multipart.Form, key string) string {
	if v := form.Value[key]; len(v) > 0 {
		return v[0]
	}
	return ""
}

func (s *Server) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	decision := s.authorizer.Authorize(q.Get("token"), q.Get("event"))
	if !decision.Authorized {
		writeError(w, r, http.StatusForbidden, decision.Reason)
		return
	}
	render.JSON(w, r, authorizeResponse{EventID: decision.EventID})
}

func (s *Server) handleCreateLink(w http.ResponseWriter, r *http.Request) {
	var req createLinkRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TTLSeconds < 0 {
		writeError(w, r, http.StatusBadRequest, "ttl_seconds cannot be negative")
		return
	}

	ttl, err := ttlDuration(req.TTLSeconds)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	claims, err := s.issue(req.EventID, ttl)
	if err != nil {
		writeIssueError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, linkResponse{
		EventID:   claims.EventID,
		Token:     claims.Token(),
		Link:      s.uploadLink(r, claims.EventID, claims.Token()),
		ExpiresAt: claims.Expiry().UTC(),
	})
}

// handleAdmin is the plain text helper for minting a link from a browser
func (s *Server) handleAdmin(w http.ResponseWriter, r *http.Request) {
	eventID := r.URL.Query().Get("event")
	if eventID == "" {
		eventID = defaultAdminEvent
	}

	ttl := int64(defaultAdminTTL)
	if v := r.URL.Query().Get("ttl"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			render.Status(r, http.StatusBadRequest)
			render.PlainText(w, r, "ttl must be a positive number of seconds")
			return
		}
		ttl = n
	}
	d, err := ttlDuration(ttl)
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.PlainText(w, r, err.Error())
		return
	}

	claims, err := s.issue(eventID, d)
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.PlainText(w, r, err.Error())
		return
	}

	token := claims.Token()
	render.PlainText(w, r, strings.Join([]string{
		"Event: " + claims.EventID,
		"TTL: " + strconv.FormatInt(ttl, 10) + "s",
		"Token: " + token,
		"Link: " + s.uploadLink(r, claims.EventID, token),
	}, "\n"))
}

func (s *Server) issue(eventID string, ttl time.Duration) (eventtoken.Claims, error) {
	claims, err := s.issuer.IssueClaims(eventID, ttl)
	if err != nil {
		return claims, err
	}
	s.onIssue()
	slog.Info("Upload link issued", "event_id", claims.EventID, "expires_at", claims.ExpiresAt)
	return claims, nil
}

// uploadLink builds {base}/upload?event=...&token=...
func (s *Server) uploadLink(r *http.Request, eventID, token string) string {
	base := strings.TrimRight(s.publicBaseURL, "/")
	if base == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto == "http" || proto == "https" {
			scheme = proto
		}
		base = scheme + "://" + r.Host
	}

	q := url.Values{}
	q.Set("event", eventID)
	q.Set("token", token)
	return base + "/upload?" + q.Encode()
}

func writeIssueError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, eventtoken.ErrInvalidEventID):
		writeError(w, r, http.StatusBadRequest, "event_id is required and cannot contain '|'")
	case errors.Is(err, eventtoken.ErrInvalidTTL):
		writeError(w, r, http.StatusBadRequest, "ttl_seconds must be at least 1")
	default:
		slog.Error("Failed to issue token", "request_id", middleware.GetReqID(r.Context()), "error", err)
		writeError(w, r, http.StatusInternalServerError, "server error")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	render.Status(r, status)
	render.JSON(w, r, map[string]string{"error": message})
}

package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/logistix/vintedsync/internal/vinted"
)

// AnonymousUser is the reserved user id holding the bootstrap session used
// for unauthenticated catalog searches.
const AnonymousUser = "anonymous"

// DefaultTTL is how long a stored session cookie is considered usable.
const DefaultTTL = 24 * time.Hour

// ErrNotFound is returned by stores when no session exists for a user.
var ErrNotFound = errors.New("session not found")

var uidPattern = regexp.MustCompile(`(?:^|;\s*)v_uid=([0-9]+)`)

// Store persists per-user marketplace session cookies.
type Store interface {
	Get(ctx context.Context, userID string) (string, error)
	Set(ctx context.Context, userID, cookie string, ttl time.Duration) error
	Delete(ctx context.Context, userID string) error
	// Users lists the ids that currently hold a session.
	Users(ctx context.Context) ([]string, error)
}

// Manager hands out marketplace session cookies keyed by dashboard user id.
// It satisfies vinted.SessionSource.
type Manager struct {
	store      Store
	httpClient *http.Client
	baseURL    string
	userAgent  string
	ttl        time.Duration
}

var _ vinted.SessionSource = (*Manager)(nil)

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithBaseURL overrides the marketplace base URL used for bootstrap.
func WithBaseURL(u string) ManagerOption {
	return func(m *Manager) { m.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient overrides the HTTP client used for bootstrap.
func WithHTTPClient(hc *http.Client) ManagerOption {
	return func(m *Manager) { m.httpClient = hc }
}

// WithTTL overrides the session TTL.
func WithTTL(ttl time.Duration) ManagerOption {
	return func(m *Manager) { m.ttl = ttl }
}

// NewManager creates a Manager over the given store.
func NewManager(store Store, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:      store,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    "https://www.vinted.fr",
		userAgent:  "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
		ttl:        DefaultTTL,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Cookie returns the session cookie for userID, or vinted.ErrNoSession.
func (m *Manager) Cookie(ctx context.Context, userID string) (string, error) {
	cookie, err := m.store.Get(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return "", fmt.Errorf("%w: %s", vinted.ErrNoSession, userID)
	}
	if err != nil {
		return "", fmt.Errorf("load session for %s: %w", userID, err)
	}
	return cookie, nil
}

// UID extracts the marketplace user id from the stored session cookie. The
// wardrobe endpoints are addressed by this id, not by the dashboard user id.
func (m *Manager) UID(ctx context.Context, userID string) (string, error) {
	cookie, err := m.Cookie(ctx, userID)
	if err != nil {
		return "", err
	}
	uid := ExtractUID(cookie)
	if uid == "" {
		return "", fmt.Errorf("session for %s carries no v_uid field", userID)
	}
	return uid, nil
}

// SetCookie stores a session cookie for the user.
func (m *Manager) SetCookie(ctx context.Context, userID, cookie string) error {
	if strings.TrimSpace(cookie) == "" {
		return errors.New("empty session cookie")
	}
	return m.store.Set(ctx, userID, cookie, m.ttl)
}

// DeleteSession removes the user's session.
func (m *Manager) DeleteSession(ctx context.Context, userID string) error {
	return m.store.Delete(ctx, userID)
}

// Users lists user ids that currently hold a session. The background sync
// runner iterates this list.
func (m *Manager) Users(ctx context.Context) ([]string, error) {
	return m.store.Users(ctx)
}

// ExtractUID pulls the marketplace user id out of a raw cookie string.
func ExtractUID(cookie string) string {
	match := uidPattern.FindStringSubmatch(cookie)
	if match == nil {
		return ""
	}
	return match[1]
}

// Bootstrap fetches the marketplace home page anonymously, collects the
// cookies it hands out and the CSRF token from the page head, and stores the
// resulting session under AnonymousUser. Public catalog searches run on this
// session when a user has none of their own.
func (m *Manager) Bootstrap(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.baseURL+"/", nil)
	if err != nil {
		return "", fmt.Errorf("create bootstrap request: %w", err)
	}
	req.Header.Set("User-Agent", m.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("bootstrap request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("bootstrap returned HTTP %d", resp.StatusCode)
	}

	var parts []string
	for _, c := range resp.Cookies() {
		parts = append(parts, c.Name+"="+c.Value)
	}
	if len(parts) == 0 {
		return "", errors.New("bootstrap response carried no cookies")
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("parse bootstrap page: %w", err)
	}
	if token, ok := doc.Find(`meta[name="csrf-token"]`).Attr("content"); ok && token != "" {
		parts = append(parts, "anon_csrf_token="+token)
	}

	cookie := strings.Join(parts, "; ")
	if err := m.store.Set(ctx, AnonymousUser, cookie, m.ttl); err != nil {
		return "", fmt.Errorf("store anonymous session: %w", err)
	}
	return cookie, nil
}

package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/quietpage/quietpage/internal/client/models"
	"github.com/quietpage/quietpage/internal/common"
)

// HTTPClient implements Store, Directory, Auth and Profile over the JSON API.
// It is safe for concurrent use: the session engine's debounce timers fire
// saves on their own goroutines while the REPL keeps issuing calls.
type HTTPClient struct {
	baseURL string
	http    *http.Client

	// mu guards the token pair and the cached session. refreshMu serializes
	// token rotation so concurrent expired requests trigger one refresh.
	mu           sync.Mutex
	refreshMu    sync.Mutex
	accessToken  string
	refreshToken string
	session      *models.Session
}

// NewHTTPClient constructs a client for the given API base URL
// (e.g. "http://127.0.0.1:8080").
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

type errorBody struct {
	Error string `json:"error"`
}

// do performs an authenticated JSON request. On a 401 caused by an expired
// access token it refreshes the token pair once and retries, mirroring the
// usual silent-refresh flow.
func (c *HTTPClient) do(ctx context.Context, method, path string, in, out any) error {
	token := c.bearer()
	err := c.doOnce(ctx, method, path, token, in, out)
	if err == nil {
		return nil
	}
	if common.ErrTokenExpired.Error() != tokenErrMessage(err) {
		return err
	}
	if rerr := c.refreshAfter(ctx, token); rerr != nil {
		return err
	}
	return c.doOnce(ctx, method, path, c.bearer(), in, out)
}

// bearer snapshots the current access token.
func (c *HTTPClient) bearer() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken
}

// setTokens installs a new token pair and invalidates the cached session.
func (c *HTTPClient) setTokens(access, refresh string) {
	c.mu.Lock()
	c.accessToken, c.refreshToken = access, refresh
	c.session = nil
	c.mu.Unlock()
}

// tokenErrMessage extracts the server error string from an apiError, or "".
func tokenErrMessage(err error) string {
	var ae *apiError
	if ok := asAPIError(err, &ae); ok {
		return ae.message
	}
	return ""
}

type apiError struct {
	status  int
	message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("api error: %d %s", e.status, e.message)
}

func asAPIError(err error, target **apiError) bool {
	ae, ok := err.(*apiError)
	if ok {
		*target = ae
	}
	return ok
}

func (c *HTTPClient) doOnce(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set(common.AuthHeaderName, "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var eb errorBody
		_ = json.NewDecoder(resp.Body).Decode(&eb)
		if mapped := mapStatus(resp.StatusCode, eb.Error); mapped != nil {
			return mapped
		}
		return &apiError{status: resp.StatusCode, message: eb.Error}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// mapStatus converts well-known API errors back to the shared sentinels so
// callers can use errors.Is regardless of transport.
func mapStatus(status int, msg string) error {
	switch msg {
	case common.ErrEntryNotFound.Error():
		return common.ErrEntryNotFound
	case common.ErrGoalNotFound.Error():
		return common.ErrGoalNotFound
	case common.ErrPromptNotFound.Error():
		return common.ErrPromptNotFound
	case common.ErrKeyNotFound.Error():
		return common.ErrKeyNotFound
	case common.ErrProfessionalNotLinked.Error():
		return common.ErrProfessionalNotLinked
	case common.ErrNotFound.Error():
		return common.ErrNotFound
	case common.ErrTokenExpired.Error():
		return &apiError{status: status, message: msg}
	}
	if status == http.StatusUnauthorized {
		return common.ErrUnauthenticated
	}
	return nil
}

// ---- Auth collaborator ----

type registerRequest struct {
	Username string `json:"username"`
	Salt     []byte `json:"salt"`
	Verifier []byte `json:"verifier"`
}

type loginRequest struct {
	Username string `json:"username"`
	Verifier []byte `json:"verifier"`
}

type tokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type saltResponse struct {
	Salt []byte `json:"salt"`
}

// Register creates an account. The password never leaves the caller: only
// the auth salt and the SHA-256 verifier of the derived login key are sent.
func (c *HTTPClient) Register(ctx context.Context, username string, salt, verifier []byte) error {
	return c.do(ctx, http.MethodPost, "/api/auth/register",
		registerRequest{Username: username, Salt: salt, Verifier: verifier}, nil)
}

// GetSalt fetches the auth salt registered for username.
func (c *HTTPClient) GetSalt(ctx context.Context, username string) ([]byte, error) {
	var resp saltResponse
	err := c.do(ctx, http.MethodGet, "/api/auth/salt?username="+url.QueryEscape(username), nil, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Salt, nil
}

// Login exchanges a verifier candidate for a token pair.
func (c *HTTPClient) Login(ctx context.Context, username string, verifier []byte) error {
	var tp tokenPair
	if err := c.doOnce(ctx, http.MethodPost, "/api/auth/login", "",
		loginRequest{Username: username, Verifier: verifier}, &tp); err != nil {
		return err
	}
	c.setTokens(tp.AccessToken, tp.RefreshToken)
	return nil
}

// refreshAfter rotates the token pair unless another request already did.
// staleToken is the access token the failed request carried: when the stored
// token has moved on since, the rotation already happened and the caller just
// retries with the fresh pair. Serializing here keeps the single-use refresh
// token from being spent twice.
func (c *HTTPClient) refreshAfter(ctx context.Context, staleToken string) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	c.mu.Lock()
	current, refresh := c.accessToken, c.refreshToken
	c.mu.Unlock()
	if current != staleToken {
		return nil
	}
	if refresh == "" {
		return common.ErrUnauthenticated
	}

	var tp tokenPair
	if err := c.doOnce(ctx, http.MethodPost, "/api/auth/refresh", "",
		map[string]string{"refreshToken": refresh}, &tp); err != nil {
		return err
	}
	c.setTokens(tp.AccessToken, tp.RefreshToken)
	return nil
}

// Logout drops the local token pair.
func (c *HTTPClient) Logout() {
	c.setTokens("", "")
}

// Ping checks server liveness.
func (c *HTTPClient) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/api/health", nil, nil)
}

// RequireAuth implements Auth.
func (c *HTTPClient) RequireAuth(ctx context.Context) (*models.Session, error) {
	if s := c.GetCurrentSession(ctx); s != nil {
		return s, nil
	}
	return nil, common.ErrUnauthenticated
}

// GetCurrentSession implements Auth. The session is fetched lazily and
// cached for the lifetime of the token pair.
func (c *HTTPClient) GetCurrentSession(ctx context.Context) *models.Session {
	c.mu.Lock()
	token, cached := c.accessToken, c.session
	c.mu.Unlock()
	if token == "" {
		return nil
	}
	if cached != nil {
		return cached
	}
	var s models.Session
	if err := c.do(ctx, http.MethodGet, "/api/session", nil, &s); err != nil {
		return nil
	}
	c.mu.Lock()
	c.session = &s
	c.mu.Unlock()
	return &s
}

// ---- Profile collaborator ----

func (c *HTTPClient) GetUserProfile(ctx context.Context) (*models.Profile, error) {
	var p models.Profile
	if err := c.do(ctx, http.MethodGet, "/api/profile", nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ---- Store: keyring ----

func (c *HTTPClient) KeyringGet(ctx context.Context) (*models.KeyringRecord, error) {
	var rec models.KeyringRecord
	if err := c.do(ctx, http.MethodGet, "/api/keyring", nil, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (c *HTTPClient) KeyringPut(ctx context.Context, rec *models.KeyringRecord) error {
	return c.do(ctx, http.MethodPut, "/api/keyring", rec, nil)
}

// ---- Store: entries ----

func (c *HTTPClient) EntryGetByDate(ctx context.Context, date string) (*models.EntryRecord, error) {
	var rec models.EntryRecord
	if err := c.do(ctx, http.MethodGet, "/api/entries/"+url.PathEscape(date), nil, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (c *HTTPClient) EntryUpsert(ctx context.Context, rec *models.EntryRecord) (*models.EntryRecord, error) {
	var saved models.EntryRecord
	if err := c.do(ctx, http.MethodPut, "/api/entries/"+url.PathEscape(rec.Date), rec, &saved); err != nil {
		return nil, err
	}
	return &saved, nil
}

func (c *HTTPClient) EntryListMeta(ctx context.Context, from, to string) ([]models.EntryMeta, error) {
	q := url.Values{"from": {from}, "to": {to}}
	var meta []models.EntryMeta
	if err := c.do(ctx, http.MethodGet, "/api/entries?"+q.Encode(), nil, &meta); err != nil {
		return nil, err
	}
	return meta, nil
}

// ---- Store: goals ----

func (c *HTTPClient) GoalList(ctx context.Context) ([]models.GoalRecord, error) {
	var goals []models.GoalRecord
	if err := c.do(ctx, http.MethodGet, "/api/goals", nil, &goals); err != nil {
		return nil, err
	}
	return goals, nil
}

func (c *HTTPClient) GoalUpsert(ctx context.Context, rec *models.GoalRecord) (*models.GoalRecord, error) {
	var saved models.GoalRecord
	if err := c.do(ctx, http.MethodPut, "/api/goals/"+url.PathEscape(rec.ID), rec, &saved); err != nil {
		return nil, err
	}
	return &saved, nil
}

func (c *HTTPClient) GoalDelete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/goals/"+url.PathEscape(id), nil, nil)
}

func (c *HTTPClient) GoalLink(ctx context.Context, goalID, entryID string) error {
	return c.do(ctx, http.MethodPut,
		"/api/goals/"+url.PathEscape(goalID)+"/entries/"+url.PathEscape(entryID), nil, nil)
}

func (c *HTTPClient) GoalUnlink(ctx context.Context, goalID, entryID string) error {
	return c.do(ctx, http.MethodDelete,
		"/api/goals/"+url.PathEscape(goalID)+"/entries/"+url.PathEscape(entryID), nil, nil)
}

// ---- Store: shares ----

type shareRequest struct {
	Envelope []byte `json:"envelope"`
}

func (c *HTTPClient) Share(ctx context.Context, entryID, professionalID string, envelope []byte) error {
	return c.do(ctx, http.MethodPut,
		"/api/entries/"+url.PathEscape(entryID)+"/shares/"+url.PathEscape(professionalID),
		shareRequest{Envelope: envelope}, nil)
}

func (c *HTTPClient) RevokeShare(ctx context.Context, entryID, professionalID string) error {
	return c.do(ctx, http.MethodDelete,
		"/api/entries/"+url.PathEscape(entryID)+"/shares/"+url.PathEscape(professionalID), nil, nil)
}

func (c *HTTPClient) ListShared(ctx context.Context) ([]models.ShareRecord, error) {
	var shares []models.ShareRecord
	if err := c.do(ctx, http.MethodGet, "/api/shares", nil, &shares); err != nil {
		return nil, err
	}
	return shares, nil
}

// ---- Store: coach prompts ----

func (c *HTTPClient) PromptList(ctx context.Context, f models.PromptFilter) ([]models.CoachPrompt, error) {
	q := url.Values{}
	if f.Locale != "" {
		q.Set("locale", f.Locale)
	}
	if f.Scope != "" {
		q.Set("scope", f.Scope)
	}
	if len(f.Tags) > 0 {
		q.Set("tags", strings.Join(f.Tags, ","))
	}
	if f.ActiveAt != nil {
		q.Set("activeAt", f.ActiveAt.Format(time.RFC3339))
	}
	if f.IncludeDisabled {
		q.Set("includeDisabled", "true")
	}
	path := "/api/prompts"
	if enc := q.Encode(); enc != "" {
		path += "?" + enc
	}
	var prompts []models.CoachPrompt
	if err := c.do(ctx, http.MethodGet, path, nil, &prompts); err != nil {
		return nil, err
	}
	return prompts, nil
}

// ---- Directory collaborator ----

type publicKeyResponse struct {
	PublicKey []byte `json:"publicKey"`
}

func (c *HTTPClient) ListLinkedProfessionals(ctx context.Context) ([]models.Professional, error) {
	var pros []models.Professional
	if err := c.do(ctx, http.MethodGet, "/api/professionals", nil, &pros); err != nil {
		return nil, err
	}
	return pros, nil
}

func (c *HTTPClient) GetProfessionalPublicKey(ctx context.Context, id string) ([]byte, error) {
	var resp publicKeyResponse
	err := c.do(ctx, http.MethodGet, "/api/professionals/"+url.PathEscape(id)+"/key", nil, &resp)
	if err != nil {
		return nil, err
	}
	return resp.PublicKey, nil
}

var (
	_ Store     = (*HTTPClient)(nil)
	_ Directory = (*HTTPClient)(nil)
	_ Auth      = (*HTTPClient)(nil)
	_ Profile   = (*HTTPClient)(nil)
)

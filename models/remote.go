package models

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/rohanthewiz/logger"
	"github.com/rohanthewiz/serr"
)

// ============================================================================
// Remote Snapshot Service client
//
// The orchestrator only cares whether a call succeeded; HTTP status detail
// is absorbed here and surfaced as a wrapped error. Authentication is a
// cached bearer token with one transparent re-login on 401, so callers never
// deal with token expiry.
// ============================================================================

// SnapshotService is the remote contract the orchestrator drains against.
// Any non-nil error means "leave the item queued for the next pass".
type SnapshotService interface {
	FetchSnapshot(ctx context.Context, userID string) (*Snapshot, error)
	PutProfile(ctx context.Context, userID string, p UserProfile) error
	PushWorkout(ctx context.Context, userID string, w WorkoutLog) error
	DeleteWorkout(ctx context.Context, userID, id string) error
	PutNutrition(ctx context.Context, userID, date string, log NutritionLog) error
	DeleteNutrition(ctx context.Context, userID, date string) error
	PushProgress(ctx context.Context, userID string, e ProgressEntry) error
	DeleteProgress(ctx context.Context, userID, id string) error
	DeleteAllData(ctx context.Context, userID string) error
}

// HTTPSnapshotService talks to the companion REST API.
type HTTPSnapshotService struct {
	baseURL    string
	username   string
	password   string
	authToken  string
	httpClient *http.Client
}

// NewHTTPSnapshotService builds the client from sync config. The fixed
// request timeout bounds every call — a hung request is a failed request,
// never an indefinitely blocked pass.
func NewHTTPSnapshotService(cfg *SyncConfig) *HTTPSnapshotService {
	return &HTTPSnapshotService{
		baseURL:  cfg.ServerURL,
		username: cfg.Username,
		password: cfg.Password,
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
	}
}

// apiEnvelope mirrors the server's APIResponse wrapper.
type apiEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// login posts credentials and caches the returned bearer token.
func (rs *HTTPSnapshotService) login(ctx context.Context) error {
	body, err := json.Marshal(map[string]string{
		"username": rs.username,
		"password": rs.password,
	})
	if err != nil {
		return serr.Wrap(err, "failed to marshal login request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		rs.baseURL+"/api/v1/auth/login", bytes.NewReader(body))
	if err != nil {
		return serr.Wrap(err, "failed to create login request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := rs.httpClient.Do(req)
	if err != nil {
		return serr.Wrap(err, "login request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return serr.New(fmt.Sprintf("login failed with status %d", resp.StatusCode))
	}

	var env struct {
		Success bool `json:"success"`
		Data    struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return serr.Wrap(err, "failed to decode login response")
	}
	if !env.Success || env.Data.Token == "" {
		return serr.New("login response missing token")
	}

	rs.authToken = env.Data.Token
	return nil
}

// do sends one authenticated request, re-authenticating once on 401, and
// returns the decoded envelope. payload may be nil for body-less calls.
func (rs *HTTPSnapshotService) do(ctx context.Context, method, path string, payload any) (*apiEnvelope, error) {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return nil, serr.Wrap(err, "failed to marshal request payload")
		}
	}

	if rs.authToken == "" {
		if err := rs.login(ctx); err != nil {
			return nil, err
		}
	}

	resp, err := rs.send(ctx, method, path, body)
	if err != nil {
		return nil, err
	}

	// One transparent re-login on token expiry
	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		if err := rs.login(ctx); err != nil {
			return nil, serr.Wrap(err, "re-authentication failed after 401")
		}
		resp, err = rs.send(ctx, method, path, body)
		if err != nil {
			return nil, err
		}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, serr.Wrap(err, "failed to read response body")
	}

	var env apiEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, serr.Wrap(err, "failed to decode response", "status", fmt.Sprint(resp.StatusCode))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !env.Success {
		return nil, serr.New(fmt.Sprintf("server returned status %d: %s", resp.StatusCode, env.Error))
	}
	return &env, nil
}

func (rs *HTTPSnapshotService) send(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, rs.baseURL+path, reader)
	if err != nil {
		return nil, serr.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+rs.authToken)

	resp, err := rs.httpClient.Do(req)
	if err != nil {
		return nil, serr.Wrap(err, "request failed")
	}
	return resp, nil
}

// FetchSnapshot reads the user's full server-side state.
func (rs *HTTPSnapshotService) FetchSnapshot(ctx context.Context, userID string) (*Snapshot, error) {
	env, err := rs.do(ctx, http.MethodGet, "/api/v1/snapshot", nil)
	if err != nil {
		return nil, serr.Wrap(err, "snapshot fetch failed")
	}

	var snap Snapshot
	if err := json.Unmarshal(env.Data, &snap); err != nil {
		return nil, serr.Wrap(err, "failed to decode snapshot")
	}

	logger.Debug("Fetched remote snapshot",
		"workouts", len(snap.Workouts),
		"nutrition_dates", len(snap.NutritionByDate),
		"progress_entries", len(snap.ProgressEntries),
	)
	return &snap, nil
}

// PutProfile upserts the one-per-user profile record.
func (rs *HTTPSnapshotService) PutProfile(ctx context.Context, userID string, p UserProfile) error {
	_, err := rs.do(ctx, http.MethodPut, "/api/v1/profile", p)
	return err
}

// PushWorkout creates or replaces a workout by client id.
func (rs *HTTPSnapshotService) PushWorkout(ctx context.Context, userID string, w WorkoutLog) error {
	_, err := rs.do(ctx, http.MethodPost, "/api/v1/workouts", w)
	return err
}

// DeleteWorkout removes a workout by id.
func (rs *HTTPSnapshotService) DeleteWorkout(ctx context.Context, userID, id string) error {
	_, err := rs.do(ctx, http.MethodDelete, "/api/v1/workouts/"+url.PathEscape(id), nil)
	return err
}

// PutNutrition upserts the nutrition log for one date.
func (rs *HTTPSnapshotService) PutNutrition(ctx context.Context, userID, date string, log NutritionLog) error {
	_, err := rs.do(ctx, http.MethodPut, "/api/v1/nutrition/"+url.PathEscape(date), log)
	return err
}

// DeleteNutrition removes the nutrition log for one date.
func (rs *HTTPSnapshotService) DeleteNutrition(ctx context.Context, userID, date string) error {
	_, err := rs.do(ctx, http.MethodDelete, "/api/v1/nutrition/"+url.PathEscape(date), nil)
	return err
}

// PushProgress creates or replaces a progress entry by client id.
func (rs *HTTPSnapshotService) PushProgress(ctx context.Context, userID string, e ProgressEntry) error {
	_, err := rs.do(ctx, http.MethodPost, "/api/v1/progress", e)
	return err
}

// DeleteProgress removes a progress entry by id.
func (rs *HTTPSnapshotService) DeleteProgress(ctx context.Context, userID, id string) error {
	_, err := rs.do(ctx, http.MethodDelete, "/api/v1/progress/"+url.PathEscape(id), nil)
	return err
}

// DeleteAllData wipes the user's server-side data. Explicit user action
// only; bypasses tombstone bookkeeping entirely.
func (rs *HTTPSnapshotService) DeleteAllData(ctx context.Context, userID string) error {
	_, err := rs.do(ctx, http.MethodDelete, "/api/v1/data", nil)
	return err
}

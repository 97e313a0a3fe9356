package zoom

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/liveclass/liveclass-server/internal/meeting"
)

// Engine implements meeting.Provider against the Zoom REST API using
// account-credentials OAuth.
type Engine struct {
	accountID    string
	clientID     string
	clientSecret string
	baseURL      string
	oauthURL     string
	client       *http.Client

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// New creates a Zoom-backed meeting provider. timeout bounds each API call.
func New(accountID, clientID, clientSecret, baseURL, oauthURL string, timeout time.Duration) *Engine {
	return &Engine{
		accountID:    accountID,
		clientID:     clientID,
		clientSecret: clientSecret,
		baseURL:      baseURL,
		oauthURL:     oauthURL,
		client:       &http.Client{Timeout: timeout},
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

type createMeetingRequest struct {
	Topic     string          `json:"topic"`
	Type      int             `json:"type"`
	StartTime string          `json:"start_time"`
	Duration  int             `json:"duration"`
	Password  string          `json:"password"`
	Settings  meetingSettings `json:"settings"`
}

type meetingSettings struct {
	HostVideo        bool   `json:"host_video"`
	ParticipantVideo bool   `json:"participant_video"`
	JoinBeforeHost   bool   `json:"join_before_host"`
	MuteUponEntry    bool   `json:"mute_upon_entry"`
	WaitingRoom      bool   `json:"waiting_room"`
	AutoRecording    string `json:"auto_recording"`
}

type createMeetingResponse struct {
	ID       int64  `json:"id"`
	JoinURL  string `json:"join_url"`
	Password string `json:"password"`
}

// CreateMeeting schedules a Zoom meeting and returns its access details.
func (e *Engine) CreateMeeting(ctx context.Context, topic string, start time.Time, durationMinutes int, password string) (*meeting.Details, error) {
	token, err := e.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(createMeetingRequest{
		Topic:     topic,
		Type:      2, // scheduled meeting
		StartTime: start.UTC().Format(time.RFC3339),
		Duration:  durationMinutes,
		Password:  password,
		Settings: meetingSettings{
			HostVideo:        true,
			ParticipantVideo: true,
			JoinBeforeHost:   false,
			MuteUponEntry:    true,
			WaitingRoom:      true,
			AutoRecording:    "cloud",
		},
	})
	if err != nil {
		return nil, &meeting.ProviderError{Op: "create meeting", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/users/me/meetings", bytes.NewReader(body))
	if err != nil {
		return nil, &meeting.ProviderError{Op: "create meeting", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, &meeting.ProviderError{Op: "create meeting", Transient: true, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, apiError("create meeting", resp)
	}

	var created createMeetingResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return nil, &meeting.ProviderError{Op: "create meeting", Err: fmt.Errorf("decode response: %w", err)}
	}

	return &meeting.Details{
		MeetingID: strconv.FormatInt(created.ID, 10),
		JoinURL:   created.JoinURL,
		Password:  created.Password,
	}, nil
}

// accessToken returns a cached OAuth token, refreshing it when expired.
func (e *Engine) accessToken(ctx context.Context) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.token != "" && time.Now().Before(e.tokenExpiry) {
		return e.token, nil
	}

	params := url.Values{}
	params.Set("grant_type", "account_credentials")
	params.Set("account_id", e.accountID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.oauthURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", &meeting.ProviderError{Op: "oauth token", Err: err}
	}
	basic := base64.StdEncoding.EncodeToString([]byte(e.clientID + ":" + e.clientSecret))
	req.Header.Set("Authorization", "Basic "+basic)

	resp, err := e.client.Do(req)
	if err != nil {
		return "", &meeting.ProviderError{Op: "oauth token", Transient: true, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", apiError("oauth token", resp)
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", &meeting.ProviderError{Op: "oauth token", Err: fmt.Errorf("decode response: %w", err)}
	}

	e.token = tok.AccessToken
	// Refresh a minute early to avoid using a token at the edge of expiry.
	e.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn)*time.Second - time.Minute)
	return e.token, nil
}

func apiError(op string, resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	err := fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	return &meeting.ProviderError{
		Op:        op,
		Transient: resp.StatusCode >= 500,
		Err:       err,
	}
}

var _ meeting.Provider = (*Engine)(nil)

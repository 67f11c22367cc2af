package presence

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	actionCreate           = "create"
	actionJoin             = "join"
	actionEnd              = "end"
	actionGetMeetingInfo   = "getMeetingInfo"
	actionIsMeetingRunning = "isMeetingRunning"

	returncodeSuccess = "SUCCESS"
)

// UpstreamError is a failure reported by or while reaching the conferencing
// service: transport error, timeout, or a FAILED returncode. The service is
// authoritative; callers get a single attempt and decide retry policy.
type UpstreamError struct {
	Action  string
	Message string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("presence service %s: %s", e.Action, e.Message)
}

// Attendee is a live presence record reported by the conferencing service.
// Ephemeral: fetched fresh per reconciliation pass, never persisted.
type Attendee struct {
	UserID          string
	IsListeningOnly bool
	HasJoinedVoice  bool
	HasVideo        bool
}

// Participating reports whether the attendee counts as present. A connection
// with no audio, no video and no listen-only stream is a dead socket, not a
// participant.
func (a Attendee) Participating() bool {
	return a.IsListeningOnly || a.HasJoinedVoice || a.HasVideo
}

type attendeeXML struct {
	UserID          string `xml:"userID"`
	IsListeningOnly bool   `xml:"isListeningOnly"`
	HasJoinedVoice  bool   `xml:"hasJoinedVoiceConnection"`
	HasVideo        bool   `xml:"hasVideo"`
}

type apiResponse struct {
	ReturnCode string        `xml:"returncode"`
	Message    string        `xml:"message"`
	MessageKey string        `xml:"messageKey"`
	Running    bool          `xml:"running"`
	Attendees  []attendeeXML `xml:"attendees>attendee"`
}

// Client issues signed calls to the external conferencing service.
type Client struct {
	baseURL string
	signer  *Signer
	http    *http.Client
	timeout time.Duration
	logger  *zap.Logger
}

// NewClient creates a presence client. Every call runs under the given
// per-call timeout; a timeout surfaces as an UpstreamError.
func NewClient(baseURL, secret string, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		signer:  NewSigner(secret),
		http:    &http.Client{},
		timeout: timeout,
		logger:  logger,
	}
}

func (c *Client) call(ctx context.Context, action string, params []Param) (*apiResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u := c.baseURL + "/" + action + "?" + c.signer.SignedQuery(action, params)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, nil)
	if err != nil {
		return nil, &UpstreamError{Action: action, Message: err.Error()}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("presence call failed", zap.String("action", action), zap.Error(err))
		return nil, &UpstreamError{Action: action, Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &UpstreamError{Action: action, Message: err.Error()}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamError{Action: action, Message: fmt.Sprintf("status %d", resp.StatusCode)}
	}
	var parsed apiResponse
	if err := xml.Unmarshal(body, &parsed); err != nil {
		return nil, &UpstreamError{Action: action, Message: "malformed response: " + err.Error()}
	}
	return &parsed, nil
}

func failureMessage(r *apiResponse) string {
	if r.Message != "" {
		return r.Message
	}
	if r.MessageKey != "" {
		return r.MessageKey
	}
	return "request failed"
}

// GetLivePresence returns the attendees of a meeting and whether it is
// running. When the meeting is not running the attendee list is empty.
func (c *Client) GetLivePresence(ctx context.Context, meetingID string) ([]Attendee, bool, error) {
	resp, err := c.call(ctx, actionGetMeetingInfo, []Param{{"meetingID", meetingID}})
	if err != nil {
		return nil, false, err
	}
	if resp.ReturnCode != returncodeSuccess {
		return nil, false, &UpstreamError{Action: actionGetMeetingInfo, Message: failureMessage(resp)}
	}
	if !resp.Running {
		return nil, false, nil
	}
	attendees := make([]Attendee, 0, len(resp.Attendees))
	for _, a := range resp.Attendees {
		attendees = append(attendees, Attendee{
			UserID:          a.UserID,
			IsListeningOnly: a.IsListeningOnly,
			HasJoinedVoice:  a.HasJoinedVoice,
			HasVideo:        a.HasVideo,
		})
	}
	return attendees, true, nil
}

// IsRunning reports whether a meeting is currently running.
func (c *Client) IsRunning(ctx context.Context, meetingID string) (bool, error) {
	resp, err := c.call(ctx, actionIsMeetingRunning, []Param{{"meetingID", meetingID}})
	if err != nil {
		return false, err
	}
	if resp.ReturnCode != returncodeSuccess {
		return false, &UpstreamError{Action: actionIsMeetingRunning, Message: failureMessage(resp)}
	}
	return resp.Running, nil
}

// CreateMeeting creates a meeting on the service. Idempotent: a meeting that
// already exists is treated as success.
func (c *Client) CreateMeeting(ctx context.Context, name, meetingID, moderatorPW, attendeePW string) error {
	resp, err := c.call(ctx, actionCreate, []Param{
		{"name", name},
		{"meetingID", meetingID},
		{"moderatorPW", moderatorPW},
		{"attendeePW", attendeePW},
	})
	if err != nil {
		return err
	}
	if resp.ReturnCode != returncodeSuccess {
		if resp.MessageKey == "idNotUnique" {
			return nil
		}
		return &UpstreamError{Action: actionCreate, Message: failureMessage(resp)}
	}
	return nil
}

// EndMeeting ends a running meeting.
func (c *Client) EndMeeting(ctx context.Context, meetingID, moderatorPW string) error {
	resp, err := c.call(ctx, actionEnd, []Param{
		{"meetingID", meetingID},
		{"password", moderatorPW},
	})
	if err != nil {
		return err
	}
	if resp.ReturnCode != returncodeSuccess {
		return &UpstreamError{Action: actionEnd, Message: failureMessage(resp)}
	}
	return nil
}

// JoinURL builds the signed join URL for a user. The URL is handed to the
// browser; the client never fetches it.
func (c *Client) JoinURL(meetingID, fullName, userID, role, password string) string {
	params := []Param{
		{"meetingID", meetingID},
		{"fullName", fullName},
		{"userID", userID},
		{"role", role},
		{"password", password},
	}
	return c.baseURL + "/" + actionJoin + "?" + c.signer.SignedQuery(actionJoin, params)
}

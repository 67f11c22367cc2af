package presence

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

const testSecret = "test-secret"

// hexSum recomputes the digest the way the real service does: over the wire
// form of the query, not the ordered parameter list.
func hexSum(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// newService starts a fake conferencing service that verifies the checksum of
// every request before answering with the configured body per action.
func newService(t *testing.T, bodies map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		action := strings.TrimPrefix(r.URL.Path, "/")
		raw := r.URL.RawQuery
		idx := strings.LastIndex(raw, "&checksum=")
		if idx < 0 {
			t.Errorf("%s: missing checksum parameter", action)
			http.Error(w, "missing checksum", http.StatusForbidden)
			return
		}
		query, checksum := raw[:idx], raw[idx+len("&checksum="):]
		if want := hexSum(action + query + testSecret); checksum != want {
			t.Errorf("%s: checksum mismatch: got %s want %s", action, checksum, want)
			http.Error(w, "checksum mismatch", http.StatusForbidden)
			return
		}
		body, ok := bodies[action]
		if !ok {
			t.Errorf("unexpected action %s", action)
			http.Error(w, "unexpected", http.StatusNotFound)
			return
		}
		fmt.Fprint(w, body)
	}))
}

func TestClient_GetLivePresence(t *testing.T) {
	t.Run("running meeting with attendees", func(t *testing.T) {
		srv := newService(t, map[string]string{
			"getMeetingInfo": `<response><returncode>SUCCESS</returncode><running>true</running>
				<attendees>
					<attendee><userID>u1</userID><isListeningOnly>false</isListeningOnly><hasJoinedVoiceConnection>true</hasJoinedVoiceConnection><hasVideo>false</hasVideo></attendee>
					<attendee><userID>u2</userID><isListeningOnly>false</isListeningOnly><hasJoinedVoiceConnection>false</hasJoinedVoiceConnection><hasVideo>false</hasVideo></attendee>
				</attendees></response>`,
		})
		defer srv.Close()

		c := NewClient(srv.URL, testSecret, time.Second, nil)
		attendees, running, err := c.GetLivePresence(context.Background(), "room-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !running {
			t.Fatal("expected running meeting")
		}
		if len(attendees) != 2 {
			t.Fatalf("expected 2 attendees, got %d", len(attendees))
		}
		if !attendees[0].Participating() {
			t.Fatal("u1 has voice, should participate")
		}
		if attendees[1].Participating() {
			t.Fatal("u2 has no media flags, should not participate")
		}
	})

	t.Run("not running short-circuits to empty", func(t *testing.T) {
		srv := newService(t, map[string]string{
			"getMeetingInfo": `<response><returncode>SUCCESS</returncode><running>false</running></response>`,
		})
		defer srv.Close()

		c := NewClient(srv.URL, testSecret, time.Second, nil)
		attendees, running, err := c.GetLivePresence(context.Background(), "room-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if running || len(attendees) != 0 {
			t.Fatalf("expected not running with no attendees, got running=%v n=%d", running, len(attendees))
		}
	})

	t.Run("failure status surfaces as upstream error", func(t *testing.T) {
		srv := newService(t, map[string]string{
			"getMeetingInfo": `<response><returncode>FAILED</returncode><messageKey>notFound</messageKey><message>notFound</message></response>`,
		})
		defer srv.Close()

		c := NewClient(srv.URL, testSecret, time.Second, nil)
		_, _, err := c.GetLivePresence(context.Background(), "room-1")
		var ue *UpstreamError
		if !errors.As(err, &ue) {
			t.Fatalf("expected UpstreamError, got %v", err)
		}
		if ue.Message != "notFound" {
			t.Fatalf("expected service message, got %q", ue.Message)
		}
	})

	t.Run("timeout surfaces as upstream error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
		defer srv.Close()

		c := NewClient(srv.URL, testSecret, 20*time.Millisecond, nil)
		_, _, err := c.GetLivePresence(context.Background(), "room-1")
		var ue *UpstreamError
		if !errors.As(err, &ue) {
			t.Fatalf("expected UpstreamError on timeout, got %v", err)
		}
	})
}

func TestClient_IsRunning(t *testing.T) {
	srv := newService(t, map[string]string{
		"isMeetingRunning": `<response><returncode>SUCCESS</returncode><running>true</running></response>`,
	})
	defer srv.Close()

	c := NewClient(srv.URL, testSecret, time.Second, nil)
	running, err := c.IsRunning(context.Background(), "room-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !running {
		t.Fatal("expected running=true")
	}
}

func TestClient_CreateMeeting(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		srv := newService(t, map[string]string{
			"create": `<response><returncode>SUCCESS</returncode></response>`,
		})
		defer srv.Close()

		c := NewClient(srv.URL, testSecret, time.Second, nil)
		if err := c.CreateMeeting(context.Background(), "Expo Room", "room-1", "modpw", "attpw"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("duplicate meeting id is success", func(t *testing.T) {
		srv := newService(t, map[string]string{
			"create": `<response><returncode>FAILED</returncode><messageKey>idNotUnique</messageKey><message>meeting already exists</message></response>`,
		})
		defer srv.Close()

		c := NewClient(srv.URL, testSecret, time.Second, nil)
		if err := c.CreateMeeting(context.Background(), "Expo Room", "room-1", "modpw", "attpw"); err != nil {
			t.Fatalf("expected idempotent success, got %v", err)
		}
	})

	t.Run("other failure propagates", func(t *testing.T) {
		srv := newService(t, map[string]string{
			"create": `<response><returncode>FAILED</returncode><message>quota exceeded</message></response>`,
		})
		defer srv.Close()

		c := NewClient(srv.URL, testSecret, time.Second, nil)
		err := c.CreateMeeting(context.Background(), "Expo Room", "room-1", "modpw", "attpw")
		var ue *UpstreamError
		if !errors.As(err, &ue) || ue.Message != "quota exceeded" {
			t.Fatalf("expected upstream quota error, got %v", err)
		}
	})
}

func TestClient_EndMeeting(t *testing.T) {
	srv := newService(t, map[string]string{
		"end": `<response><returncode>SUCCESS</returncode></response>`,
	})
	defer srv.Close()

	c := NewClient(srv.URL, testSecret, time.Second, nil)
	if err := c.EndMeeting(context.Background(), "room-1", "modpw"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestClient_JoinURL(t *testing.T) {
	c := NewClient("http://conf.example/api", testSecret, time.Second, nil)
	u := c.JoinURL("room-1", "Ada Lovelace", "u1", "attendee", "attpw")
	if !strings.HasPrefix(u, "http://conf.example/api/join?") {
		t.Fatalf("unexpected URL prefix: %s", u)
	}
	parsed, err := url.Parse(u)
	if err != nil {
		t.Fatalf("join URL does not parse: %v", err)
	}
	q := parsed.Query()
	if q.Get("fullName") != "Ada Lovelace" || q.Get("meetingID") != "room-1" {
		t.Fatalf("missing parameters in %s", u)
	}
	raw := parsed.RawQuery
	idx := strings.LastIndex(raw, "&checksum=")
	want := hexSum("join" + raw[:idx] + testSecret)
	if q.Get("checksum") != want {
		t.Fatalf("checksum does not cover the raw query: got %s want %s", q.Get("checksum"), want)
	}
}

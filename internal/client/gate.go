package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/dkeye/Meet/internal/app"
)

// AccessCheck is the REST pre-flight before dialing the signaling socket. It
// also harvests the client-token cookie the registry issues, which the
// websocket dial must carry so both channels share one participant id.
type AccessCheck struct {
	Verdict app.Verdict
	Header  http.Header
}

func CheckAccess(ctx context.Context, serverURL, meetingID string) (AccessCheck, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return AccessCheck{}, err
	}
	hc := &http.Client{Jar: jar, Timeout: 10 * time.Second}

	endpoint := strings.TrimRight(serverURL, "/") + "/api/meetings/" + url.PathEscape(meetingID) + "/access"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return AccessCheck{}, err
	}
	resp, err := hc.Do(req)
	if err != nil {
		return AccessCheck{}, fmt.Errorf("access check: %w", err)
	}
	defer resp.Body.Close()

	var payload struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return AccessCheck{}, fmt.Errorf("access check decode: %w", err)
	}

	header := http.Header{}
	base, err := url.Parse(serverURL)
	if err == nil {
		cookies := jar.Cookies(base)
		pairs := make([]string, 0, len(cookies))
		for _, c := range cookies {
			pairs = append(pairs, c.Name+"="+c.Value)
		}
		if len(pairs) > 0 {
			header.Set("Cookie", strings.Join(pairs, "; "))
		}
	}

	return AccessCheck{Verdict: app.Verdict(payload.Status), Header: header}, nil
}

// SignalURL converts the REST base into the websocket signaling endpoint.
func SignalURL(serverURL string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/api/ws/signal"
	return u.String(), nil
}

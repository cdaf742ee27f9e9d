// SensorShell - client-side telemetry relay
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package transport implements the stateless HTTP wrapper around the
// ingestion server's three endpoints, grounded on the teacher's
// TautulliClient request/response pattern (net/http + context, errors
// classified from the HTTP status code).
package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hackystat-go/sensorshell/internal/model"
	"github.com/hackystat-go/sensorshell/internal/shellerr"
)

// PingTimeout is the hardcoded liveness-check deadline; it is never
// overridden by the configured Timeout.
const PingTimeout = 5 * time.Second

const maxErrorBodySize = 64 * 1024

// ServerClient is a stateless HTTP wrapper over the ingestion API. It
// holds no mutable state beyond its *http.Client, so one instance is
// safe to share between a shell and its recovery helper.
type ServerClient struct {
	host     string
	user     string
	password string
	timeout  time.Duration
	client   *http.Client
}

// New builds a ServerClient against host using the given credentials and
// per-call timeout (applied to IsRegistered and PutBatch; Ping always
// uses the hardcoded PingTimeout instead).
func New(host, user, password string, timeout time.Duration) *ServerClient {
	return &ServerClient{
		host:     host,
		user:     user,
		password: password,
		timeout:  timeout,
		client:   &http.Client{},
	}
}

// Ping reports whether GET host/ping responds with an HTTP 2xx within
// PingTimeout. Any error, including timeout, is treated as unreachable.
func (c *ServerClient) Ping(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, PingTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.host+"ping", http.NoBody)
	if err != nil {
		return false
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// IsRegistered verifies that the configured credentials resolve to a
// registered user at host.
func (c *ServerClient) IsRegistered(ctx context.Context) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	url := c.host + "users/" + c.user
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return false, fmt.Errorf("%w: build request: %v", shellerr.ErrNetwork, err)
	}
	req.SetBasicAuth(c.user, c.password)

	resp, err := c.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("%w: %v", shellerr.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return true, nil
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return false, nil
	}
	return false, classifyStatus(resp)
}

// PutBatch PUTs the XML-serialized batch to host/sensordata. A 201
// response is success; any other status is classified into the
// matching shellerr sentinel.
func (c *ServerClient) PutBatch(ctx context.Context, batch model.Batch) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := model.MarshalXML(batch)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.host+"sensordata", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: build request: %v", shellerr.ErrNetwork, err)
	}
	req.Header.Set("Content-Type", "application/xml")
	req.SetBasicAuth(c.user, c.password)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shellerr.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusCreated {
		return nil
	}
	return classifyStatus(resp)
}

// classifyStatus maps a non-success response into the matching
// shellerr sentinel, including a snippet of the response body.
func classifyStatus(resp *http.Response) error {
	body := readBodyForError(resp.Body)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: status %d: %s", shellerr.ErrAuth, resp.StatusCode, body)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d: %s", shellerr.ErrServer, resp.StatusCode, body)
	case resp.StatusCode >= 400:
		return fmt.Errorf("%w: status %d: %s", shellerr.ErrBadRequest, resp.StatusCode, body)
	default:
		return fmt.Errorf("%w: unexpected status %d: %s", shellerr.ErrServer, resp.StatusCode, body)
	}
}

func readBodyForError(r io.Reader) string {
	limited := io.LimitReader(r, maxErrorBodySize)
	data, err := io.ReadAll(limited)
	if err != nil {
		return "(failed to read response body)"
	}
	return strings.TrimSpace(string(data))
}

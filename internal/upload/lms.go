package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/CDrummond/bliss-analyser/internal/services"
)

const (
	// CommandStartUpload asks the plugin to open its upload port.
	CommandStartUpload = "start-upload"
	// CommandStop asks the plugin to stop the mixer.
	CommandStop = "stop"

	pluginName = "blissmixer"
)

// Transport moves files to the mixer and sends it control commands.
type Transport interface {
	Send(ctx context.Context, dest Destination, file string) error
	Signal(ctx context.Context, dest Destination, command string) error
}

// LMS talks to the mixer plugin through a Lyrion Music Server.
type LMS struct {
	client *http.Client
}

// NewLMS returns a transport whose requests time out after timeout. A zero
// timeout disables the limit.
func NewLMS(timeout time.Duration) *LMS {
	return &LMS{client: &http.Client{Timeout: timeout}}
}

type rpcRequest struct {
	ID     int    `json:"id"`
	Method string `json:"method"`
	Params []any  `json:"params"`
}

// Signal sends a plugin command.
func (l *LMS) Signal(ctx context.Context, dest Destination, command string) error {
	_, err := l.call(ctx, dest, command)
	return err
}

// Send asks the plugin for an upload port and PUTs file to it.
func (l *LMS) Send(ctx context.Context, dest Destination, file string) error {
	body, err := l.call(ctx, dest, CommandStartUpload)
	if err != nil {
		return err
	}
	port, err := uploadPort(body)
	if err != nil {
		return err
	}

	f, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("open upload file: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat upload file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, dest.UploadURL(port), f)
	if err != nil {
		return fmt.Errorf("build upload request: %w", err)
	}
	req.ContentLength = info.Size()
	req.Header.Set("Content-Type", "application/octet-stream")
	if dest.HasCredentials() {
		req.SetBasicAuth(dest.User, dest.Password)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransport, "upload", "put", dest.UploadURL(port), err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= http.StatusMultipleChoices {
		return services.Wrap(services.ErrTransport, "upload", "put", fmt.Sprintf("status %s", resp.Status), nil)
	}
	return nil
}

func (l *LMS) call(ctx context.Context, dest Destination, command string) ([]byte, error) {
	payload, err := json.Marshal(rpcRequest{
		ID:     1,
		Method: "slim.request",
		Params: []any{"", []string{pluginName, command}},
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, dest.JSONRPCURL(), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if dest.HasCredentials() {
		req.SetBasicAuth(dest.User, dest.Password)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransport, "upload", command, dest.String(), err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, services.Wrap(services.ErrTransport, "upload", command, "read response", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		detail := fmt.Sprintf("status %s", resp.Status)
		if text := strings.TrimSpace(string(body)); text != "" {
			detail += ": " + text
		}
		return nil, services.Wrap(services.ErrTransport, "upload", command, detail, nil)
	}
	return body, nil
}

func uploadPort(body []byte) (int, error) {
	value := gjson.GetBytes(body, "result.port")
	if !value.Exists() {
		value = gjson.GetBytes(body, "port")
	}
	if !value.Exists() {
		return 0, fmt.Errorf("%w: mixer did not report an upload port", services.ErrTransport)
	}
	port, err := strconv.Atoi(strings.TrimSpace(value.String()))
	if err != nil || port <= 0 || port > 65535 {
		return 0, fmt.Errorf("%w: invalid upload port %q", services.ErrTransport, value.String())
	}
	return port, nil
}

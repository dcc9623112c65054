package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Beijizb/obsidian-image-beiji/internal/config"
	"github.com/Beijizb/obsidian-image-beiji/internal/imaging"
	"github.com/Beijizb/obsidian-image-beiji/internal/logging"
)

// UploadPath is appended to the configured domain.
const UploadPath = "/upload"

// MaxResponseBytes bounds how much of a response body is read.
const MaxResponseBytes = 1 << 20

const genericFailure = "upload failed"

// Client uploads assets to the remote image store.
type Client struct {
	http *http.Client
	log  *logrus.Entry
}

// NewClient returns a Client. A nil httpClient uses a fresh http.Client;
// the per-request timeout always comes from the configuration.
func NewClient(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		http: httpClient,
		log:  logging.For("publish"),
	}
}

// Upload sends asset in a single POST and returns its public URL.
//
// Failures are reported as *UploadError (transport, timeout, non-2xx) or
// *ResponseShapeError (2xx with an unexpected body). Upload never retries.
func (c *Client) Upload(ctx context.Context, asset *imaging.Asset, cfg config.Config) (string, error) {
	body, contentType, err := encodeMultipart(asset)
	if err != nil {
		return "", &UploadError{Message: err.Error(), Err: err}
	}

	timeout := cfg.UploadTimeout
	if timeout <= 0 {
		timeout = config.DefaultUploadTimeoutMs * time.Millisecond
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	target := UploadURL(cfg)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, body)
	if err != nil {
		return "", &UploadError{Message: err.Error(), Err: err}
	}
	req.Header.Set("Content-Type", contentType)

	entry := c.log.WithFields(logrus.Fields{
		"name":    asset.Name,
		"channel": cfg.UploadChannel,
	})
	entry.Debug("uploading image")

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", &UploadError{
				Message: fmt.Sprintf("upload timed out after %dms", timeout.Milliseconds()),
				Err:     err,
			}
		}
		return "", &UploadError{Message: transportMessage(err), Err: err}
	}
	defer resp.Body.Close()

	data, readErr := readAllWithLimit(resp.Body, MaxResponseBytes)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		ue := &UploadError{StatusCode: resp.StatusCode, Message: failureMessage(resp.StatusCode, data, readErr)}
		entry.WithField("status", resp.StatusCode).Warn(ue.Message)
		return "", ue
	}
	if readErr != nil {
		return "", &UploadError{StatusCode: resp.StatusCode, Message: transportMessage(readErr), Err: readErr}
	}

	src, err := parseSource(data)
	if err != nil {
		return "", err
	}
	return JoinURL(cfg.Domain, src), nil
}

// UploadURL builds the upload target for cfg. Query parameters keep the
// order the image store documents; uploadFolder is omitted when blank.
func UploadURL(cfg config.Config) string {
	var q strings.Builder
	param := func(key, value string) {
		if q.Len() > 0 {
			q.WriteByte('&')
		}
		q.WriteString(key)
		q.WriteByte('=')
		q.WriteString(url.QueryEscape(value))
	}

	param("authCode", cfg.AuthCode)
	param("serverCompress", strconv.FormatBool(cfg.ServerCompress))
	param("uploadChannel", cfg.UploadChannel)
	param("returnFormat", cfg.ReturnFormat)
	param("autoRetry", "true")
	if folder := strings.TrimSpace(cfg.UploadFolder); folder != "" {
		param("uploadFolder", folder)
	}

	return strings.TrimRight(cfg.Domain, "/") + UploadPath + "?" + q.String()
}

// JoinURL prefixes a store-relative src with domain.
func JoinURL(domain, src string) string {
	domain = strings.TrimRight(domain, "/")
	if !strings.HasPrefix(src, "/") {
		src = "/" + src
	}
	return domain + src
}

func encodeMultipart(asset *imaging.Asset) (io.Reader, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(asset.Name)))
	contentType := asset.MimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)

	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form file: %w", err)
	}

	if asset.Data != nil || asset.Path == "" {
		if _, err := part.Write(asset.Data); err != nil {
			return nil, "", fmt.Errorf("failed to copy file data: %w", err)
		}
	} else {
		f, err := os.Open(asset.Path)
		if err != nil {
			return nil, "", fmt.Errorf("failed to open file: %w", err)
		}
		defer f.Close()
		if _, err := io.Copy(part, f); err != nil {
			return nil, "", fmt.Errorf("failed to copy file data: %w", err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finish form: %w", err)
	}
	return &buf, writer.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

// parseSource extracts src from a body shaped like [{"src": "/file/x"}].
func parseSource(data []byte) (string, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return "", &ResponseShapeError{Reason: "response is not a JSON array", Body: snippet(data)}
	}
	if len(items) == 0 {
		return "", &ResponseShapeError{Reason: "response array is empty", Body: snippet(data)}
	}

	var first struct {
		Src *string `json:"src"`
	}
	if err := json.Unmarshal(items[0], &first); err != nil || first.Src == nil || *first.Src == "" {
		return "", &ResponseShapeError{Reason: "first element has no src", Body: snippet(data)}
	}
	return *first.Src, nil
}

// failureMessage applies the message precedence for non-2xx responses:
// server message, then status text, then read error, then a generic text.
func failureMessage(status int, body []byte, readErr error) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && strings.TrimSpace(payload.Message) != "" {
		return payload.Message
	}
	if text := http.StatusText(status); text != "" {
		return text
	}
	if readErr != nil && readErr.Error() != "" {
		return readErr.Error()
	}
	return genericFailure
}

// transportMessage drops the request URL from url.Error so the auth code
// never reaches a notice or a log line.
func transportMessage(err error) string {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		err = urlErr.Err
	}
	if err == nil || err.Error() == "" {
		return genericFailure
	}
	return err.Error()
}

func snippet(data []byte) string {
	const max = 200
	s := strings.TrimSpace(string(data))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}

// readAllWithLimit reads r up to limit bytes.
func readAllWithLimit(r io.Reader, limit int64) ([]byte, error) {
	lr := &io.LimitedReader{R: r, N: limit + 1}
	data, err := io.ReadAll(lr)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("response body exceeded limit of %d bytes", limit)
	}
	return data, nil
}

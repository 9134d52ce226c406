// Package storage uploads chat image attachments to a Supabase storage
// bucket and hands back their public URLs.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strings"
	"time"
)

const (
	defaultBucket = "chat-images"
	uploadTimeout = 15 * time.Second
)

// Client talks to the Supabase storage HTTP API with a service-role key.
type Client struct {
	baseURL    string
	serviceKey string
	bucket     string
	httpClient *http.Client
}

// NewClient creates a storage client for the given Supabase project URL.
// A nil httpClient gets a 15s-timeout default.
func NewClient(baseURL, serviceKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: uploadTimeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		serviceKey: serviceKey,
		bucket:     defaultBucket,
		httpClient: httpClient,
	}
}

// UploadImage uploads one object and returns its public URL. objectPath is
// relative to the bucket root, e.g. "<userID>/<timestamp>_<filename>".
func (c *Client) UploadImage(ctx context.Context, objectPath string, data []byte, contentType string) (string, error) {
	uploadURL := fmt.Sprintf("%s/storage/v1/object/%s/%s", c.baseURL, c.bucket, objectPath)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to build storage upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("storage upload request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		log.Printf("ERROR [StorageClient] Upload of %s returned status %d: %s", objectPath, resp.StatusCode, strings.TrimSpace(string(snippet)))
		return "", fmt.Errorf("storage upload returned status %d", resp.StatusCode)
	}

	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", c.baseURL, c.bucket, objectPath), nil
}

// SanitizeFilename strips any path components and replaces characters that
// are unsafe in object keys.
func SanitizeFilename(name string) string {
	name = filepath.Base(name)
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "file"
	}
	return b.String()
}

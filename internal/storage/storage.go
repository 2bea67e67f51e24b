// Package storage persists order attachments to Supabase object storage.
package storage

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	storage "github.com/supabase-community/storage-go"

	"github.com/noah-isme/backend-printhub/internal/obs"
)

// Uploader is the surface the order workflow depends on. Files are stored
// before the order row is written; a failed upload fails the checkout.
type Uploader interface {
	Upload(path, contentType string, r io.Reader) (string, error)
	Download(path string) ([]byte, error)
	Remove(paths []string) error
}

// Client wraps the Supabase storage API for one bucket.
type Client struct {
	client  *storage.Client
	bucket  string
	baseURL string
}

func NewClient(supabaseURL, serviceKey, bucket string) *Client {
	baseURL := strings.TrimRight(supabaseURL, "/")
	return &Client{
		client:  storage.NewClient(baseURL+"/storage/v1", serviceKey, nil),
		bucket:  bucket,
		baseURL: baseURL,
	}
}

// Upload stores the content at path and returns a retrievable URL.
func (c *Client) Upload(path, contentType string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	upsert := false
	if _, err := c.client.UploadFile(c.bucket, path, bytes.NewReader(data), storage.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	}); err != nil {
		return "", fmt.Errorf("upload %s: %w", path, err)
	}
	if obs.UploadBytesTotal != nil {
		obs.UploadBytesTotal.Add(float64(len(data)))
	}
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", c.baseURL, c.bucket, path), nil
}

// Download fetches stored content, used by the print preview endpoint.
func (c *Client) Download(path string) ([]byte, error) {
	data, err := c.client.DownloadFile(c.bucket, path)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", path, err)
	}
	return data, nil
}

// Remove deletes stored objects, used to roll back after a failed checkout.
func (c *Client) Remove(paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	if _, err := c.client.RemoveFile(c.bucket, paths); err != nil {
		return fmt.Errorf("remove files: %w", err)
	}
	return nil
}

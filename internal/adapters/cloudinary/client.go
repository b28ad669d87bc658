package cloudinary

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"gatherhub/internal/domain"
)

const defaultBaseURL = "https://api.cloudinary.com"

// Client talks to the Cloudinary upload API with signed requests. It
// implements domain.ImageService.
type Client struct {
	cloudName string
	apiKey    string
	apiSecret string
	baseURL   string
	client    *http.Client
	now       func() time.Time
}

// NewClient returns a Cloudinary client for the given account. A nil
// httpClient falls back to http.DefaultClient.
func NewClient(cloudName, apiKey, apiSecret string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		cloudName: cloudName,
		apiKey:    apiKey,
		apiSecret: apiSecret,
		baseURL:   defaultBaseURL,
		client:    httpClient,
		now:       time.Now,
	}
}

type uploadResponse struct {
	SecureURL string `json:"secure_url"`
	PublicID  string `json:"public_id"`
}

// Upload stores a base64 data-URI image under the given folder and returns
// its public URL. An empty payload is a no-op.
func (c *Client) Upload(ctx context.Context, rawImage, folder string) (string, error) {
	if rawImage == "" {
		return "", nil
	}
	timestamp := strconv.FormatInt(c.now().Unix(), 10)
	form := url.Values{}
	form.Set("file", rawImage)
	form.Set("folder", folder)
	form.Set("timestamp", timestamp)
	form.Set("api_key", c.apiKey)
	form.Set("signature", c.sign(map[string]string{
		"folder":    folder,
		"timestamp": timestamp,
	}))

	endpoint := fmt.Sprintf("%s/v1_1/%s/image/upload", c.baseURL, c.cloudName)
	var res uploadResponse
	if err := c.postForm(ctx, endpoint, form, &res); err != nil {
		return "", err
	}
	return res.SecureURL, nil
}

// Delete removes a previously uploaded image by its delivery URL.
func (c *Client) Delete(ctx context.Context, imageURL string) error {
	publicID, err := publicIDFromURL(imageURL)
	if err != nil {
		return err
	}
	timestamp := strconv.FormatInt(c.now().Unix(), 10)
	form := url.Values{}
	form.Set("public_id", publicID)
	form.Set("timestamp", timestamp)
	form.Set("api_key", c.apiKey)
	form.Set("signature", c.sign(map[string]string{
		"public_id": publicID,
		"timestamp": timestamp,
	}))

	endpoint := fmt.Sprintf("%s/v1_1/%s/image/destroy", c.baseURL, c.cloudName)
	return c.postForm(ctx, endpoint, form, &struct{}{})
}

func (c *Client) postForm(ctx context.Context, endpoint string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call cloudinary: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("cloudinary api returned status: %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode cloudinary response: %w", err)
	}
	return nil
}

// sign builds the request signature: the sorted key=value pairs joined with
// '&', concatenated with the API secret and hashed with SHA-1.
func (c *Client) sign(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}
	sum := sha1.Sum([]byte(strings.Join(pairs, "&") + c.apiSecret))
	return hex.EncodeToString(sum[:])
}

// publicIDFromURL recovers the public id from a delivery URL such as
// https://res.cloudinary.com/demo/image/upload/v123/event_covers/abc.png.
func publicIDFromURL(imageURL string) (string, error) {
	u, err := url.Parse(imageURL)
	if err != nil {
		return "", fmt.Errorf("invalid image url: %w", err)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, p := range parts {
		if p == "upload" && i+1 < len(parts) {
			rest := parts[i+1:]
			// Skip the version segment if present.
			if len(rest) > 1 && strings.HasPrefix(rest[0], "v") {
				if _, err := strconv.Atoi(rest[0][1:]); err == nil {
					rest = rest[1:]
				}
			}
			id := strings.Join(rest, "/")
			return strings.TrimSuffix(id, path.Ext(id)), nil
		}
	}
	return "", fmt.Errorf("invalid image url: %s", imageURL)
}

var _ domain.ImageService = (*Client)(nil)

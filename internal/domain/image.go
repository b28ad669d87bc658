package domain

import "context"

// ImageService stores raw image payloads with an external provider and
// returns a public URL. Upload must complete before the owning row is
// written; Delete is best-effort and must never fail a surrounding mutation.
type ImageService interface {
	// Upload stores rawImage (a base64 data URI) under the given folder and
	// returns the public URL. An empty rawImage returns "" without error.
	Upload(ctx context.Context, rawImage, folder string) (string, error)
	// Delete removes a previously uploaded image identified by its URL.
	Delete(ctx context.Context, url string) error
}

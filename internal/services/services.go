// Package services implements the upload pipeline and the stateless query
// operations (search, summarize, chat) on top of the request dispatcher.
package services

import (
	"context"

	"github.com/devjadaun/documind-go/internal/transport"
)

// Backend API surface consumed by the client.
const (
	pathDocuments = "/api/v1/documents"
	pathSearch    = "/api/v1/documents/search"
	pathSummarize = "/api/v1/documents/summarize"
	pathUpload    = "/api/v1/documents/upload"
	pathChat      = "/api/v1/chat"
)

// Dispatcher is the slice of the request dispatcher the services need.
type Dispatcher interface {
	GetJSON(ctx context.Context, path string, out any) error
	PostJSON(ctx context.Context, path string, in, out any) error
	Upload(ctx context.Context, up transport.UploadRequest, out any) error
}

package services

import (
	"context"
	"errors"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/devjadaun/documind-go/internal/models"
	"github.com/devjadaun/documind-go/internal/transport"
)

// ErrNotPDF is the client-side validation rejection: the file's declared
// type is checked before any network call is made.
var ErrNotPDF = errors.New("only PDF files are accepted")

// UploadFile describes the file handed to the upload pipeline.
type UploadFile struct {
	Name        string
	ContentType string
	Size        int64 // declared size; <= 0 means unknown
	Body        io.Reader
}

// UploadError is an upload failure after classification: Message prefers the
// server-supplied detail, falling back to the transport error text. The
// underlying error stays reachable through Unwrap.
type UploadError struct {
	Message string
	Err     error
}

func (e *UploadError) Error() string { return e.Message }
func (e *UploadError) Unwrap() error { return e.Err }

// DocumentService lists documents and runs the upload pipeline.
type DocumentService struct {
	api     Dispatcher
	refresh func(ctx context.Context) error
	log     *zap.Logger
}

func NewDocumentService(api Dispatcher, log *zap.Logger) *DocumentService {
	if log == nil {
		log = zap.NewNop()
	}
	return &DocumentService{api: api, log: log}
}

// SetRefreshHook installs the document-list refresh invoked after each
// successful upload, before the upload result is delivered to the caller.
func (s *DocumentService) SetRefreshHook(fn func(ctx context.Context) error) {
	s.refresh = fn
}

// List fetches the full document collection for the authenticated user.
func (s *DocumentService) List(ctx context.Context) ([]models.Document, error) {
	var docs []models.Document
	if err := s.api.GetJSON(ctx, pathDocuments, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// Upload validates the file, streams it as multipart form data with
// byte-level progress, and on acknowledgment triggers exactly one
// document-list refresh before returning. Failures are classified and
// returned, never swallowed.
func (s *DocumentService) Upload(ctx context.Context, file UploadFile, onProgress func(percent int)) (*models.Document, error) {
	if !strings.Contains(strings.ToLower(file.ContentType), "pdf") {
		return nil, ErrNotPDF
	}

	var doc models.Document
	err := s.api.Upload(ctx, transport.UploadRequest{
		Path:        pathUpload,
		FieldName:   "file",
		FileName:    file.Name,
		ContentType: file.ContentType,
		Size:        file.Size,
		Body:        file.Body,
		OnProgress:  onProgress,
	}, &doc)
	if err != nil {
		return nil, &UploadError{Message: "Upload failed: " + transport.Detail(err), Err: err}
	}

	// The refreshed list may not yet contain the new document if the server
	// has not indexed it; there is no push channel, so that staleness is
	// accepted.
	if s.refresh != nil {
		if err := s.refresh(ctx); err != nil {
			s.log.Warn("document refresh after upload failed", zap.Error(err))
		}
	}
	return &doc, nil
}

// Package firestore implements store.Catalog using the Cloud Firestore REST API.
package firestore

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	firestore "google.golang.org/api/firestore/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"moviecat/internal/config"
	"moviecat/internal/store"
)

const (
	// PageSize is the number of documents per list page.
	PageSize = 300

	// APITimeout is the timeout for single-document API calls.
	APITimeout = 5 * time.Second

	// ListTimeout bounds a full collection scan.
	ListTimeout = 60 * time.Second

	// OAuth scope for Cloud Firestore
	datastoreScope = "https://www.googleapis.com/auth/datastore"
)

// Document field names.
const (
	fieldTitle       = "title"
	fieldLink        = "link"
	fieldImage       = "imageUrl"
	fieldPosition    = "position"
	fieldCreatedDate = "created_date"
)

// Client implements store.Catalog and store.VersionedStore.
type Client struct {
	docs       *firestore.ProjectsDatabasesDocumentsService
	parent     string
	collection string
}

// Scopes returns the OAuth scopes the client needs.
func Scopes() []string {
	return []string{datastoreScope}
}

// New creates a new Firestore client.
// Unless an endpoint is configured, requires oauth_client.json and
// token.json to exist.
func New(ctx context.Context, cfg *config.Config) (*Client, error) {
	if cfg.Firestore.Endpoint != "" {
		return newClient(ctx, cfg.Firestore,
			option.WithEndpoint(cfg.Firestore.Endpoint),
			option.WithoutAuthentication())
	}

	ts, err := TokenSource(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrUnauthorized, err)
	}
	return newClient(ctx, cfg.Firestore, option.WithHTTPClient(oauth2.NewClient(ctx, ts)))
}

// NewWithHTTPClient creates a client with a custom HTTP client (for testing).
func NewWithHTTPClient(ctx context.Context, httpClient *http.Client, fc config.FirestoreConfig) (*Client, error) {
	opts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if fc.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(fc.Endpoint))
	}
	return newClient(ctx, fc, opts...)
}

func newClient(ctx context.Context, fc config.FirestoreConfig, opts ...option.ClientOption) (*Client, error) {
	svc, err := firestore.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore service: %w", err)
	}
	database := fc.Database
	if database == "" {
		database = "(default)"
	}
	return &Client{
		docs:       svc.Projects.Databases.Documents,
		parent:     fmt.Sprintf("projects/%s/databases/%s/documents", fc.Project, database),
		collection: fc.Collection,
	}, nil
}

// Close implements store.Catalog. The REST client holds no resources.
func (c *Client) Close() error { return nil }

// ListAll implements store.Store.
func (c *Client) ListAll(ctx context.Context) ([]store.Movie, error) {
	ctx, cancel := context.WithTimeout(ctx, ListTimeout)
	defer cancel()

	var result []store.Movie
	err := c.docs.List(c.parent, c.collection).
		PageSize(PageSize).
		Pages(ctx, func(resp *firestore.ListDocumentsResponse) error {
			for _, doc := range resp.Documents {
				result = append(result, decodeMovie(doc))
			}
			return nil
		})
	if err != nil {
		return nil, wrapError(err)
	}
	return result, nil
}

// UpdatePosition implements store.Store.
func (c *Client) UpdatePosition(ctx context.Context, id string, position int) error {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	_, err := c.docs.Patch(c.name(id), positionDoc(position)).
		UpdateMaskFieldPaths(fieldPosition).
		CurrentDocumentExists(true).
		Context(ctx).
		Do()
	return wrapError(err)
}

// UpdatePositionIfUnchanged implements store.VersionedStore. The version is
// the document update time observed by ListAll or Get.
func (c *Client) UpdatePositionIfUnchanged(ctx context.Context, id string, position int, version string) error {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	_, err := c.docs.Patch(c.name(id), positionDoc(position)).
		UpdateMaskFieldPaths(fieldPosition).
		CurrentDocumentUpdateTime(version).
		Context(ctx).
		Do()
	return wrapError(err)
}

// Get implements store.Catalog.
func (c *Client) Get(ctx context.Context, id string) (store.Movie, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	doc, err := c.docs.Get(c.name(id)).Context(ctx).Do()
	if err != nil {
		return store.Movie{}, wrapError(err)
	}
	return decodeMovie(doc), nil
}

// Create implements store.Catalog.
func (c *Client) Create(ctx context.Context, m store.Movie) (store.Movie, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	doc, err := c.docs.CreateDocument(c.parent, c.collection, encodeMovie(m)).
		DocumentId(uuid.NewString()).
		Context(ctx).
		Do()
	if err != nil {
		return store.Movie{}, wrapError(err)
	}
	return decodeMovie(doc), nil
}

// Update implements store.Catalog. Only the payload fields are written.
func (c *Client) Update(ctx context.Context, m store.Movie) error {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	doc := encodeMovie(m)
	delete(doc.Fields, fieldPosition)

	_, err := c.docs.Patch(c.name(m.ID), doc).
		UpdateMaskFieldPaths(fieldTitle, fieldLink, fieldImage, fieldCreatedDate).
		CurrentDocumentExists(true).
		Context(ctx).
		Do()
	return wrapError(err)
}

// Delete implements store.Catalog.
func (c *Client) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	_, err := c.docs.Delete(c.name(id)).
		CurrentDocumentExists(true).
		Context(ctx).
		Do()
	return wrapError(err)
}

func (c *Client) name(id string) string {
	return c.parent + "/" + c.collection + "/" + id
}

func positionDoc(position int) *firestore.Document {
	return &firestore.Document{
		Fields: map[string]firestore.Value{
			fieldPosition: intValue(position),
		},
	}
}

func intValue(n int) firestore.Value {
	return firestore.Value{IntegerValue: int64(n), ForceSendFields: []string{"IntegerValue"}}
}

func encodeMovie(m store.Movie) *firestore.Document {
	return &firestore.Document{
		Fields: map[string]firestore.Value{
			fieldTitle:       {StringValue: m.Title, ForceSendFields: []string{"StringValue"}},
			fieldLink:        {StringValue: m.Link, ForceSendFields: []string{"StringValue"}},
			fieldImage:       {StringValue: m.Image, ForceSendFields: []string{"StringValue"}},
			fieldPosition:    intValue(m.Position),
			fieldCreatedDate: {StringValue: m.CreatedDate, ForceSendFields: []string{"StringValue"}},
		},
	}
}

func decodeMovie(doc *firestore.Document) store.Movie {
	return store.Movie{
		ID:          path.Base(doc.Name),
		Title:       doc.Fields[fieldTitle].StringValue,
		Link:        doc.Fields[fieldLink].StringValue,
		Image:       doc.Fields[fieldImage].StringValue,
		Position:    decodePosition(doc.Fields[fieldPosition]),
		CreatedDate: decodeDate(doc.Fields[fieldCreatedDate]),
		Version:     doc.UpdateTime,
	}
}

// decodePosition accepts integer and whole double values. Anything else
// decodes as 0, which the audit reports as invalid.
func decodePosition(v firestore.Value) int {
	switch {
	case v.IntegerValue != 0:
		return int(v.IntegerValue)
	case v.DoubleValue != 0 && v.DoubleValue == float64(int64(v.DoubleValue)):
		return int(v.DoubleValue)
	}
	return 0
}

func decodeDate(v firestore.Value) string {
	if v.TimestampValue != "" {
		return v.TimestampValue
	}
	return v.StringValue
}

// wrapError maps API errors to store errors with user-friendly messages.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	// Check for timeout
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("request timed out")
	}

	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return err
	}

	switch gerr.Code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: token expired or revoked (run: moviecat login)", store.ErrUnauthorized)
	case http.StatusNotFound:
		return store.ErrNotFound
	case http.StatusConflict:
		return fmt.Errorf("%w: %s", store.ErrConflict, gerr.Message)
	case http.StatusBadRequest:
		if strings.Contains(gerr.Body, "FAILED_PRECONDITION") || strings.Contains(gerr.Message, "FAILED_PRECONDITION") {
			return fmt.Errorf("%w: %s", store.ErrConflict, gerr.Message)
		}
	}
	return err
}

// Package backend is the client for the crowdfunding REST API.
//
// Every authenticated call carries the session's bearer token in the
// Authorization header; cookie credentials are never used.
package backend

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
	"strings"
	"time"

	"github.com/jredh-dev/easyhope/pkg/models"
)

// Client is the interface for the crowdfunding REST API.
// The real implementation talks to the backend over HTTP.
type Client interface {
	// Projects
	ListProjects(ctx context.Context) ([]models.Project, error)
	GetProject(ctx context.Context, id int64) (*models.Project, error)
	ListUserProjects(ctx context.Context, token string, userID int64) ([]models.Project, error)
	CreateProject(ctx context.Context, token string, p NewProject) (*models.Project, error)

	// Donations
	ListDonations(ctx context.Context, token string) ([]models.Donation, error)
	ListUserDonations(ctx context.Context, token string, userID int64) ([]models.Donation, error)
	CreateOrder(ctx context.Context, amount float64) (*models.Order, error)
	VerifyPayment(ctx context.Context, v PaymentVerification) error

	// Comments
	ListComments(ctx context.Context, projectID int64) ([]models.Comment, error)
	PostComment(ctx context.Context, token string, projectID int64, c NewComment) (*models.Comment, error)
	DeleteComment(ctx context.Context, token string, id int64) error

	// Auth and users
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	Me(ctx context.Context, token string) (*models.Identity, error)
	Logout(ctx context.Context, token string) error
	Register(ctx context.Context, r Registration) (*models.Identity, error)
	UpdateProfile(ctx context.Context, token string, u ProfileUpdate) (*models.Identity, error)
	DeleteUser(ctx context.Context, token string, id int64) error

	// Admin
	Stats(ctx context.Context, token string) (*models.Stats, error)
	PendingProjects(ctx context.Context, token string) ([]models.Project, error)
	AdminUsers(ctx context.Context, token string) ([]models.Identity, error)
	AdminProjects(ctx context.Context, token string) ([]models.Project, error)
	AdminComments(ctx context.Context, token string) ([]models.Comment, error)
	ApproveProject(ctx context.Context, token string, id int64) error
	RejectProject(ctx context.Context, token string, id int64) error
	DeleteProject(ctx context.Context, token string, id int64) error
}

// --- Request and response types ---

// LoginResult is the backend's answer to a successful login.
type LoginResult struct {
	Token string           `json:"token"`
	User  *models.Identity `json:"user"`
}

// NewProject is the payload for creating a campaign.
type NewProject struct {
	Title        string  `json:"title"`
	Images       string  `json:"images"`
	Description  string  `json:"description"`
	Category     string  `json:"category"`
	GoalAmount   float64 `json:"goalAmount"`
	EndDate      string  `json:"endDate,omitempty"`
	CreatorID    int64   `json:"creatorId"`
	CreatorName  string  `json:"creatorName"`
	CreatorImage string  `json:"creatorImage,omitempty"`
}

// NewComment is the payload for posting a comment.
type NewComment struct {
	Text   string `json:"text"`
	UserID int64  `json:"userId"`
}

// PaymentVerification carries the checkout widget's completion data.
type PaymentVerification struct {
	ProjectID int64   `json:"projectId"`
	Amount    float64 `json:"amount"`
	PaymentID string  `json:"paymentId"`
	OrderID   string  `json:"orderId"`
	Signature string  `json:"signature"`
	UserID    int64   `json:"userId"`
}

// Upload is an optional file part of a multipart request.
type Upload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// Registration is the multipart registration form.
type Registration struct {
	Name     string
	Email    string
	Password string
	Image    *Upload
}

// ProfileUpdate is the multipart profile update form. An empty Password
// keeps the current one.
type ProfileUpdate struct {
	ID       int64
	Name     string
	Email    string
	Password string
	Image    *Upload
}

// --- HTTP implementation ---

type httpClient struct {
	baseURL    string
	httpClient *http.Client
}

// New returns a Client rooted at baseURL.
func New(baseURL string, timeout time.Duration) Client {
	return &httpClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// request describes one backend call.
type request struct {
	method      string
	path        string
	token       string
	body        io.Reader
	contentType string
}

func jsonRequest(method, path, token string, payload any) (request, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return request{}, fmt.Errorf("encode %s %s: %w", method, path, err)
	}
	return request{
		method:      method,
		path:        path,
		token:       token,
		body:        bytes.NewReader(raw),
		contentType: "application/json",
	}, nil
}

// do sends req and decodes a 2xx JSON body into out when out is non-nil.
func (c *httpClient) do(ctx context.Context, req request, out any) error {
	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.baseURL+req.path, req.body)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", req.method, req.path, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	if req.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrTransport, req.method, req.path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{
			Method:  req.method,
			Path:    req.path,
			Status:  resp.StatusCode,
			Message: errorMessage(resp.Body),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrBadPayload, req.method, req.path, err)
	}
	return nil
}

// errorMessage extracts {"message": ...} or {"error": ...} from an error body.
func errorMessage(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, 64<<10))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return strings.TrimSpace(string(raw))
	}
	if payload.Message != "" {
		return payload.Message
	}
	return payload.Error
}

// multipartBody encodes fields (in order) plus an optional image part.
func multipartBody(fields [][2]string, image *Upload) (io.Reader, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return nil, "", err
		}
	}
	if image != nil && image.Body != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, image.Filename))
		ct := image.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set("Content-Type", ct)
		part, err := mw.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := io.Copy(part, image.Body); err != nil {
			return nil, "", err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}

func requireIdentity(id *models.Identity, what string) error {
	if id == nil || id.ID == 0 {
		return fmt.Errorf("%w: %s: missing identity id", ErrBadPayload, what)
	}
	return nil
}

// IsNotFound reports whether err is a backend 404.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

package backend

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/jredh-dev/easyhope/pkg/models"
)

func idPath(prefix string, id int64) string {
	return prefix + strconv.FormatInt(id, 10)
}

// --- Projects ---

func (c *httpClient) ListProjects(ctx context.Context) ([]models.Project, error) {
	var projects []models.Project
	if err := c.do(ctx, request{method: http.MethodGet, path: "/api/projects"}, &projects); err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return projects, nil
}

func (c *httpClient) GetProject(ctx context.Context, id int64) (*models.Project, error) {
	var p models.Project
	if err := c.do(ctx, request{method: http.MethodGet, path: idPath("/api/projects/", id)}, &p); err != nil {
		return nil, fmt.Errorf("get project %d: %w", id, err)
	}
	return &p, nil
}

// ListUserProjects treats a 404 as "no projects yet".
func (c *httpClient) ListUserProjects(ctx context.Context, token string, userID int64) ([]models.Project, error) {
	var projects []models.Project
	err := c.do(ctx, request{method: http.MethodGet, path: idPath("/api/projects/user/", userID), token: token}, &projects)
	if IsNotFound(err) {
		return []models.Project{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list projects of user %d: %w", userID, err)
	}
	return projects, nil
}

func (c *httpClient) CreateProject(ctx context.Context, token string, p NewProject) (*models.Project, error) {
	req, err := jsonRequest(http.MethodPost, "/api/projects", token, p)
	if err != nil {
		return nil, err
	}
	var created models.Project
	if err := c.do(ctx, req, &created); err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	return &created, nil
}

// --- Donations ---

func (c *httpClient) ListDonations(ctx context.Context, token string) ([]models.Donation, error) {
	var donations []models.Donation
	if err := c.do(ctx, request{method: http.MethodGet, path: "/api/donations", token: token}, &donations); err != nil {
		return nil, fmt.Errorf("list donations: %w", err)
	}
	return donations, nil
}

func (c *httpClient) ListUserDonations(ctx context.Context, token string, userID int64) ([]models.Donation, error) {
	var donations []models.Donation
	if err := c.do(ctx, request{method: http.MethodGet, path: idPath("/api/donations/user/", userID), token: token}, &donations); err != nil {
		return nil, fmt.Errorf("list donations of user %d: %w", userID, err)
	}
	return donations, nil
}

func (c *httpClient) CreateOrder(ctx context.Context, amount float64) (*models.Order, error) {
	req, err := jsonRequest(http.MethodPost, "/api/donations/create-order", "", map[string]float64{"amount": amount})
	if err != nil {
		return nil, err
	}
	var order models.Order
	if err := c.do(ctx, req, &order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	if order.OrderID == "" {
		return nil, fmt.Errorf("create order: %w: missing orderId", ErrBadPayload)
	}
	return &order, nil
}

func (c *httpClient) VerifyPayment(ctx context.Context, v PaymentVerification) error {
	req, err := jsonRequest(http.MethodPost, "/api/donations/verify-payment", "", v)
	if err != nil {
		return err
	}
	if err := c.do(ctx, req, nil); err != nil {
		return fmt.Errorf("verify payment %s: %w", v.OrderID, err)
	}
	return nil
}

// --- Comments ---

func (c *httpClient) ListComments(ctx context.Context, projectID int64) ([]models.Comment, error) {
	var comments []models.Comment
	if err := c.do(ctx, request{method: http.MethodGet, path: idPath("/api/comments/", projectID)}, &comments); err != nil {
		return nil, fmt.Errorf("list comments of project %d: %w", projectID, err)
	}
	return comments, nil
}

func (c *httpClient) PostComment(ctx context.Context, token string, projectID int64, nc NewComment) (*models.Comment, error) {
	req, err := jsonRequest(http.MethodPost, idPath("/api/comments/", projectID)+"/comments", token, nc)
	if err != nil {
		return nil, err
	}
	var created models.Comment
	if err := c.do(ctx, req, &created); err != nil {
		return nil, fmt.Errorf("post comment on project %d: %w", projectID, err)
	}
	if created.ID == 0 {
		return nil, fmt.Errorf("post comment: %w: missing id", ErrBadPayload)
	}
	return &created, nil
}

func (c *httpClient) DeleteComment(ctx context.Context, token string, id int64) error {
	if err := c.do(ctx, request{method: http.MethodDelete, path: idPath("/api/comments/", id), token: token}, nil); err != nil {
		return fmt.Errorf("delete comment %d: %w", id, err)
	}
	return nil
}

// --- Auth and users ---

func (c *httpClient) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	req, err := jsonRequest(http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, err
	}
	var result LoginResult
	if err := c.do(ctx, req, &result); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if result.Token == "" {
		return nil, fmt.Errorf("login: %w: missing token", ErrBadPayload)
	}
	if err := requireIdentity(result.User, "login"); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *httpClient) Me(ctx context.Context, token string) (*models.Identity, error) {
	var id models.Identity
	if err := c.do(ctx, request{method: http.MethodGet, path: "/api/auth/me", token: token}, &id); err != nil {
		return nil, fmt.Errorf("session check: %w", err)
	}
	if err := requireIdentity(&id, "session check"); err != nil {
		return nil, err
	}
	return &id, nil
}

func (c *httpClient) Logout(ctx context.Context, token string) error {
	if err := c.do(ctx, request{method: http.MethodPost, path: "/api/auth/logout", token: token}, nil); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

func (c *httpClient) Register(ctx context.Context, r Registration) (*models.Identity, error) {
	body, contentType, err := multipartBody([][2]string{
		{"name", r.Name},
		{"email", r.Email},
		{"password", r.Password},
	}, r.Image)
	if err != nil {
		return nil, fmt.Errorf("encode registration: %w", err)
	}
	req := request{method: http.MethodPost, path: "/api/users/register", body: body, contentType: contentType}
	var created models.Identity
	if err := c.do(ctx, req, &created); err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	return &created, nil
}

func (c *httpClient) UpdateProfile(ctx context.Context, token string, u ProfileUpdate) (*models.Identity, error) {
	fields := [][2]string{
		{"id", strconv.FormatInt(u.ID, 10)},
		{"name", u.Name},
		{"email", u.Email},
	}
	if u.Password != "" {
		fields = append(fields, [2]string{"password", u.Password})
	}
	body, contentType, err := multipartBody(fields, u.Image)
	if err != nil {
		return nil, fmt.Errorf("encode profile update: %w", err)
	}
	req := request{method: http.MethodPut, path: "/api/users/update", token: token, body: body, contentType: contentType}
	var updated models.Identity
	if err := c.do(ctx, req, &updated); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	if err := requireIdentity(&updated, "update profile"); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (c *httpClient) DeleteUser(ctx context.Context, token string, id int64) error {
	if err := c.do(ctx, request{method: http.MethodDelete, path: idPath("/api/users/delete-user/", id), token: token}, nil); err != nil {
		return fmt.Errorf("delete user %d: %w", id, err)
	}
	return nil
}

// --- Admin ---

func (c *httpClient) Stats(ctx context.Context, token string) (*models.Stats, error) {
	var stats models.Stats
	if err := c.do(ctx, request{method: http.MethodGet, path: "/api/admin/stats", token: token}, &stats); err != nil {
		return nil, fmt.Errorf("admin stats: %w", err)
	}
	return &stats, nil
}

func (c *httpClient) PendingProjects(ctx context.Context, token string) ([]models.Project, error) {
	var projects []models.Project
	if err := c.do(ctx, request{method: http.MethodGet, path: "/api/admin/pending-projects", token: token}, &projects); err != nil {
		return nil, fmt.Errorf("pending projects: %w", err)
	}
	return projects, nil
}

func (c *httpClient) AdminUsers(ctx context.Context, token string) ([]models.Identity, error) {
	var users []models.Identity
	if err := c.do(ctx, request{method: http.MethodGet, path: "/api/admin/users", token: token}, &users); err != nil {
		return nil, fmt.Errorf("admin users: %w", err)
	}
	return users, nil
}

func (c *httpClient) AdminProjects(ctx context.Context, token string) ([]models.Project, error) {
	var projects []models.Project
	if err := c.do(ctx, request{method: http.MethodGet, path: "/api/admin/projects", token: token}, &projects); err != nil {
		return nil, fmt.Errorf("admin projects: %w", err)
	}
	return projects, nil
}

func (c *httpClient) AdminComments(ctx context.Context, token string) ([]models.Comment, error) {
	var comments []models.Comment
	if err := c.do(ctx, request{method: http.MethodGet, path: "/api/admin/comments", token: token}, &comments); err != nil {
		return nil, fmt.Errorf("admin comments: %w", err)
	}
	return comments, nil
}

func (c *httpClient) ApproveProject(ctx context.Context, token string, id int64) error {
	if err := c.do(ctx, request{method: http.MethodPost, path: idPath("/api/admin/approve-project/", id), token: token}, nil); err != nil {
		return fmt.Errorf("approve project %d: %w", id, err)
	}
	return nil
}

func (c *httpClient) RejectProject(ctx context.Context, token string, id int64) error {
	if err := c.do(ctx, request{method: http.MethodPost, path: idPath("/api/admin/reject-project/", id), token: token}, nil); err != nil {
		return fmt.Errorf("reject project %d: %w", id, err)
	}
	return nil
}

func (c *httpClient) DeleteProject(ctx context.Context, token string, id int64) error {
	if err := c.do(ctx, request{method: http.MethodDelete, path: idPath("/api/admin/delete-project/", id), token: token}, nil); err != nil {
		return fmt.Errorf("delete project %d: %w", id, err)
	}
	return nil
}

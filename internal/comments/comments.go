// Package comments manages a campaign's comment thread.
package comments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jredh-dev/easyhope/internal/backend"
	"github.com/jredh-dev/easyhope/internal/session"
	"github.com/jredh-dev/easyhope/pkg/models"
)

// DefaultAvatar is shown for authors without a profile image.
const DefaultAvatar = "https://img.freepik.com/free-vector/blue-circle-with-white-user_78370-4707.jpg"

var (
	// ErrLoginRequired is returned when an anonymous visitor tries to comment.
	ErrLoginRequired = errors.New("login required to comment")
	// ErrEmptyComment is returned for blank comment text.
	ErrEmptyComment = errors.New("comment text is required")
)

// Thread is the comments shown under one campaign.
type Thread struct {
	ProjectID int64
	Comments  []models.Comment
}

// Len is the number of comments.
func (t *Thread) Len() int { return len(t.Comments) }

// Add appends the backend's record of a comment, replacing any entry that
// already carries its id.
func (t *Thread) Add(c models.Comment) {
	for i := range t.Comments {
		if t.Comments[i].ID == c.ID {
			t.Comments[i] = c
			return
		}
	}
	t.Comments = append(t.Comments, c)
}

// Remove drops the comment with id and reports whether it was present.
func (t *Thread) Remove(id int64) bool {
	for i := range t.Comments {
		if t.Comments[i].ID == id {
			t.Comments = append(t.Comments[:i], t.Comments[i+1:]...)
			return true
		}
	}
	return false
}

// Service loads and posts comments.
type Service struct {
	api backend.Client
}

// NewService creates a comment service.
func NewService(api backend.Client) *Service {
	return &Service{api: api}
}

// Load fetches a campaign's thread.
func (s *Service) Load(ctx context.Context, projectID int64) (*Thread, error) {
	cs, err := s.api.ListComments(ctx, projectID)
	if err != nil {
		return &Thread{ProjectID: projectID}, err
	}
	t := &Thread{ProjectID: projectID}
	for _, c := range cs {
		t.Add(c)
	}
	return t, nil
}

// Post publishes text on a campaign as the session's identity and returns
// the backend's record. Anonymous sessions never reach the backend.
func (s *Service) Post(ctx context.Context, sess *session.Session, projectID int64, text string) (*models.Comment, error) {
	if !sess.Authenticated() {
		return nil, ErrLoginRequired
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyComment
	}

	created, err := s.api.PostComment(ctx, sess.Token, projectID, backend.NewComment{
		Text:   text,
		UserID: sess.Identity.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("post comment: %w", err)
	}

	c := *created
	if c.ProjectID == 0 {
		c.ProjectID = projectID
	}
	if c.UserID == 0 {
		c.UserID = sess.Identity.ID
	}
	if c.UserName == "" || c.UserName == "Anonymous" {
		c.UserName = sess.Identity.Name
	}
	if c.ProfileImage == "" {
		c.ProfileImage = sess.Identity.Image
	}
	return &c, nil
}

// Avatar resolves a comment author's image against the backend base URL.
func Avatar(base string, c models.Comment) string {
	if c.ProfileImage == "" {
		return DefaultAvatar
	}
	return models.AssetURL(base, c.ProfileImage)
}

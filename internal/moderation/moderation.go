// Package moderation backs the admin dashboard: the overview, the per-tab
// collections and the approve, reject and delete actions.
package moderation

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/jredh-dev/easyhope/internal/backend"
	"github.com/jredh-dev/easyhope/internal/events"
	"github.com/jredh-dev/easyhope/internal/session"
	"github.com/jredh-dev/easyhope/pkg/models"
)

// Tab is an admin dashboard section.
type Tab string

const (
	TabOverview     Tab = "overview"
	TabProjects     Tab = "projects"
	TabUsers        Tab = "users"
	TabTransactions Tab = "transactions"
	TabComments     Tab = "comments"
)

// Tabs lists the sections in sidebar order.
var Tabs = []Tab{TabOverview, TabUsers, TabProjects, TabTransactions, TabComments}

// ParseTab maps a query value to a tab, defaulting to the overview.
func ParseTab(s string) Tab {
	for _, t := range Tabs {
		if string(t) == s {
			return t
		}
	}
	return TabOverview
}

// Overview is the counters plus the review queue.
type Overview struct {
	Stats   models.Stats
	Pending []models.Project
}

// Service issues admin requests with the session's bearer token.
type Service struct {
	api    backend.Client
	events *events.Recorder
}

// NewService creates an admin service.
func NewService(api backend.Client, rec *events.Recorder) *Service {
	return &Service{api: api, events: rec}
}

// Overview fetches stats and pending projects concurrently. Either failure
// fails the whole overview.
func (s *Service) Overview(ctx context.Context, sess *session.Session) (*Overview, error) {
	var ov Overview
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		stats, err := s.api.Stats(gctx, sess.Token)
		if err != nil {
			return err
		}
		ov.Stats = *stats
		return nil
	})
	g.Go(func() error {
		pending, err := s.api.PendingProjects(gctx, sess.Token)
		if err != nil {
			return err
		}
		ov.Pending = pending
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("admin overview: %w", err)
	}
	return &ov, nil
}

// Projects lists every campaign.
func (s *Service) Projects(ctx context.Context, sess *session.Session) ([]models.Project, error) {
	return s.api.AdminProjects(ctx, sess.Token)
}

// Users lists every account.
func (s *Service) Users(ctx context.Context, sess *session.Session) ([]models.Identity, error) {
	return s.api.AdminUsers(ctx, sess.Token)
}

// Transactions lists every donation.
func (s *Service) Transactions(ctx context.Context, sess *session.Session) ([]models.Donation, error) {
	return s.api.ListDonations(ctx, sess.Token)
}

// Comments lists every comment, narrowed to one campaign when projectID is
// non-zero. The returned ids are the campaigns that have comments, in first
// seen order, for the filter selector.
func (s *Service) Comments(ctx context.Context, sess *session.Session, projectID int64) ([]models.Comment, []int64, error) {
	all, err := s.api.AdminComments(ctx, sess.Token)
	if err != nil {
		return nil, nil, err
	}
	seen := make(map[int64]bool)
	var ids []int64
	out := make([]models.Comment, 0, len(all))
	for _, c := range all {
		if !seen[c.ProjectID] {
			seen[c.ProjectID] = true
			ids = append(ids, c.ProjectID)
		}
		if projectID == 0 || c.ProjectID == projectID {
			out = append(out, c)
		}
	}
	return out, ids, nil
}

// Action is a moderation mutation.
type Action string

const (
	ApproveProject Action = "approve-project"
	RejectProject  Action = "reject-project"
	DeleteProject  Action = "delete-project"
	DeleteUser     Action = "delete-user"
	DeleteComment  Action = "delete-comment"
)

// Destructive reports whether the action needs a confirmation step.
func (a Action) Destructive() bool {
	return a == DeleteProject || a == DeleteUser || a == DeleteComment
}

// Prompt is the confirmation question for a destructive action.
func (a Action) Prompt() string {
	switch a {
	case DeleteProject:
		return "Are you sure you want to delete this project?"
	case DeleteUser:
		return "Are you sure you want to delete this user?"
	case DeleteComment:
		return "Are you sure you want to delete this comment?"
	}
	return ""
}

// Success is the notification shown after the action succeeds.
func (a Action) Success() string {
	switch a {
	case ApproveProject:
		return "Project Approved successfully"
	case RejectProject:
		return "Project Rejected successfully"
	case DeleteProject:
		return "Project Deleted successfully!"
	case DeleteUser:
		return "User deleted successfully"
	case DeleteComment:
		return "Comment deleted successfully"
	}
	return "Done"
}

// Failure is the notification shown after the action fails.
func (a Action) Failure() string {
	switch a {
	case ApproveProject:
		return "Failed to approve project"
	case RejectProject:
		return "Failed to reject project"
	case DeleteProject:
		return "Failed to delete project"
	case DeleteUser:
		return "Error deleting user"
	case DeleteComment:
		return "Failed to delete comment."
	}
	return "Something went wrong."
}

// Tab is where the affected row is listed.
func (a Action) Tab() Tab {
	switch a {
	case ApproveProject, RejectProject:
		return TabOverview
	case DeleteProject:
		return TabProjects
	case DeleteUser:
		return TabUsers
	case DeleteComment:
		return TabComments
	}
	return TabOverview
}

// ParseAction maps a route segment to an action.
func ParseAction(s string) (Action, bool) {
	switch a := Action(s); a {
	case ApproveProject, RejectProject, DeleteProject, DeleteUser, DeleteComment:
		return a, true
	}
	return "", false
}

var actionEvents = map[Action]events.Kind{
	ApproveProject: events.ProjectApproved,
	RejectProject:  events.ProjectRejected,
	DeleteProject:  events.ProjectDeleted,
	DeleteUser:     events.UserDeleted,
	DeleteComment:  events.CommentDeleted,
}

// Apply performs a on the record with id.
func (s *Service) Apply(ctx context.Context, sess *session.Session, a Action, id int64) error {
	var err error
	switch a {
	case ApproveProject:
		err = s.api.ApproveProject(ctx, sess.Token, id)
	case RejectProject:
		err = s.api.RejectProject(ctx, sess.Token, id)
	case DeleteProject:
		err = s.api.DeleteProject(ctx, sess.Token, id)
	case DeleteUser:
		err = s.api.DeleteUser(ctx, sess.Token, id)
	case DeleteComment:
		err = s.api.DeleteComment(ctx, sess.Token, id)
	default:
		return fmt.Errorf("unknown admin action %q", a)
	}
	if err != nil {
		return err
	}
	var actor int64
	if sess.Identity != nil {
		actor = sess.Identity.ID
	}
	s.events.Record(ctx, events.New(actionEvents[a], id, actor))
	return nil
}

// Without returns list minus the entries whose id is id. list is not modified.
func Without[T any](list []T, id int64, idOf func(T) int64) []T {
	out := make([]T, 0, len(list))
	for _, v := range list {
		if idOf(v) != id {
			out = append(out, v)
		}
	}
	return out
}

// ProjectID, UserID and CommentID are id accessors for Without.
func ProjectID(p models.Project) int64 { return p.ID }
func UserID(u models.Identity) int64  { return u.ID }
func CommentID(c models.Comment) int64 { return c.ID }

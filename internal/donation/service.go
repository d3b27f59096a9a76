package donation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jredh-dev/easyhope/internal/backend"
	"github.com/jredh-dev/easyhope/internal/events"
	"github.com/jredh-dev/easyhope/internal/money"
	"github.com/jredh-dev/easyhope/internal/session"
	"github.com/jredh-dev/easyhope/pkg/models"
)

var (
	// ErrInFlight is returned when the owner already has a donation being
	// started or verified.
	ErrInFlight = errors.New("a donation is already in progress")
	// ErrNotAccepting is returned for campaigns that are not approved or
	// already reached their goal.
	ErrNotAccepting = errors.New("campaign is not accepting donations")
	// ErrUnknownOrder is returned when a callback names an order this owner
	// never started.
	ErrUnknownOrder = errors.New("unknown donation order")
	// ErrVerificationFailed is returned when the backend rejects a payment.
	ErrVerificationFailed = errors.New("payment verification failed")
	// ErrNoOwner is returned when a request carries no visitor identifier.
	ErrNoOwner = errors.New("donation owner required")
)

// AnonymousDonor is shown in place of the donor's name and email.
const AnonymousDonor = "Anonymous"

// VerificationFailedMessage is shown when the backend rejects a payment.
const VerificationFailedMessage = "Payment verification failed."

// StaleVerification is how long a verifying flow blocks the owner's next
// donation. A flow still verifying after that was left behind by a failed
// store write.
const StaleVerification = 2 * time.Minute

// Store persists donations between order creation and verification.
type Store interface {
	CreatePendingDonation(p *models.PendingDonation) error
	GetPendingDonation(orderID string) (*models.PendingDonation, error)
	ActivePendingDonation(owner string, states ...string) (*models.PendingDonation, error)
	TransitionPendingDonation(orderID, from, to string) (bool, error)
	DeletePendingDonationsBefore(cutoff time.Time) (int64, error)
}

// Config is the static part of the checkout options.
type Config struct {
	BrandName  string
	ThemeColor string
}

// Prefill is the donor shown in the checkout widget.
type Prefill struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Theme colours the checkout widget.
type Theme struct {
	Color string `json:"color"`
}

// Checkout is the option object passed to the checkout widget constructor.
type Checkout struct {
	Key         string  `json:"key"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	OrderID     string  `json:"order_id"`
	Prefill     Prefill `json:"prefill"`
	Theme       Theme   `json:"theme"`
}

// StartRequest is a submitted donation form.
type StartRequest struct {
	// Owner identifies the browser; callbacks must come from the same owner.
	Owner     string
	Session   *session.Session
	ProjectID int64
	Amount    float64
	Anonymous bool
}

// Callback is what the checkout widget reports on completion.
type Callback struct {
	PaymentID string
	OrderID   string
	Signature string
}

// Result is the outcome of a completed donation.
type Result struct {
	State        State
	OrderID      string
	ProjectID    int64
	ProjectTitle string
	Amount       float64
	// RaisedAmount is the campaign total after the donation. Refreshed is
	// false when the campaign could not be re-fetched.
	RaisedAmount float64
	Refreshed    bool
	Message      string
}

// Service runs donation flows.
type Service struct {
	api    backend.Client
	store  Store
	cfg    Config
	events *events.Recorder
	log    zerolog.Logger
	now    func() time.Time

	mu       sync.Mutex
	starting map[string]struct{}
}

// NewService creates a donation service.
func NewService(api backend.Client, store Store, cfg Config, rec *events.Recorder, log zerolog.Logger) *Service {
	if cfg.BrandName == "" {
		cfg.BrandName = "EasyHope"
	}
	if cfg.ThemeColor == "" {
		cfg.ThemeColor = "#2563eb"
	}
	return &Service{
		api:      api,
		store:    store,
		cfg:      cfg,
		events:   rec,
		log:      log.With().Str("component", "donation").Logger(),
		now:      time.Now,
		starting: make(map[string]struct{}),
	}
}

func (s *Service) acquire(owner string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.starting[owner]; busy {
		return false
	}
	s.starting[owner] = struct{}{}
	return true
}

func (s *Service) release(owner string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.starting, owner)
}

// Start validates the form, creates a payment order and returns the options
// for the checkout widget. An unsettled earlier flow of the same owner is
// abandoned; one that is being verified blocks the new one.
func (s *Service) Start(ctx context.Context, req StartRequest) (*Checkout, error) {
	if err := ValidateAmount(req.Amount); err != nil {
		return nil, err
	}
	if req.Owner == "" {
		return nil, ErrNoOwner
	}
	if !s.acquire(req.Owner) {
		return nil, ErrInFlight
	}
	defer s.release(req.Owner)

	busy, err := s.store.ActivePendingDonation(req.Owner, string(StateVerifying))
	if err != nil {
		return nil, fmt.Errorf("load active donation: %w", err)
	}
	if busy != nil {
		if busy.UpdatedAt.After(s.now().Add(-StaleVerification)) {
			return nil, ErrInFlight
		}
		if err := s.move(busy.OrderID, FlowAt(StateVerifying), StateFailed); err != nil && !errors.Is(err, ErrInvalidTransition) {
			return nil, err
		}
		s.log.Warn().Str("order_id", busy.OrderID).Msg("failed stale verifying donation")
	}

	project, err := s.api.GetProject(ctx, req.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("load campaign: %w", err)
	}
	if !project.AcceptsDonations() {
		return nil, ErrNotAccepting
	}

	flow := NewFlow()
	order, err := s.api.CreateOrder(ctx, req.Amount)
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	if err := flow.transition(StateOrderCreated); err != nil {
		return nil, err
	}

	if err := s.abandon(req.Owner); err != nil {
		return nil, err
	}

	donorID, name, email := donor(req.Session, req.Anonymous)
	now := s.now()
	pending := &models.PendingDonation{
		OrderID:      order.OrderID,
		SessionID:    req.Owner,
		ProjectID:    project.ID,
		ProjectTitle: project.Title,
		Amount:       req.Amount,
		Anonymous:    req.Anonymous || !req.Session.Authenticated(),
		DonorID:      donorID,
		DonorName:    name,
		DonorEmail:   email,
		State:        string(flow.State()),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreatePendingDonation(pending); err != nil {
		return nil, fmt.Errorf("persist donation: %w", err)
	}

	currency := order.Currency
	if currency == "" {
		currency = "INR"
	}
	checkout := &Checkout{
		Key:         order.Key,
		Amount:      order.Amount,
		Currency:    currency,
		Name:        s.cfg.BrandName,
		Description: "Donation to " + project.Title,
		OrderID:     order.OrderID,
		Prefill:     Prefill{Name: name, Email: email},
		Theme:       Theme{Color: s.cfg.ThemeColor},
	}

	if err := s.move(order.OrderID, flow, StateWidgetOpen); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("order_id", order.OrderID).
		Int64("project_id", project.ID).
		Float64("amount", req.Amount).
		Bool("anonymous", pending.Anonymous).
		Msg("donation started")
	return checkout, nil
}

// donor applies the anonymity rule. Logged-out visitors are always anonymous.
// The donor id stays attached to a logged-in donor who hides their name so
// the donation still appears on their dashboard.
func donor(sess *session.Session, anonymous bool) (id int64, name, email string) {
	if !sess.Authenticated() {
		return 0, AnonymousDonor, AnonymousDonor
	}
	if anonymous {
		return sess.Identity.ID, AnonymousDonor, AnonymousDonor
	}
	return sess.Identity.ID, sess.Identity.Name, sess.Identity.Email
}

// abandon fails the owner's flows that never reached verification.
func (s *Service) abandon(owner string) error {
	for {
		stale, err := s.store.ActivePendingDonation(owner, string(StateOrderCreated), string(StateWidgetOpen))
		if err != nil {
			return fmt.Errorf("load stale donation: %w", err)
		}
		if stale == nil {
			return nil
		}
		if err := s.move(stale.OrderID, FlowAt(State(stale.State)), StateFailed); err != nil && !errors.Is(err, ErrInvalidTransition) {
			return err
		}
		s.log.Debug().Str("order_id", stale.OrderID).Msg("abandoned unfinished donation")
	}
}

// move applies a transition in memory and then in the store. A concurrent
// writer that moved the row first yields ErrInvalidTransition.
func (s *Service) move(orderID string, flow *Flow, to State) error {
	from := flow.State()
	if err := flow.transition(to); err != nil {
		return err
	}
	ok, err := s.store.TransitionPendingDonation(orderID, string(from), string(to))
	if err != nil {
		return fmt.Errorf("store donation state: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s is no longer %s", ErrInvalidTransition, orderID, from)
	}
	return nil
}

// Dismiss fails an open checkout the donor closed without paying.
func (s *Service) Dismiss(ctx context.Context, owner, orderID string) error {
	pending, err := s.lookup(owner, orderID)
	if err != nil {
		return err
	}
	return s.move(pending.OrderID, FlowAt(State(pending.State)), StateFailed)
}

// Complete verifies the widget's callback with the backend. The amount,
// campaign and donor sent for verification come from the stored flow, never
// from the browser. A settled or failed flow cannot be completed again.
func (s *Service) Complete(ctx context.Context, owner string, cb Callback) (*Result, error) {
	pending, err := s.lookup(owner, cb.OrderID)
	if err != nil {
		return nil, err
	}
	flow := FlowAt(State(pending.State))
	if err := s.move(pending.OrderID, flow, StateVerifying); err != nil {
		return nil, err
	}

	res := &Result{
		OrderID:      pending.OrderID,
		ProjectID:    pending.ProjectID,
		ProjectTitle: pending.ProjectTitle,
		Amount:       pending.Amount,
	}

	// The payment is captured by now; finish even if the browser goes away.
	vctx := context.WithoutCancel(ctx)
	verr := s.api.VerifyPayment(vctx, backend.PaymentVerification{
		ProjectID: pending.ProjectID,
		Amount:    pending.Amount,
		PaymentID: cb.PaymentID,
		OrderID:   pending.OrderID,
		Signature: cb.Signature,
		UserID:    pending.DonorID,
	})
	if verr != nil {
		if err := s.move(pending.OrderID, flow, StateFailed); err != nil {
			s.log.Error().Err(err).Str("order_id", pending.OrderID).Msg("mark donation failed")
		}
		s.events.Record(ctx, withAmount(events.New(events.DonationFailed, pending.ProjectID, pending.DonorID), pending.Amount))
		s.log.Warn().Err(verr).Str("order_id", pending.OrderID).Msg("payment verification failed")
		res.State = StateFailed
		res.Message = VerificationFailedMessage
		return res, fmt.Errorf("%w: %w", ErrVerificationFailed, verr)
	}

	if err := s.move(pending.OrderID, flow, StateSettled); err != nil {
		s.log.Error().Err(err).Str("order_id", pending.OrderID).Msg("mark donation settled")
	}
	res.State = StateSettled
	res.Message = fmt.Sprintf("Thank you for donating %s to \"%s\"!", money.Format(pending.Amount), pending.ProjectTitle)

	if project, err := s.api.GetProject(vctx, pending.ProjectID); err != nil {
		s.log.Warn().Err(err).Int64("project_id", pending.ProjectID).Msg("refresh campaign after donation")
	} else {
		res.RaisedAmount = project.RaisedAmount
		res.Refreshed = true
	}

	s.events.Record(ctx, withAmount(events.New(events.DonationSettled, pending.ProjectID, pending.DonorID), pending.Amount))
	s.log.Info().Str("order_id", pending.OrderID).Float64("amount", pending.Amount).Msg("donation settled")
	return res, nil
}

func (s *Service) lookup(owner, orderID string) (*models.PendingDonation, error) {
	if owner == "" {
		return nil, ErrNoOwner
	}
	pending, err := s.store.GetPendingDonation(orderID)
	if err != nil {
		return nil, fmt.Errorf("load donation: %w", err)
	}
	if pending == nil || pending.SessionID != owner {
		return nil, ErrUnknownOrder
	}
	return pending, nil
}

// Sweep deletes flows untouched for longer than maxAge, every interval,
// until ctx is done.
func (s *Service) Sweep(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.store.DeletePendingDonationsBefore(s.now().Add(-maxAge))
			if err != nil {
				s.log.Error().Err(err).Msg("sweep donations")
				continue
			}
			if n > 0 {
				s.log.Debug().Int64("deleted", n).Msg("swept old donations")
			}
		}
	}
}

func withAmount(e events.Event, amount float64) events.Event {
	e.Amount = amount
	return e
}

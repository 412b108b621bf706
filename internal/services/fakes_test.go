package services

import (
	"context"
	"sync"

	"github.com/example/paygate/internal/events"
	"github.com/example/paygate/internal/models"
	"github.com/example/paygate/internal/repository"
)

// fakeUserRepository is an in-memory UserRepository that counts calls.
type fakeUserRepository struct {
	mu          sync.Mutex
	users       map[string]*models.User
	existsCalls int
	findCalls   int
	createCalls int

	existsErr error
	createErr error
	// existsAfterCreate simulates a concurrent writer landing between the
	// existence check and the insert.
	existsAfterCreate bool
	// payKeyOwner, when set, owns every pay-key looked up.
	payKeyOwner *models.User
}

func newFakeUserRepository(users ...*models.User) *fakeUserRepository {
	r := &fakeUserRepository{users: map[string]*models.User{}}
	for _, u := range users {
		r.users[u.UserID] = u
	}
	return r
}

func (r *fakeUserRepository) ExistsByUserID(_ context.Context, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.existsCalls++
	if r.existsErr != nil {
		return false, r.existsErr
	}
	if r.existsAfterCreate && r.createCalls > 0 {
		return true, nil
	}
	_, ok := r.users[userID]
	return ok, nil
}

func (r *fakeUserRepository) FindByUserID(_ context.Context, userID string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.findCalls++
	u, ok := r.users[userID]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return u, nil
}

func (r *fakeUserRepository) FindByPayKey(_ context.Context, payKey string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.findCalls++
	if r.payKeyOwner != nil {
		return r.payKeyOwner, nil
	}
	for _, u := range r.users {
		if u.PayKey == payKey {
			return u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (r *fakeUserRepository) Create(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.createCalls++
	if r.createErr != nil {
		return r.createErr
	}
	if _, ok := r.users[user.UserID]; ok {
		return repository.ErrDuplicateUser
	}
	r.users[user.UserID] = user
	return nil
}

type publishedEvent struct {
	topic string
	key   string
	event events.Event
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, topic, key string, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{topic: topic, key: key, event: event})
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

// stubGateway is a Gateway driven by function fields.
type stubGateway struct {
	name           string
	createOrderFn  func(ctx context.Context, amount float64, currency, description string) (string, error)
	captureFn      func(ctx context.Context, orderID string) (CaptureOutcome, error)
	createOrderHit int
	captureHit     int
}

func (g *stubGateway) Name() string { return g.name }

func (g *stubGateway) CreateOrder(ctx context.Context, amount float64, currency, description string) (string, error) {
	g.createOrderHit++
	return g.createOrderFn(ctx, amount, currency, description)
}

func (g *stubGateway) CapturePayment(ctx context.Context, orderID string) (CaptureOutcome, error) {
	g.captureHit++
	return g.captureFn(ctx, orderID)
}

type recordingNotifier struct {
	notified []PaymentCapturedNotification
}

func (n *recordingNotifier) NotifyPaymentCaptured(_ context.Context, payment PaymentCapturedNotification) {
	n.notified = append(n.notified, payment)
}

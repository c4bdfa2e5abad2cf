package memory

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/campusnet/internal/domain"
	"github.com/vedran77/campusnet/internal/repository"
)

var (
	errReadOnly   = errors.New("cannot execute write in a read-only transaction")
	errRowPolicy  = errors.New("new row violates row-level security policy")
	errForeignKey = errors.New("violates foreign key constraint")
	errCheck      = errors.New("violates check constraint")
)

// Store is an in-process backend with the same visibility rules and
// uniqueness constraints as the Postgres schema. Units of work are serialised
// and run against a copy of the state that only replaces the committed state
// when the unit succeeds.
type Store struct {
	mu     sync.Mutex
	state  *state
	faults map[string]error
}

type state struct {
	profiles      map[domain.Identity]domain.Profile
	requests      map[uuid.UUID]domain.ConnectionRequest
	conversations map[uuid.UUID]domain.Conversation
	participants  map[uuid.UUID][]domain.Participant
	messages      map[uuid.UUID][]domain.Message
	notifications map[uuid.UUID]domain.Notification
	posts         map[uuid.UUID]domain.Post
	likes         map[uuid.UUID]map[domain.Identity]bool
	comments      map[uuid.UUID]int
	seq           int64
}

func NewStore() *Store {
	return &Store{
		state: &state{
			profiles:      make(map[domain.Identity]domain.Profile),
			requests:      make(map[uuid.UUID]domain.ConnectionRequest),
			conversations: make(map[uuid.UUID]domain.Conversation),
			participants:  make(map[uuid.UUID][]domain.Participant),
			messages:      make(map[uuid.UUID][]domain.Message),
			notifications: make(map[uuid.UUID]domain.Notification),
			posts:         make(map[uuid.UUID]domain.Post),
			likes:         make(map[uuid.UUID]map[domain.Identity]bool),
			comments:      make(map[uuid.UUID]int),
		},
		faults: make(map[string]error),
	}
}

func (s *state) clone() *state {
	cp := &state{
		profiles:      maps.Clone(s.profiles),
		requests:      maps.Clone(s.requests),
		conversations: maps.Clone(s.conversations),
		participants:  make(map[uuid.UUID][]domain.Participant, len(s.participants)),
		messages:      make(map[uuid.UUID][]domain.Message, len(s.messages)),
		notifications: maps.Clone(s.notifications),
		posts:         maps.Clone(s.posts),
		likes:         make(map[uuid.UUID]map[domain.Identity]bool, len(s.likes)),
		comments:      maps.Clone(s.comments),
		seq:           s.seq,
	}
	for k, v := range s.participants {
		cp.participants[k] = slices.Clone(v)
	}
	for k, v := range s.messages {
		cp.messages[k] = slices.Clone(v)
	}
	for k, v := range s.likes {
		cp.likes[k] = maps.Clone(v)
	}
	return cp
}

// InjectFault makes the next call to op (e.g. "notifications.Create") fail with err.
func (s *Store) InjectFault(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[op] = err
}

func (s *Store) RunScoped(ctx context.Context, identity domain.Identity, work repository.UnitOfWork, opts ...repository.RunOption) error {
	if identity == "" {
		return domain.ErrMissingIdentity
	}
	return s.run(ctx, identity, work, repository.ApplyOptions(opts))
}

func (s *Store) RunUnscoped(ctx context.Context, work repository.UnitOfWork, opts ...repository.RunOption) error {
	return s.run(ctx, "", work, repository.ApplyOptions(opts))
}

func (s *Store) run(ctx context.Context, identity domain.Identity, work repository.UnitOfWork, o repository.RunOptions) error {
	if err := ctx.Err(); err != nil {
		return domain.Persistence("begin unit of work", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &txn{store: s, st: s.state.clone(), identity: identity, readOnly: o.ReadOnly}
	if err := work(ctx, tx.repositories()); err != nil {
		return err
	}
	// A caller that went away before commit gets a rollback.
	if err := ctx.Err(); err != nil {
		return domain.Persistence("commit unit of work", err)
	}
	s.state = tx.st
	return nil
}

// txn is one unit of work: a private copy of the state plus the identity tag.
type txn struct {
	store    *Store
	st       *state
	identity domain.Identity
	readOnly bool
}

func (t *txn) repositories() repository.Repositories {
	return repository.Repositories{
		Profiles:      &profileRepo{t},
		Connections:   &connectionRepo{t},
		Conversations: &conversationRepo{t},
		Notifications: &notificationRepo{t},
		Feed:          &feedRepo{t},
	}
}

func (t *txn) scoped() bool {
	return t.identity != ""
}

// fault consumes an injected failure for op. The store mutex is held by the unit.
func (t *txn) fault(op string) error {
	if err, ok := t.store.faults[op]; ok {
		delete(t.store.faults, op)
		return err
	}
	return nil
}

func (t *txn) write(op string) error {
	if err := t.fault(op); err != nil {
		return err
	}
	if t.readOnly {
		return errReadOnly
	}
	return nil
}

func (t *txn) isParticipant(conversationID uuid.UUID, id domain.Identity) bool {
	for _, p := range t.st.participants[conversationID] {
		if p.Identity == id {
			return true
		}
	}
	return false
}

func (t *txn) canSeeConversation(conv domain.Conversation) bool {
	return !t.scoped() || conv.Creator == t.identity || t.isParticipant(conv.ID, t.identity)
}

func (t *txn) canSeeRequest(req domain.ConnectionRequest) bool {
	return !t.scoped() || req.Involves(t.identity)
}

// Seed helpers write straight to the committed state. They stand in for the
// profile and post management that lives outside the engine.

func (s *Store) AddProfile(p domain.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.Kind == "" {
		p.Kind = domain.ProfileStudent
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	s.state.profiles[p.Identity] = p
}

func (s *Store) AddPost(p domain.Post) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.posts[p.ID] = p
}

func (s *Store) AddLike(postID uuid.UUID, id domain.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.likes[postID] == nil {
		s.state.likes[postID] = make(map[domain.Identity]bool)
	}
	s.state.likes[postID][id] = true
}

func (s *Store) AddComment(postID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.comments[postID]++
}

// Counts reports committed row counts; tests use it to check that failed
// units left nothing behind.
type Counts struct {
	Requests      int
	Conversations int
	Participants  int
	Messages      int
	Notifications int
}

func (s *Store) Counts() Counts {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := Counts{
		Requests:      len(s.state.requests),
		Conversations: len(s.state.conversations),
		Notifications: len(s.state.notifications),
	}
	for _, ps := range s.state.participants {
		c.Participants += len(ps)
	}
	for _, ms := range s.state.messages {
		c.Messages += len(ms)
	}
	return c
}

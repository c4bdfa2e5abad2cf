package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/vedran77/campusnet/internal/domain"
	"github.com/vedran77/campusnet/internal/repository"
	"github.com/vedran77/campusnet/pkg/textutil"
)

var (
	ErrCannotMessageSelf    = domain.NewError(domain.KindConflict, "InvalidRequest", "cannot start a conversation with yourself")
	ErrConversationNotFound = domain.NewError(domain.KindNotFound, "ConversationNotFound", "conversation not found")
	ErrNotParticipant       = domain.NewError(domain.KindConflict, "Forbidden", "you are not a participant of this conversation")
	ErrEmptyMessage         = domain.NewError(domain.KindValidation, "EmptyMessage", "message cannot be empty")
	ErrMessageTooLong       = domain.NewError(domain.KindValidation, "MessageTooLong", "message is too long")
	ErrTitleRequired        = domain.NewError(domain.KindValidation, "TitleRequired", "group title is required")
	ErrNoMembers            = domain.NewError(domain.KindValidation, "NoMembers", "a group needs at least one other member")
)

const (
	MaxMessageLength = 4000
	previewLength    = 100
)

type ConversationService struct {
	exec      repository.Executor
	notifier  Dispatcher
	publisher Publisher
}

func NewConversationService(exec repository.Executor, notifier Dispatcher) *ConversationService {
	return &ConversationService{
		exec:     exec,
		notifier: notifier,
	}
}

func (s *ConversationService) SetPublisher(p Publisher) {
	s.publisher = p
}

type MessageListResponse struct {
	Messages []domain.Message `json:"messages"`
	HasMore  bool             `json:"has_more"`
}

// FindOrCreatePrivate returns the private conversation between a and b,
// creating it with both participants when none exists.
func (s *ConversationService) FindOrCreatePrivate(ctx context.Context, a, b domain.Identity) (*domain.Conversation, bool, error) {
	if a == b {
		return nil, false, ErrCannotMessageSelf
	}
	if err := profileExists(ctx, s.exec, b); err != nil {
		return nil, false, err
	}

	conv, created, err := s.findOrCreatePrivate(ctx, a, b)
	if errors.Is(err, repository.ErrDuplicate) {
		// A concurrent call created the pair first; this attempt finds it.
		conv, created, err = s.findOrCreatePrivate(ctx, a, b)
	}
	if err != nil {
		return nil, false, err
	}
	return conv, created, nil
}

func (s *ConversationService) findOrCreatePrivate(ctx context.Context, a, b domain.Identity) (*domain.Conversation, bool, error) {
	var (
		conv    *domain.Conversation
		created bool
	)
	err := s.exec.RunScoped(ctx, a, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		conv, err = repos.Conversations.FindPrivateBetween(ctx, a, b)
		if err != nil {
			return fmt.Errorf("looking up private conversation: %w", err)
		}
		if conv != nil {
			conv.Participants, err = repos.Conversations.ListParticipants(ctx, conv.ID)
			if err != nil {
				return fmt.Errorf("listing participants: %w", err)
			}
			return nil
		}

		lo, hi := domain.OrderedPair(a, b)
		conv = &domain.Conversation{
			ID:        uuid.New(),
			Creator:   a,
			Kind:      domain.ConversationPrivate,
			CreatedAt: time.Now(),
			PairLow:   &lo,
			PairHigh:  &hi,
		}
		if err := repos.Conversations.Create(ctx, conv); err != nil {
			return fmt.Errorf("creating private conversation: %w", err)
		}
		if err := s.addParticipants(ctx, repos, conv, []domain.Identity{a, b}); err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return conv, created, nil
}

// CreateGroup creates a titled conversation holding creator and the distinct members.
func (s *ConversationService) CreateGroup(ctx context.Context, creator domain.Identity, title string, members []domain.Identity) (*domain.Conversation, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrTitleRequired
	}

	others := make([]domain.Identity, 0, len(members))
	for _, m := range members {
		if m != creator && !slices.Contains(others, m) {
			others = append(others, m)
		}
	}
	if len(others) == 0 {
		return nil, ErrNoMembers
	}
	for _, m := range others {
		if err := profileExists(ctx, s.exec, m); err != nil {
			return nil, err
		}
	}

	conv := &domain.Conversation{
		ID:        uuid.New(),
		Creator:   creator,
		Kind:      domain.ConversationGroup,
		Title:     &title,
		CreatedAt: time.Now(),
	}
	err := s.exec.RunScoped(ctx, creator, func(ctx context.Context, repos repository.Repositories) error {
		if err := repos.Conversations.Create(ctx, conv); err != nil {
			return fmt.Errorf("creating group conversation: %w", err)
		}
		return s.addParticipants(ctx, repos, conv, append([]domain.Identity{creator}, others...))
	})
	if err != nil {
		return nil, err
	}
	return conv, nil
}

func (s *ConversationService) addParticipants(ctx context.Context, repos repository.Repositories, conv *domain.Conversation, ids []domain.Identity) error {
	for _, id := range ids {
		p := domain.Participant{ConversationID: conv.ID, Identity: id, JoinedAt: conv.CreatedAt}
		if err := repos.Conversations.AddParticipant(ctx, &p); err != nil {
			return fmt.Errorf("adding participant: %w", err)
		}
		conv.Participants = append(conv.Participants, p)
	}
	return nil
}

// SendMessage appends a message from author and notifies every other participant.
func (s *ConversationService) SendMessage(ctx context.Context, conversationID uuid.UUID, author domain.Identity, text string) (*domain.Message, error) {
	body := strings.TrimSpace(text)
	if body == "" {
		return nil, ErrEmptyMessage
	}
	if utf8.RuneCountInString(body) > MaxMessageLength {
		return nil, ErrMessageTooLong
	}

	msg := &domain.Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		Author:         author,
		Body:           body,
		Status:         domain.MessageSent,
		SentAt:         time.Now(),
	}

	var (
		participants []domain.Participant
		authorName   string
	)
	err := s.exec.RunScoped(ctx, author, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		if participants, err = s.checkParticipant(ctx, repos, conversationID, author); err != nil {
			return err
		}
		if err := repos.Conversations.CreateMessage(ctx, msg); err != nil {
			return fmt.Errorf("creating message: %w", err)
		}
		authorName, err = displayName(ctx, repos, author)
		return err
	})
	if err != nil {
		return nil, s.hiddenConversation(ctx, conversationID, err)
	}

	recipients := make([]domain.Identity, 0, len(participants))
	for _, p := range participants {
		recipients = append(recipients, p.Identity)
		if p.Identity == author {
			continue
		}
		s.notifier.Notify(ctx, author, p.Identity, domain.NotificationMessage,
			fmt.Sprintf("New message from %s", authorName),
			"/conversations/"+conversationID.String(),
		)
	}
	if s.publisher != nil {
		s.publisher.PublishMessage(recipients, msg)
	}
	return msg, nil
}

// ListMessages returns a page of messages, oldest first. Viewing marks every
// message from the other participants as read.
func (s *ConversationService) ListMessages(ctx context.Context, conversationID uuid.UUID, viewer domain.Identity, before *uuid.UUID, limit int) (*MessageListResponse, error) {
	limit = clampLimit(limit, 50, 100)

	var messages []domain.Message
	err := s.exec.RunScoped(ctx, viewer, func(ctx context.Context, repos repository.Repositories) error {
		if _, err := s.checkParticipant(ctx, repos, conversationID, viewer); err != nil {
			return err
		}
		if _, err := repos.Conversations.MarkRead(ctx, conversationID, viewer); err != nil {
			return fmt.Errorf("marking messages read: %w", err)
		}
		var err error
		messages, err = repos.Conversations.ListMessages(ctx, conversationID, before, limit+1)
		if err != nil {
			return fmt.Errorf("listing messages: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, s.hiddenConversation(ctx, conversationID, err)
	}

	hasMore := len(messages) > limit
	if hasMore {
		messages = messages[len(messages)-limit:]
	}
	if messages == nil {
		messages = []domain.Message{}
	}

	return &MessageListResponse{
		Messages: messages,
		HasMore:  hasMore,
	}, nil
}

// ListConversations returns the inbox of id: most recent activity first,
// conversations without messages last.
func (s *ConversationService) ListConversations(ctx context.Context, id domain.Identity) ([]domain.ConversationSummary, error) {
	var summaries []domain.ConversationSummary
	err := s.exec.RunScoped(ctx, id, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		summaries, err = repos.Conversations.ListSummaries(ctx, id)
		if err != nil {
			return fmt.Errorf("listing conversations: %w", err)
		}
		return nil
	}, repository.ReadOnly())
	if err != nil {
		return nil, err
	}

	for i := range summaries {
		if p := summaries[i].LastMessagePreview; p != nil {
			preview := textutil.Truncate(*p, previewLength)
			summaries[i].LastMessagePreview = &preview
		}
	}
	if summaries == nil {
		summaries = []domain.ConversationSummary{}
	}
	return summaries, nil
}

func (s *ConversationService) checkParticipant(ctx context.Context, repos repository.Repositories, conversationID uuid.UUID, id domain.Identity) ([]domain.Participant, error) {
	conv, err := repos.Conversations.GetByID(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("loading conversation: %w", err)
	}
	if conv == nil {
		return nil, ErrConversationNotFound
	}
	participants, err := repos.Conversations.ListParticipants(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("listing participants: %w", err)
	}
	if !slices.ContainsFunc(participants, func(p domain.Participant) bool { return p.Identity == id }) {
		return nil, ErrNotParticipant
	}
	return participants, nil
}

// hiddenConversation tells a conversation the caller cannot see apart from
// one that does not exist. Row visibility hides both the same way, so the
// distinction needs an unscoped existence probe.
func (s *ConversationService) hiddenConversation(ctx context.Context, conversationID uuid.UUID, err error) error {
	if !errors.Is(err, ErrConversationNotFound) {
		return err
	}
	probe := s.exec.RunUnscoped(ctx, func(ctx context.Context, repos repository.Repositories) error {
		conv, err := repos.Conversations.GetByID(ctx, conversationID)
		if err != nil {
			return fmt.Errorf("loading conversation: %w", err)
		}
		if conv != nil {
			return ErrNotParticipant
		}
		return nil
	}, repository.ReadOnly())
	if probe != nil {
		return probe
	}
	return err
}

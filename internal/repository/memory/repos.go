package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/campusnet/internal/domain"
	"github.com/vedran77/campusnet/internal/repository"
	"github.com/vedran77/campusnet/pkg/textutil"
)

type profileRepo struct{ t *txn }

func (r *profileRepo) GetByIdentity(ctx context.Context, id domain.Identity) (*domain.Profile, error) {
	if err := r.t.fault("profiles.GetByIdentity"); err != nil {
		return nil, err
	}
	p, ok := r.t.st.profiles[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *profileRepo) Exists(ctx context.Context, id domain.Identity) (bool, error) {
	if err := r.t.fault("profiles.Exists"); err != nil {
		return false, err
	}
	_, ok := r.t.st.profiles[id]
	return ok, nil
}

func (r *profileRepo) Search(ctx context.Context, viewer domain.Identity, fragment string, limit int) ([]domain.ProfileHit, error) {
	if err := r.t.fault("profiles.Search"); err != nil {
		return nil, err
	}
	needle := textutil.UnescapeLike(fragment)

	var hits []domain.ProfileHit
	for _, p := range r.t.st.profiles {
		if p.Identity == viewer {
			continue
		}
		if !strings.Contains(textutil.Fold(p.DisplayName), needle) &&
			!strings.Contains(strings.ToLower(p.Identity.String()), needle) {
			continue
		}
		hit := domain.ProfileHit{Profile: p}
		hit.Connection = domain.RelationshipFor(r.t.pairRequest(viewer, p.Identity), viewer)
		hits = append(hits, hit)
	}
	slices.SortFunc(hits, func(a, b domain.ProfileHit) int {
		return cmp.Or(cmp.Compare(a.DisplayName, b.DisplayName), cmp.Compare(a.Identity, b.Identity))
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// pairRequest returns the visible request between a and b, if any.
func (t *txn) pairRequest(a, b domain.Identity) *domain.ConnectionRequest {
	for _, req := range t.st.requests {
		if req.Involves(a) && req.Involves(b) && a != b && t.canSeeRequest(req) {
			return &req
		}
	}
	return nil
}

type connectionRepo struct{ t *txn }

func (r *connectionRepo) Create(ctx context.Context, req *domain.ConnectionRequest) error {
	if err := r.t.write("connections.Create"); err != nil {
		return err
	}
	if !req.Status.Valid() {
		return errCheck
	}
	if r.t.scoped() && !req.Involves(r.t.identity) {
		return errRowPolicy
	}
	if _, ok := r.t.st.requests[req.ID]; ok {
		return repository.ErrDuplicate
	}
	// Uniqueness on the unordered pair ignores visibility, like the index.
	for _, existing := range r.t.st.requests {
		if existing.Involves(req.Requester) && existing.Involves(req.Target) {
			return repository.ErrDuplicate
		}
	}
	stored := *req
	stored.RequesterName, stored.TargetName = "", ""
	r.t.st.requests[req.ID] = stored
	return nil
}

func (r *connectionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.ConnectionRequest, error) {
	if err := r.t.fault("connections.GetByID"); err != nil {
		return nil, err
	}
	return r.get(id), nil
}

// GetByIDForUpdate needs no row lock here; units are already serialised.
func (r *connectionRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.ConnectionRequest, error) {
	if err := r.t.fault("connections.GetByIDForUpdate"); err != nil {
		return nil, err
	}
	return r.get(id), nil
}

func (r *connectionRepo) get(id uuid.UUID) *domain.ConnectionRequest {
	req, ok := r.t.st.requests[id]
	if !ok || !r.t.canSeeRequest(req) {
		return nil
	}
	return &req
}

func (r *connectionRepo) GetByPair(ctx context.Context, a, b domain.Identity) (*domain.ConnectionRequest, error) {
	if err := r.t.fault("connections.GetByPair"); err != nil {
		return nil, err
	}
	return r.t.pairRequest(a, b), nil
}

func (r *connectionRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.ConnectionStatus, at time.Time) (bool, error) {
	if err := r.t.write("connections.UpdateStatus"); err != nil {
		return false, err
	}
	if !to.Valid() {
		return false, errCheck
	}
	req, ok := r.t.st.requests[id]
	if !ok || !r.t.canSeeRequest(req) || req.Status != from {
		return false, nil
	}
	req.Status = to
	req.RespondedAt = &at
	r.t.st.requests[id] = req
	return true, nil
}

func (r *connectionRepo) ListIncoming(ctx context.Context, id domain.Identity) ([]domain.ConnectionRequest, error) {
	if err := r.t.fault("connections.ListIncoming"); err != nil {
		return nil, err
	}
	return r.listPending(func(req domain.ConnectionRequest) bool { return req.Target == id }), nil
}

func (r *connectionRepo) ListOutgoing(ctx context.Context, id domain.Identity) ([]domain.ConnectionRequest, error) {
	if err := r.t.fault("connections.ListOutgoing"); err != nil {
		return nil, err
	}
	return r.listPending(func(req domain.ConnectionRequest) bool { return req.Requester == id }), nil
}

func (r *connectionRepo) listPending(match func(domain.ConnectionRequest) bool) []domain.ConnectionRequest {
	var reqs []domain.ConnectionRequest
	for _, req := range r.t.st.requests {
		if req.Status != domain.ConnectionPending || !match(req) || !r.t.canSeeRequest(req) {
			continue
		}
		requester, ok := r.t.st.profiles[req.Requester]
		target, ok2 := r.t.st.profiles[req.Target]
		if !ok || !ok2 {
			continue
		}
		req.RequesterName = requester.DisplayName
		req.TargetName = target.DisplayName
		reqs = append(reqs, req)
	}
	slices.SortFunc(reqs, func(a, b domain.ConnectionRequest) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return reqs
}

func (r *connectionRepo) ListConnections(ctx context.Context, id domain.Identity) ([]domain.Connection, error) {
	if err := r.t.fault("connections.ListConnections"); err != nil {
		return nil, err
	}
	var conns []domain.Connection
	for _, req := range r.t.st.requests {
		if req.Status != domain.ConnectionAccepted || !req.Involves(id) || !r.t.canSeeRequest(req) {
			continue
		}
		other := req.Requester
		if other == id {
			other = req.Target
		}
		p, ok := r.t.st.profiles[other]
		if !ok {
			continue
		}
		since := req.CreatedAt
		if req.RespondedAt != nil {
			since = *req.RespondedAt
		}
		conns = append(conns, domain.Connection{
			RequestID:        req.ID,
			OtherIdentity:    other,
			OtherDisplayName: p.DisplayName,
			Since:            since,
		})
	}
	slices.SortFunc(conns, func(a, b domain.Connection) int {
		return cmp.Compare(a.OtherDisplayName, b.OtherDisplayName)
	})
	return conns, nil
}

type conversationRepo struct{ t *txn }

func (r *conversationRepo) Create(ctx context.Context, conv *domain.Conversation) error {
	if err := r.t.write("conversations.Create"); err != nil {
		return err
	}
	if r.t.scoped() && conv.Creator != r.t.identity {
		return errRowPolicy
	}
	if _, ok := r.t.st.conversations[conv.ID]; ok {
		return repository.ErrDuplicate
	}
	if conv.Kind == domain.ConversationPrivate && conv.PairLow != nil && conv.PairHigh != nil {
		for _, existing := range r.t.st.conversations {
			if existing.Kind == domain.ConversationPrivate &&
				existing.PairLow != nil && *existing.PairLow == *conv.PairLow &&
				existing.PairHigh != nil && *existing.PairHigh == *conv.PairHigh {
				return repository.ErrDuplicate
			}
		}
	}
	stored := *conv
	stored.Participants = nil
	r.t.st.conversations[conv.ID] = stored
	return nil
}

func (r *conversationRepo) AddParticipant(ctx context.Context, p *domain.Participant) error {
	if err := r.t.write("conversations.AddParticipant"); err != nil {
		return err
	}
	conv, ok := r.t.st.conversations[p.ConversationID]
	if !ok {
		return errForeignKey
	}
	if r.t.scoped() && conv.Creator != r.t.identity {
		return errRowPolicy
	}
	if r.t.isParticipant(p.ConversationID, p.Identity) {
		return repository.ErrDuplicate
	}
	r.t.st.participants[p.ConversationID] = append(r.t.st.participants[p.ConversationID], *p)
	return nil
}

func (r *conversationRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Conversation, error) {
	if err := r.t.fault("conversations.GetByID"); err != nil {
		return nil, err
	}
	conv, ok := r.t.st.conversations[id]
	if !ok || !r.t.canSeeConversation(conv) {
		return nil, nil
	}
	return &conv, nil
}

func (r *conversationRepo) FindPrivateBetween(ctx context.Context, a, b domain.Identity) (*domain.Conversation, error) {
	if err := r.t.fault("conversations.FindPrivateBetween"); err != nil {
		return nil, err
	}
	lo, hi := domain.OrderedPair(a, b)
	for _, conv := range r.t.st.conversations {
		if conv.Kind != domain.ConversationPrivate || conv.PairLow == nil || conv.PairHigh == nil {
			continue
		}
		if *conv.PairLow == lo && *conv.PairHigh == hi && r.t.canSeeConversation(conv) {
			return &conv, nil
		}
	}
	return nil, nil
}

func (r *conversationRepo) ListParticipants(ctx context.Context, conversationID uuid.UUID) ([]domain.Participant, error) {
	if err := r.t.fault("conversations.ListParticipants"); err != nil {
		return nil, err
	}
	return r.participants(conversationID), nil
}

func (r *conversationRepo) participants(conversationID uuid.UUID) []domain.Participant {
	var out []domain.Participant
	member := !r.t.scoped() || r.t.isParticipant(conversationID, r.t.identity)
	for _, p := range r.t.st.participants[conversationID] {
		if member || p.Identity == r.t.identity {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b domain.Participant) int {
		return cmp.Or(a.JoinedAt.Compare(b.JoinedAt), cmp.Compare(a.Identity, b.Identity))
	})
	return out
}

func (r *conversationRepo) ListSummaries(ctx context.Context, id domain.Identity) ([]domain.ConversationSummary, error) {
	if err := r.t.fault("conversations.ListSummaries"); err != nil {
		return nil, err
	}
	var summaries []domain.ConversationSummary
	for _, conv := range r.t.st.conversations {
		if !r.t.isParticipant(conv.ID, id) || !r.t.canSeeConversation(conv) {
			continue
		}
		s := domain.ConversationSummary{Conversation: conv}
		s.Participants = r.participants(conv.ID)
		if last := r.latest(conv.ID); last != nil {
			body, at := last.Body, last.SentAt
			s.LastMessagePreview = &body
			s.LastMessageAt = &at
		}
		for _, m := range r.t.st.messages[conv.ID] {
			if m.Status == domain.MessageSent && m.Author != id {
				s.UnreadCount++
			}
		}
		summaries = append(summaries, s)
	}
	slices.SortFunc(summaries, func(a, b domain.ConversationSummary) int {
		switch {
		case a.LastMessageAt == nil && b.LastMessageAt != nil:
			return 1
		case a.LastMessageAt != nil && b.LastMessageAt == nil:
			return -1
		case a.LastMessageAt != nil && b.LastMessageAt != nil:
			if c := b.LastMessageAt.Compare(*a.LastMessageAt); c != 0 {
				return c
			}
		}
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return summaries, nil
}

func (r *conversationRepo) latest(conversationID uuid.UUID) *domain.Message {
	var last *domain.Message
	for i, m := range r.t.st.messages[conversationID] {
		if last == nil || compareMessages(m, *last) > 0 {
			last = &r.t.st.messages[conversationID][i]
		}
	}
	return last
}

func compareMessages(a, b domain.Message) int {
	return cmp.Or(a.SentAt.Compare(b.SentAt), cmp.Compare(a.Seq, b.Seq))
}

func (r *conversationRepo) CreateMessage(ctx context.Context, msg *domain.Message) error {
	if err := r.t.write("conversations.CreateMessage"); err != nil {
		return err
	}
	if _, ok := r.t.st.conversations[msg.ConversationID]; !ok {
		return errForeignKey
	}
	if r.t.scoped() && (msg.Author != r.t.identity || !r.t.isParticipant(msg.ConversationID, r.t.identity)) {
		return errRowPolicy
	}
	r.t.st.seq++
	msg.Seq = r.t.st.seq
	r.t.st.messages[msg.ConversationID] = append(r.t.st.messages[msg.ConversationID], *msg)
	return nil
}

func (r *conversationRepo) ListMessages(ctx context.Context, conversationID uuid.UUID, before *uuid.UUID, limit int) ([]domain.Message, error) {
	if err := r.t.fault("conversations.ListMessages"); err != nil {
		return nil, err
	}
	if r.t.scoped() && !r.t.isParticipant(conversationID, r.t.identity) {
		return nil, nil
	}
	all := slices.Clone(r.t.st.messages[conversationID])
	slices.SortFunc(all, compareMessages)

	end := len(all)
	if before != nil {
		end = slices.IndexFunc(all, func(m domain.Message) bool { return m.ID == *before })
		if end < 0 {
			return nil, nil
		}
	}
	start := max(end-limit, 0)
	page := all[start:end]
	if len(page) == 0 {
		return nil, nil
	}
	return page, nil
}

func (r *conversationRepo) MarkRead(ctx context.Context, conversationID uuid.UUID, viewer domain.Identity) (int64, error) {
	if err := r.t.write("conversations.MarkRead"); err != nil {
		return 0, err
	}
	if r.t.scoped() && !r.t.isParticipant(conversationID, r.t.identity) {
		return 0, nil
	}
	var n int64
	msgs := r.t.st.messages[conversationID]
	for i := range msgs {
		if msgs[i].Author == viewer || msgs[i].Status != domain.MessageSent {
			continue
		}
		if r.t.scoped() && msgs[i].Author == r.t.identity {
			continue
		}
		msgs[i].Status = domain.MessageRead
		n++
	}
	return n, nil
}

type notificationRepo struct{ t *txn }

func (r *notificationRepo) Create(ctx context.Context, n *domain.Notification) error {
	if err := r.t.write("notifications.Create"); err != nil {
		return err
	}
	if r.t.scoped() && n.Actor != r.t.identity {
		return errRowPolicy
	}
	if _, ok := r.t.st.notifications[n.ID]; ok {
		return repository.ErrDuplicate
	}
	r.t.st.notifications[n.ID] = *n
	return nil
}

func (r *notificationRepo) visible(n domain.Notification) bool {
	return !r.t.scoped() || n.Recipient == r.t.identity
}

func (r *notificationRepo) List(ctx context.Context, owner domain.Identity, unreadOnly bool, limit int) ([]domain.Notification, error) {
	if err := r.t.fault("notifications.List"); err != nil {
		return nil, err
	}
	var out []domain.Notification
	for _, n := range r.t.st.notifications {
		if n.Recipient != owner || !r.visible(n) || (unreadOnly && n.IsRead) {
			continue
		}
		out = append(out, n)
	}
	slices.SortFunc(out, func(a, b domain.Notification) int {
		return cmp.Or(b.CreatedAt.Compare(a.CreatedAt), cmp.Compare(a.ID.String(), b.ID.String()))
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *notificationRepo) MarkRead(ctx context.Context, id uuid.UUID, owner domain.Identity, at time.Time) (bool, error) {
	if err := r.t.write("notifications.MarkRead"); err != nil {
		return false, err
	}
	n, ok := r.t.st.notifications[id]
	if !ok || n.Recipient != owner || !r.visible(n) {
		return false, nil
	}
	n.IsRead = true
	if n.ReadAt == nil {
		n.ReadAt = &at
	}
	r.t.st.notifications[id] = n
	return true, nil
}

func (r *notificationRepo) MarkAllRead(ctx context.Context, owner domain.Identity, at time.Time) (int64, error) {
	if err := r.t.write("notifications.MarkAllRead"); err != nil {
		return 0, err
	}
	var count int64
	for id, n := range r.t.st.notifications {
		if n.Recipient != owner || n.IsRead || !r.visible(n) {
			continue
		}
		n.IsRead = true
		n.ReadAt = &at
		r.t.st.notifications[id] = n
		count++
	}
	return count, nil
}

func (r *notificationRepo) CountUnread(ctx context.Context, owner domain.Identity) (int, error) {
	if err := r.t.fault("notifications.CountUnread"); err != nil {
		return 0, err
	}
	var count int
	for _, n := range r.t.st.notifications {
		if n.Recipient == owner && !n.IsRead && r.visible(n) {
			count++
		}
	}
	return count, nil
}

type feedRepo struct{ t *txn }

func (r *feedRepo) ListFeed(ctx context.Context, viewer domain.Identity, before *time.Time, limit int) ([]domain.FeedItem, error) {
	if err := r.t.fault("feed.ListFeed"); err != nil {
		return nil, err
	}
	var items []domain.FeedItem
	for _, p := range r.t.st.posts {
		if before != nil && !p.CreatedAt.Before(*before) {
			continue
		}
		if p.Author != viewer && !r.connected(viewer, p.Author) {
			continue
		}
		author, ok := r.t.st.profiles[p.Author]
		if !ok {
			continue
		}
		items = append(items, domain.FeedItem{
			Post:          p,
			AuthorName:    author.DisplayName,
			LikeCount:     len(r.t.st.likes[p.ID]),
			CommentCount:  r.t.st.comments[p.ID],
			LikedByViewer: r.t.st.likes[p.ID][viewer],
		})
	}
	slices.SortFunc(items, func(a, b domain.FeedItem) int {
		return cmp.Or(b.CreatedAt.Compare(a.CreatedAt), cmp.Compare(b.ID.String(), a.ID.String()))
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (r *feedRepo) connected(a, b domain.Identity) bool {
	req := r.t.pairRequest(a, b)
	return req != nil && req.Status == domain.ConnectionAccepted
}

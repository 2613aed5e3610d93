package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/store"
)

const (
	msgChatPending    = "Chat initiated. This conversation is currently in 'Verification Pending' mode."
	msgOwnerMustProve = "Owner must provide the correct verification answer to unlock chat."
	msgVerified       = "Verification successful. You may now chat freely."
	msgRejected       = "Verification failed too many times. This chat has been closed."
	msgHandedOver     = "Item successfully handed over. This chat is now closed."
)

// ChatService is the per-match conversation. User messages need a verified
// match whose item has not been returned; system messages are always stored.
type ChatService struct {
	store  store.Store
	filter *ContentFilter
}

func NewChatService(st store.Store, filter *ContentFilter) *ChatService {
	return &ChatService{store: st, filter: filter}
}

// AppendSystem stores a service message. A non-empty visibleTo limits it to
// that participant.
func (s *ChatService) AppendSystem(ctx context.Context, matchID, text, visibleTo string) (*models.ChatMessage, error) {
	msg := &models.ChatMessage{
		MatchID:   matchID,
		SenderID:  models.SystemSender,
		Text:      text,
		VisibleTo: visibleTo,
	}
	if err := s.store.AppendMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to append system message: %w", err)
	}
	return msg, nil
}

// Send stores a user message. It reports false, storing nothing, while the
// channel is locked or closed.
func (s *ChatService) Send(ctx context.Context, sess Session, matchID, text string) (*models.ChatMessage, bool, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, false, ErrEmptyMessage
	}

	m, p, err := loadMatch(ctx, s.store, sess, matchID)
	if err != nil {
		return nil, false, err
	}
	if !channelOpen(m, p) {
		return nil, false, nil
	}
	if ok, reason := s.filter.CheckMessage(text); !ok {
		return nil, false, fmt.Errorf("%w: %s", ErrContentRejected, s.filter.RejectionMessage(reason))
	}

	msg := &models.ChatMessage{MatchID: m.ID, SenderID: sess.UserID, Text: text}
	if err := s.store.AppendMessage(ctx, msg); err != nil {
		return nil, false, fmt.Errorf("failed to store message: %w", err)
	}
	return msg, true, nil
}

// List returns the conversation in timestamp order, without system messages
// addressed to the other participant.
func (s *ChatService) List(ctx context.Context, sess Session, matchID string) ([]models.ChatMessage, error) {
	if _, _, err := loadMatch(ctx, s.store, sess, matchID); err != nil {
		return nil, err
	}
	all, err := s.store.ListMessages(ctx, matchID)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, msg := range all {
		if msg.VisibleFor(sess.UserID) {
			out = append(out, msg)
		}
	}
	return out, nil
}

func channelOpen(m *models.Match, p *Parties) bool {
	return m.Status == models.MatchVerified && p.Found != nil && p.Found.Status != models.StatusReturned
}

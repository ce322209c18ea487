package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/lunark-labs/drip/core"
	"github.com/lunark-labs/drip/ports"
)

const (
	// TopicLogin is published after a successful authentication.
	TopicLogin = "drip.auth.login"

	// TopicLogout is published after an explicit disconnect.
	TopicLogout = "drip.auth.logout"

	// TopicClaimConfirmed is published after a claim reaches confirmed.
	TopicClaimConfirmed = "drip.claim.confirmed"
)

// LoginEvent notifies about a new session.
type LoginEvent struct {
	Address   string `json:"address"`
	SessionID string `json:"session_id"`
}

// LogoutEvent notifies about an explicit disconnect.
type LogoutEvent struct {
	Address string `json:"address"`
}

// ClaimConfirmedEvent notifies about a settled claim.
type ClaimConfirmedEvent struct {
	TransactionID string    `json:"transaction_id"`
	Address       string    `json:"address"`
	Amount        string    `json:"amount"`
	SettlementRef string    `json:"settlement_ref"`
	ClaimedAt     time.Time `json:"claimed_at"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill.
type WatermillPublisher struct {
	publisher message.Publisher
}

// NewWatermillPublisher creates a new Watermill publisher.
func NewWatermillPublisher(publisher message.Publisher) ports.EventPublisher {
	return &WatermillPublisher{publisher: publisher}
}

func (p *WatermillPublisher) publish(topic string, event interface{}) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// PublishLogin publishes a login event.
func (p *WatermillPublisher) PublishLogin(ctx context.Context, address, sessionID string) error {
	return p.publish(TopicLogin, LoginEvent{Address: address, SessionID: sessionID})
}

// PublishLogout publishes a logout event.
func (p *WatermillPublisher) PublishLogout(ctx context.Context, address string) error {
	return p.publish(TopicLogout, LogoutEvent{Address: address})
}

// PublishClaimConfirmed publishes a claim-confirmed event.
func (p *WatermillPublisher) PublishClaimConfirmed(ctx context.Context, claim *core.ClaimTransaction) error {
	return p.publish(TopicClaimConfirmed, ClaimConfirmedEvent{
		TransactionID: claim.ID,
		Address:       claim.Address,
		Amount:        claim.Amount.StringFixed(2),
		SettlementRef: claim.SettlementRef,
		ClaimedAt:     claim.ClaimedAt,
	})
}

package ws

import (
	"encoding/json"

	"github.com/vedran77/campusnet/internal/domain"
)

// HubNotifier implements service.Publisher using the local Hub.
type HubNotifier struct {
	hub *Hub
}

func NewHubNotifier(hub *Hub) *HubNotifier {
	return &HubNotifier{hub: hub}
}

func (n *HubNotifier) PublishNotification(notif *domain.Notification) {
	data, err := EncodeEvent(EventTypeNotificationNew, notif)
	if err != nil {
		n.hub.logger.Error("ws notifier: marshal error", "error", err)
		return
	}
	n.hub.Deliver([]domain.Identity{notif.Recipient}, data)
}

func (n *HubNotifier) PublishMessage(recipients []domain.Identity, msg *domain.Message) {
	data, err := EncodeEvent(EventTypeMessageNew, msg)
	if err != nil {
		n.hub.logger.Error("ws notifier: marshal error", "error", err)
		return
	}
	n.hub.Deliver(recipients, data)
}

// EncodeEvent builds and serialises a server event.
func EncodeEvent(eventType string, payload any) ([]byte, error) {
	evt, err := NewEvent(eventType, payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(evt)
}

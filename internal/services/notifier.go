package services

// Change events pushed to a user's connected clients.
const (
	EventBatchesChanged = "batches_changed"
	EventConfigsChanged = "configs_changed"
)

// Notifier fans change events out to live clients.
type Notifier interface {
	Notify(userID, event string)
}

type nopNotifier struct{}

func (nopNotifier) Notify(string, string) {}

func notifierOrNop(n Notifier) Notifier {
	if n == nil {
		return nopNotifier{}
	}
	return n
}

package services

// Notifier pushes realtime events to websocket rooms. *brackets.Hub
// implements it.
type Notifier interface {
	BroadcastToRoom(room string, msgType string, payload interface{})
}

type noopNotifier struct{}

func (noopNotifier) BroadcastToRoom(string, string, interface{}) {}

func notifierOrNoop(n Notifier) Notifier {
	if n == nil {
		return noopNotifier{}
	}
	return n
}

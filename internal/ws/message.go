package ws

type EventType string

const (
	EventRecordsChanged EventType = "records_changed"
	EventError          EventType = "error"
)

// OutgoingMessage - то, что сервер отправляет клиенту.
type OutgoingMessage struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload,omitempty"`
}

// RecordsChangedPayload сообщает, что коллекция пользователя сохранена из другой сессии
// и клиенту стоит перечитать её через /api/records.
type RecordsChangedPayload struct {
	At string `json:"at"`
}

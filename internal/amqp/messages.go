package amqp

import (
	"fmt"
	"time"

	json "github.com/goccy/go-json"

	"expenseflow/internal/core"
)

// ExpenseEvent announces that an expense was submitted or changed status.
// It carries the full record so consumers need no access to the store.
type ExpenseEvent struct {
	Type      string       `json:"type"`
	Expense   core.Expense `json:"expense"`
	ActorID   int64        `json:"actorId"`
	Timestamp time.Time    `json:"timestamp"`
}

func NewExpenseEvent(eventType string, expense core.Expense, actorID int64) *ExpenseEvent {
	return &ExpenseEvent{
		Type:      eventType,
		Expense:   expense,
		ActorID:   actorID,
		Timestamp: time.Now().UTC(),
	}
}

func (m *ExpenseEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseEventFromJSON decodes an event and rejects one without a usable
// type or expense id.
func ExpenseEventFromJSON(data []byte) (*ExpenseEvent, error) {
	var msg ExpenseEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Type == "" || msg.Expense.ID <= 0 {
		return nil, fmt.Errorf("incomplete expense event (type %q, id %d)", msg.Type, msg.Expense.ID)
	}
	return &msg, nil
}

// PasswordResetMessage asks a mailer to send a reset link.
type PasswordResetMessage struct {
	Email     string    `json:"email"`
	Token     string    `json:"token"`
	Timestamp time.Time `json:"timestamp"`
}

func NewPasswordResetMessage(email, token string) *PasswordResetMessage {
	return &PasswordResetMessage{Email: email, Token: token, Timestamp: time.Now().UTC()}
}

func (m *PasswordResetMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func PasswordResetMessageFromJSON(data []byte) (*PasswordResetMessage, error) {
	var msg PasswordResetMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

package amqp

import (
	"encoding/json"
	"time"

	"finanze/internal/ports"
)

// ImportCompletedMessage announces that an owner's data was replaced by an
// import. It carries counts only; consumers read the rows from the database.
type ImportCompletedMessage struct {
	OwnerID           string    `json:"ownerId"`
	CategoriesCreated int       `json:"categoriesCreated"`
	MonthsCreated     int       `json:"monthsCreated"`
	ExpensesCreated   int       `json:"expensesCreated"`
	IncomesCreated    int       `json:"incomesCreated"`
	SkippedCount      int       `json:"skippedCount"`
	CompletedAt       time.Time `json:"completedAt"`
}

func NewImportCompletedMessage(ev ports.ImportEvent) *ImportCompletedMessage {
	completedAt := ev.CompletedAt
	if completedAt.IsZero() {
		completedAt = time.Now().UTC()
	}
	return &ImportCompletedMessage{
		OwnerID:           ev.OwnerID,
		CategoriesCreated: ev.Result.CategoriesCreated,
		MonthsCreated:     ev.Result.MonthsCreated,
		ExpensesCreated:   ev.Result.ExpensesCreated,
		IncomesCreated:    ev.Result.IncomesCreated,
		SkippedCount:      len(ev.Result.Skipped),
		CompletedAt:       completedAt,
	}
}

// ToJSON converts the message to JSON bytes
func (m *ImportCompletedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ImportCompletedMessageFromJSON(data []byte) (*ImportCompletedMessage, error) {
	var msg ImportCompletedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

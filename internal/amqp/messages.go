package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"budgetcal/internal/core"
)

// MonthChangedMessage tells consumers that the occurrences of one owner's
// month changed and any derived views of it are stale. It carries only the
// coordinates; the worker reloads from storage.
type MonthChangedMessage struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Year      int       `json:"year"`
	Month     int       `json:"month"`
	Timestamp time.Time `json:"timestamp"`
}

func NewMonthChangedMessage(ownerID string, ym core.YearMonth) *MonthChangedMessage {
	return &MonthChangedMessage{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Year:      ym.Year,
		Month:     ym.Month,
		Timestamp: time.Now(),
	}
}

// YearMonth returns the month the message points at.
func (m *MonthChangedMessage) YearMonth() core.YearMonth {
	return core.NewYearMonth(m.Year, m.Month)
}

func (m *MonthChangedMessage) Validate() error {
	if m.OwnerID == "" {
		return fmt.Errorf("month changed message %s: missing owner", m.ID)
	}
	return m.YearMonth().Validate()
}

func (m *MonthChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func MonthChangedMessageFromJSON(data []byte) (*MonthChangedMessage, error) {
	var msg MonthChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

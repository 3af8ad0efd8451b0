package orders

import "time"

const (
	FieldID        = "id"
	FieldCreatedAt = "created_at"

	// CreatedAtLayout is ISO-8601 in UTC with millisecond precision.
	CreatedAtLayout = "2006-01-02T15:04:05.000Z"
)

// Order is a stored order: whatever fields the caller sent, plus the server
// assigned id and created_at. Numbers are kept as json.Number.
type Order map[string]any

func (o Order) ID() string {
	id, _ := o[FieldID].(string)
	return id
}

func (o Order) CreatedAt() string {
	createdAt, _ := o[FieldCreatedAt].(string)
	return createdAt
}

// InMonth reports whether the order was created in month, given as YYYY-MM.
func (o Order) InMonth(month string) bool {
	createdAt := o.CreatedAt()
	return len(createdAt) >= 7 && createdAt[:7] == month
}

func formatCreatedAt(t time.Time) string {
	return t.UTC().Format(CreatedAtLayout)
}

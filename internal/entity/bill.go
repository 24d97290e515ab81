package entity

import (
	"time"

	"github.com/google/uuid"
)

// BillRecord is the six-field structured result extracted from one fuel
// bill page, plus bookkeeping. Records are immutable once extracted.
// Money and volume fields stay as strings: a field the model could not
// read is an empty string, which exports as an empty cell.
type BillRecord struct {
	ID        uuid.UUID `json:"id"`
	FileID    uuid.UUID `json:"file_id"`
	BillNo    string    `json:"bill_no"` // source filename stem, "_pageN" suffix for multi-page PDFs
	Page      int       `json:"page"`
	PumpName  string    `json:"pump_name"`
	Product   string    `json:"product"`   // Petrol | Diesel | ""
	BillDate  string    `json:"bill_date"` // DD/MM/YYYY or ""
	Volume    string    `json:"volume"`    // litres
	Rate      string    `json:"rate"`      // per litre
	Total     string    `json:"total"`
	CreatedAt time.Time `json:"created_at"`
}

// ParsedDate returns the bill date as a time, if it parses as DD/MM/YYYY.
func (b *BillRecord) ParsedDate() (time.Time, bool) {
	t, err := time.Parse("02/01/2006", b.BillDate)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

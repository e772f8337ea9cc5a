package weather

import (
	"fmt"
	"time"
)

const (
	dateKeyLayout   = "20060102"
	dateLabelLayout = "01/02/2006"
)

// ParseDateKey validates a YYYYMMDD key and pairs it with its MM/DD/YYYY label.
func ParseDateKey(key string) (DateEntry, error) {
	d, err := time.Parse(dateKeyLayout, key)
	if err != nil {
		return DateEntry{}, fmt.Errorf("invalid date key %q: %w", key, err)
	}
	return DateEntry{Label: d.Format(dateLabelLayout), Key: key}, nil
}

package service

import (
	"strings"
	"time"

	"github.com/airdroptracker/internal/model"
)

// DueRecord - активная запись с датой клейма в пределах горизонта.
type DueRecord struct {
	Record    model.Record `json:"record"`
	Index     int          `json:"index"`
	DaysUntil int          `json:"days_until"`
}

var dateLayouts = []string{model.DateLayout, "2006-01-02"}

// parseDate разбирает дату записи (YYYY/MM/DD или YYYY-MM-DD) как календарный день в UTC.
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// dayOf отбрасывает время суток, оставляя календарную дату t в её часовом поясе.
func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FindDue отбирает записи со статусом Active, у которых дата клейма наступает через 0..horizonDays дней
// от today. Записи без даты или с неразборчивой датой пропускаются. Порядок входа сохраняется.
func FindDue(records []model.Record, horizonDays int, today time.Time) []DueRecord {
	start := dayOf(today)
	var out []DueRecord
	for i, r := range records {
		if r.Status != model.StatusActive {
			continue
		}
		date, ok := parseDate(r.ExpectedDate)
		if !ok {
			continue
		}
		days := int(date.Sub(start).Hours() / 24)
		if days < 0 || days > horizonDays {
			continue
		}
		out = append(out, DueRecord{Record: r, Index: i, DaysUntil: days})
	}
	return out
}

package model

import (
	"strconv"
	"strings"
)

// Status протокола в трекере.
type Status string

const (
	StatusActive    Status = "Active"
	StatusCompleted Status = "Completed"
	StatusUpcoming  Status = "Upcoming"
)

// Valid - одно из трёх допустимых значений.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusCompleted, StatusUpcoming:
		return true
	}
	return false
}

// DateLayout - формат дат в записях (как в форме: YYYY/MM/DD).
const DateLayout = "2006/01/02"

// Record - отслеживаемый протокол. Адресуется позицией в коллекции владельца.
type Record struct {
	Protocol     string `json:"protocol"`
	Status       Status `json:"status"`
	ExpectedDate string `json:"expected_date"`
	Referral     string `json:"referral"`
	Notes        string `json:"notes"`
	Amount       string `json:"amount"`
	Tasks        string `json:"tasks"`
	Wallet       string `json:"wallet"`
	TxCount      int    `json:"tx_count"`
	Activity     string `json:"activity"`
}

// Заголовки колонок строкового представления записи.
const (
	ColProtocol     = "Protocol"
	ColStatus       = "Status"
	ColExpectedDate = "Expected Date"
	ColReferral     = "Referral"
	ColNotes        = "Notes"
	ColAmount       = "Amount"
	ColTasks        = "Tasks"
	ColWallet       = "Wallet"
	ColTxCount      = "TX Count"
	ColActivity     = "Activity"
)

// Columns - канонический порядок колонок.
var Columns = []string{
	ColProtocol, ColStatus, ColExpectedDate, ColReferral, ColNotes,
	ColAmount, ColTasks, ColWallet, ColTxCount, ColActivity,
}

// Row возвращает значения записи в порядке Columns.
func (r Record) Row() []string {
	return []string{
		r.Protocol, string(r.Status), r.ExpectedDate, r.Referral, r.Notes,
		r.Amount, r.Tasks, r.Wallet, strconv.Itoa(r.TxCount), r.Activity,
	}
}

// RecordFromRow собирает запись по заголовку. Недостающие ячейки (строка короче заголовка,
// частично записанные старые данные) заполняются значениями по умолчанию, как в форме: пустой
// статус - Active. Строка не отбрасывается.
// Пустой header означает порядок Columns.
func RecordFromRow(header, row []string) Record {
	if len(header) == 0 {
		header = Columns
	}
	cell := func(name string) string {
		for i, h := range header {
			if strings.EqualFold(strings.TrimSpace(h), name) {
				if i < len(row) {
					return strings.TrimSpace(row[i])
				}
				return ""
			}
		}
		return ""
	}
	status := Status(cell(ColStatus))
	if status == "" {
		status = StatusActive
	}
	txCount, err := strconv.Atoi(cell(ColTxCount))
	if err != nil || txCount < 0 {
		txCount = 0
	}
	return Record{
		Protocol:     cell(ColProtocol),
		Status:       status,
		ExpectedDate: cell(ColExpectedDate),
		Referral:     cell(ColReferral),
		Notes:        cell(ColNotes),
		Amount:       cell(ColAmount),
		Tasks:        cell(ColTasks),
		Wallet:       cell(ColWallet),
		TxCount:      txCount,
		Activity:     cell(ColActivity),
	}
}

// CloneRecords копирует срез, чтобы изменения не затрагивали коллекцию сессии.
func CloneRecords(in []Record) []Record {
	if in == nil {
		return nil
	}
	out := make([]Record, len(in))
	copy(out, in)
	return out
}

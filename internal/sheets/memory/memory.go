package memory

import (
	"context"
	"fmt"
	"sync"

	"fintrack/internal/core"
	"fintrack/internal/sheets"
)

// Mirror is an in-process TransactionMirror that keeps rows in insertion order.
type Mirror struct {
	mu   sync.Mutex
	rows [][]any
	ids  []string
}

var _ sheets.TransactionMirror = (*Mirror)(nil)

func New() *Mirror {
	return &Mirror{}
}

func (m *Mirror) Upsert(_ context.Context, tx core.Transaction) (string, error) {
	if tx.ID == "" {
		return "", fmt.Errorf("upsert: empty transaction id")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	values := sheets.RowValues(tx)
	for i, id := range m.ids {
		if id == tx.ID {
			m.rows[i] = values
			return rowRef(i), nil
		}
	}
	m.ids = append(m.ids, tx.ID)
	m.rows = append(m.rows, values)
	return rowRef(len(m.rows) - 1), nil
}

// Remove blanks the row but keeps its slot, like clearing a sheet range.
func (m *Mirror) Remove(_ context.Context, _ core.Kind, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.ids {
		if existing == id {
			m.ids[i] = ""
			m.rows[i] = nil
			return nil
		}
	}
	return nil
}

// Rows returns the non-blank rows.
func (m *Mirror) Rows() [][]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]any, 0, len(m.rows))
	for _, r := range m.rows {
		if r != nil {
			out = append(out, append([]any(nil), r...))
		}
	}
	return out
}

// rowRef mimics a sheet reference; row 1 is the header.
func rowRef(i int) string {
	return fmt.Sprintf("mem!A%d", i+2)
}

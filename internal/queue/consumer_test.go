package queue

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatPurchaseCompleted(t *testing.T) {
	body, err := json.Marshal(PurchaseCompletedEvent{
		Type:       TypePurchaseCompleted,
		PurchaseID: 7,
		UserID:     3,
		Total:      "900.00",
		Items:      []EventItem{{SweetID: 1, SweetName: "Kaju Katli", Quantity: 2, UnitPrice: "450.00"}},
		CreatedAt:  "2026-01-02T03:04:05Z",
	})
	require.NoError(t, err)

	line, err := FormatEvent(body)
	require.NoError(t, err)
	assert.Equal(t, "[2026-01-02T03:04:05Z] Purchase completed | purchase_id=7 | user_id=3 | total=900.00 | items=[Kaju Katli x2 @ 450.00]", line)
}

func TestFormatStockRestocked(t *testing.T) {
	body, err := json.Marshal(StockRestockedEvent{
		Type: TypeStockRestocked, RestockID: 4, SweetID: 1, AdminID: 2,
		QuantityAdded: 50, NewQuantity: 65, RestockedAt: "2026-01-02T03:04:05Z",
	})
	require.NoError(t, err)

	line, err := FormatEvent(body)
	require.NoError(t, err)
	assert.Contains(t, line, "added=50 | new_quantity=65")
}

func TestFormatRejectsUnknown(t *testing.T) {
	_, err := FormatEvent([]byte(`{"type":"nope"}`))
	assert.Error(t, err)
	_, err = FormatEvent([]byte(`not json`))
	assert.Error(t, err)
}

func TestAppendEventWritesLine(t *testing.T) {
	dir := t.TempDir()
	body, _ := json.Marshal(StockRestockedEvent{Type: TypeStockRestocked, RestockID: 1, SweetID: 2, QuantityAdded: 3, NewQuantity: 3})
	require.NoError(t, appendEvent(dir, body))
	require.NoError(t, appendEvent(dir, body))

	data, err := os.ReadFile(filepath.Join(dir, "events.log"))
	require.NoError(t, err)
	assert.Equal(t, 2, countLines(string(data)))
}

func countLines(s string) int {
	n := 0
	for _, r := range s {
		if r == '\n' {
			n++
		}
	}
	return n
}

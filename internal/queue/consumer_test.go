package queue

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/logger"
)

func newTestConsumer(t *testing.T) (*Consumer, string) {
	t.Helper()
	log, err := logger.InitLogger("slog", "test", "test", logger.WithLevel(logger.ErrorLevel))
	require.NoError(t, err)
	dir := t.TempDir()
	return NewConsumer("amqp://unused", dir, log), dir
}

func TestConsumer_HandleAppendsLogLines(t *testing.T) {
	c, dir := newTestConsumer(t)
	at := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

	for _, ev := range []BookingEvent{
		{Type: BookingConfirmed, BookingID: 11, UserID: 7, MovieName: "Dune", TheaterName: "Grand", ShowTiming: "18:00", NumberOfTickets: 3, AvailableSeats: 97, OccurredAt: at},
		{Type: BookingCancelled, BookingID: 11, UserID: 7, MovieName: "Dune", TheaterName: "Grand", ShowTiming: "18:00", NumberOfTickets: 3, AvailableSeats: 100, OccurredAt: at},
	} {
		body, err := json.Marshal(ev)
		require.NoError(t, err)
		require.NoError(t, c.Handle(body))
	}

	data, err := os.ReadFile(filepath.Join(dir, logFileName))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "Booking confirmed | booking_id=11")
	assert.Contains(t, lines[0], `movie="Dune"`)
	assert.Contains(t, lines[1], "Booking cancelled")
	assert.Contains(t, lines[1], "available=100")
}

func TestConsumer_HandleRejectsBadPayloads(t *testing.T) {
	c, _ := newTestConsumer(t)

	assert.Error(t, c.Handle([]byte("{not json")))
	assert.ErrorContains(t, c.Handle([]byte(`{"type":"booking.refunded"}`)), "unknown event type")
}

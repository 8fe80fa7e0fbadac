// Package journal persists the run's audit trail in a write-ahead log so a
// crash mid-run leaves an inspectable prefix on disk.
package journal

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/folio/internal/domain"
	"github.com/vadiminshakov/gowal"
)

const (
	segmentThreshold = 1000
	maxSegments      = 100

	tradeKeyPrefix     = "trade_"
	rejectionKeyPrefix = "rejection_"
	equityKeyPrefix    = "equity_"
)

// EventType distinguishes journal entries on replay.
type EventType string

const (
	// EventTrade is an executed trade.
	EventTrade EventType = "trade"
	// EventRejection is a proposed trade that was not applied.
	EventRejection EventType = "rejection"
	// EventEquity is an equity curve point.
	EventEquity EventType = "equity"
)

// Event is one replayed journal entry.
type Event struct {
	Type      EventType
	Trade     domain.TradeRecord
	Rejection domain.Rejection
	Equity    domain.EquitySnapshot
}

// WALStore is a gowal-backed append-only journal bound to one run.
type WALStore struct {
	mu  sync.Mutex
	wal *gowal.Wal
	run string
}

// NewWALStore opens (or creates) the journal for a run in dir.
func NewWALStore(dir, run string) (*WALStore, error) {
	if run == "" {
		return nil, errors.New("run name is required")
	}

	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           "journal_",
		SegmentThreshold: segmentThreshold,
		MaxSegments:      maxSegments,
		IsInSyncDiskMode: true,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init run journal WAL")
	}

	return &WALStore{wal: wal, run: run}, nil
}

// RecordTrade appends an executed trade.
func (s *WALStore) RecordTrade(trade domain.TradeRecord) error {
	return s.append(tradeKeyPrefix, trade)
}

// RecordRejection appends a rejected order.
func (s *WALStore) RecordRejection(rejection domain.Rejection) error {
	return s.append(rejectionKeyPrefix, rejection)
}

// RecordEquity appends an equity curve point.
func (s *WALStore) RecordEquity(snapshot domain.EquitySnapshot) error {
	return s.append(equityKeyPrefix, snapshot)
}

func (s *WALStore) append(prefix string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "marshal journal entry")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	nextIndex := s.wal.CurrentIndex() + 1
	return s.wal.Write(nextIndex, fmt.Sprintf("%s%s", prefix, s.run), data)
}

// Events replays every journal entry in append order.
func (s *WALStore) Events() ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var events []Event
	for msg := range s.wal.Iterator() {
		switch {
		case strings.HasPrefix(msg.Key, tradeKeyPrefix):
			var trade domain.TradeRecord
			if err := json.Unmarshal(msg.Value, &trade); err != nil {
				return nil, errors.Wrap(err, "decode trade entry")
			}
			events = append(events, Event{Type: EventTrade, Trade: trade})
		case strings.HasPrefix(msg.Key, rejectionKeyPrefix):
			var rejection domain.Rejection
			if err := json.Unmarshal(msg.Value, &rejection); err != nil {
				return nil, errors.Wrap(err, "decode rejection entry")
			}
			events = append(events, Event{Type: EventRejection, Rejection: rejection})
		case strings.HasPrefix(msg.Key, equityKeyPrefix):
			var snapshot domain.EquitySnapshot
			if err := json.Unmarshal(msg.Value, &snapshot); err != nil {
				return nil, errors.Wrap(err, "decode equity entry")
			}
			events = append(events, Event{Type: EventEquity, Equity: snapshot})
		}
	}

	return events, nil
}

// Close closes the underlying WAL.
func (s *WALStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wal.Close()
}

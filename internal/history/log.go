// Package history implements the append-only, never-mutated record of
// every accepted announcement and withdrawal (spec.md §4.C). It is the
// source of truth disaggregation (spec.md §4.E) replays from.
package history

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/route-beacon/as-router/internal/addr"
)

var (
	encoder *zstd.Encoder
	decoder *zstd.Decoder
)

func init() {
	var err error
	encoder, err = zstd.NewWriter(nil)
	if err != nil {
		panic(fmt.Sprintf("history: zstd encoder init: %v", err))
	}
	decoder, err = zstd.NewReader(nil)
	if err != nil {
		panic(fmt.Sprintf("history: zstd decoder init: %v", err))
	}
}

// announceRecord is an accepted update frame, compressed at rest.
// compressed holds the full incoming wire.Frame bytes (not just the
// update payload) because replay needs the frame's src to recompute
// next_hop.
type announceRecord struct {
	compressed []byte
}

// withdrawRecord is an accepted withdraw, with its source neighbor kept
// alongside it the way spec.md §4.C describes: "(message, source
// neighbor)".
type withdrawRecord struct {
	compressed []byte
	source     addr.Address
}

// Log holds the two append-only sequences spec.md §4.C describes:
// announcements and withdrawals, in arrival order.
type Log struct {
	announcements []announceRecord
	withdrawals   []withdrawRecord
}

// New returns an empty history log.
func New() *Log {
	return &Log{}
}

// AppendAnnounce records an accepted update frame verbatim.
func (l *Log) AppendAnnounce(frame []byte) error {
	c, err := compress(frame)
	if err != nil {
		return err
	}
	l.announcements = append(l.announcements, announceRecord{compressed: c})
	return nil
}

// AppendWithdraw records an accepted withdraw frame and the neighbor it
// arrived from.
func (l *Log) AppendWithdraw(frame []byte, source addr.Address) error {
	c, err := compress(frame)
	if err != nil {
		return err
	}
	l.withdrawals = append(l.withdrawals, withdrawRecord{compressed: c, source: source})
	return nil
}

// AnnounceCount and WithdrawCount report the current log lengths, used
// by the metrics layer.
func (l *Log) AnnounceCount() int { return len(l.announcements) }
func (l *Log) WithdrawCount() int { return len(l.withdrawals) }

// ReplayAnnounces decompresses and yields every announcement frame in
// arrival order. The callback's error, if any, aborts the replay.
func (l *Log) ReplayAnnounces(fn func(frame []byte) error) error {
	for i, rec := range l.announcements {
		raw, err := decompress(rec.compressed)
		if err != nil {
			return fmt.Errorf("history: decompress announcement %d: %w", i, err)
		}
		if err := fn(raw); err != nil {
			return err
		}
	}
	return nil
}

// ReplayWithdrawals decompresses and yields every withdrawal frame (and
// its recorded source neighbor) in arrival order.
func (l *Log) ReplayWithdrawals(fn func(frame []byte, source addr.Address) error) error {
	for i, rec := range l.withdrawals {
		raw, err := decompress(rec.compressed)
		if err != nil {
			return fmt.Errorf("history: decompress withdrawal %d: %w", i, err)
		}
		if err := fn(raw, rec.source); err != nil {
			return err
		}
	}
	return nil
}

func compress(raw []byte) ([]byte, error) {
	return encoder.EncodeAll(raw, nil), nil
}

func decompress(compressed []byte) ([]byte, error) {
	raw, err := decoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("history: zstd decode: %w", err)
	}
	return raw, nil
}

// Package reactor implements the single-state, message-driven router
// core (spec.md §4.G, §5): the update/withdraw/data/dump handlers and
// the commercial-relationship export policy. It is the only thing that
// ever touches the RIB, the history log, or the neighbor registry — all
// three are owned by one Reactor and mutated synchronously, one message
// at a time (spec.md §5 Concurrency & Resource Model).
package reactor

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/route-beacon/as-router/internal/addr"
	"github.com/route-beacon/as-router/internal/history"
	"github.com/route-beacon/as-router/internal/metrics"
	"github.com/route-beacon/as-router/internal/neighbor"
	"github.com/route-beacon/as-router/internal/rib"
	"github.com/route-beacon/as-router/internal/transport"
	"github.com/route-beacon/as-router/internal/wire"
)

// Reactor is one AS router: its RIB, history log, and neighbor registry,
// plus the AS number it stamps onto re-advertised routes.
type Reactor struct {
	asn      uint32
	registry *neighbor.Registry
	table    *rib.Table
	history  *history.Log
	logger   *zap.Logger
}

// New constructs a reactor over an already-populated neighbor registry.
// The RIB and history log start empty.
func New(asn uint32, registry *neighbor.Registry, logger *zap.Logger) *Reactor {
	return &Reactor{
		asn:      asn,
		registry: registry,
		table:    rib.NewTable(),
		history:  history.New(),
		logger:   logger,
	}
}

// Table exposes the current RIB for read-only inspection (the HTTP
// debug surface and tests use this; handlers are the only writers).
func (r *Reactor) Table() *rib.Table { return r.table }

// SendHandshakes emits the startup handshake frame to every neighbor
// (spec.md §6).
func (r *Reactor) SendHandshakes() {
	for _, n := range r.registry.All() {
		frame, err := wire.Encode(addr.SelfAddr(n.Address).String(), n.Address.String(), wire.Handshake, wire.EmptyMsg{})
		if err != nil {
			r.logger.Error("failed to encode handshake", zap.Error(err))
			continue
		}
		if err := n.Link.Send(frame); err != nil {
			r.logger.Error("failed to send handshake", zap.Stringer("neighbor", n.Address), zap.Error(err))
		}
	}
}

// Run consumes inbound datagrams from the dispatcher until ctx is
// cancelled, dispatching each to Handle in arrival order. It is the sole
// consumer of d.Inbound(); spec.md §5's "messages from a single neighbor
// processed in arrival order, interleaving across neighbors
// non-deterministic but atomic per message" falls out of that.
func (r *Reactor) Run(ctx context.Context, d *transport.Dispatcher) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case in := <-d.Inbound():
			r.Handle(in.Frame)
		case e := <-d.Errors():
			r.logger.Warn("transport read error", zap.Stringer("neighbor", e.Neighbor), zap.Error(e.Err))
		case <-ticker.C:
			metrics.RIBEntries.WithLabelValues().Set(float64(r.table.Len()))
		}
	}
}

// Handle dispatches one raw frame by type. Nothing here is fatal
// (spec.md §7): malformed input, an unknown source, and policy
// rejections are all logged and dropped, never returned as an error
// that could abort the loop.
func (r *Reactor) Handle(raw []byte) {
	frame, err := wire.ParseFrame(raw)
	if err != nil {
		r.logger.Warn("dropping malformed frame", zap.Error(err))
		metrics.MessagesTotal.WithLabelValues("unknown", "dropped").Inc()
		return
	}

	srcAddr, err := addr.ToInt(frame.Src)
	if err != nil {
		r.logger.Warn("dropping frame with unparseable src", zap.String("src", frame.Src), zap.Error(err))
		metrics.MessagesTotal.WithLabelValues(string(frame.Type), "dropped").Inc()
		return
	}
	src, ok := r.registry.Lookup(srcAddr)
	if !ok {
		r.logger.Warn("dropping frame from unknown neighbor", zap.Stringer("src", srcAddr))
		metrics.MessagesTotal.WithLabelValues(string(frame.Type), "dropped").Inc()
		return
	}

	switch frame.Type {
	case wire.Handshake:
		r.logger.Debug("handshake received", zap.Stringer("neighbor", src.Address))
		metrics.MessagesTotal.WithLabelValues("handshake", "admitted").Inc()
	case wire.Update:
		r.handleUpdate(raw, frame, src)
	case wire.Withdraw:
		r.handleWithdraw(raw, frame, src)
	case wire.Data:
		r.handleData(frame, src)
	case wire.Dump:
		r.handleDump(frame, src)
	default:
		r.logger.Warn("dropping frame of unexpected type", zap.String("type", string(frame.Type)))
		metrics.MessagesTotal.WithLabelValues(string(frame.Type), "dropped").Inc()
	}
}

// buildEntry applies spec.md §4.G handle_update step 1: parse the
// payload and compute the stored RouteEntry. Shared between the live
// path and disaggregation's replay of announcements.
func buildEntry(msg wire.UpdateMsg, srcNeighborAddr addr.Address) (rib.Entry, error) {
	prefix, err := addr.FromDotted(msg.Network, msg.Netmask)
	if err != nil {
		return rib.Entry{}, fmt.Errorf("reactor: update prefix: %w", err)
	}
	origin, err := rib.ParseOrigin(msg.Origin)
	if err != nil {
		return rib.Entry{}, fmt.Errorf("reactor: update origin: %w", err)
	}
	asPath := make([]int, len(msg.ASPath))
	copy(asPath, msg.ASPath)
	return rib.Entry{
		Prefix:     prefix,
		NextHop:    addr.PeerAddr(srcNeighborAddr),
		LocalPref:  msg.LocalPref,
		ASPath:     asPath,
		SelfOrigin: msg.SelfOrigin,
		Origin:     origin,
	}, nil
}

func (r *Reactor) handleUpdate(raw []byte, frame wire.Frame, src *neighbor.Neighbor) {
	msg, err := wire.ParseUpdateMsg(frame.Msg)
	if err != nil {
		r.logger.Warn("dropping malformed update", zap.Error(err))
		metrics.MessagesTotal.WithLabelValues("update", "dropped").Inc()
		return
	}
	entry, err := buildEntry(msg, src.Address)
	if err != nil {
		r.logger.Warn("dropping malformed update", zap.Error(err))
		metrics.MessagesTotal.WithLabelValues("update", "dropped").Inc()
		return
	}

	r.table.Add(entry)
	if err := r.history.AppendAnnounce(raw); err != nil {
		r.logger.Error("failed to append announcement to history", zap.Error(err))
	} else {
		metrics.HistoryRecordsTotal.WithLabelValues("announce").Inc()
	}

	merges := rib.Aggregate(r.table)
	if merges > 0 {
		metrics.AggregationMergesTotal.Add(float64(merges))
		r.logger.Info("aggregation merged routes", zap.Int("merges", merges), zap.Int("rib_size", r.table.Len()))
	}
	metrics.MessagesTotal.WithLabelValues("update", "admitted").Inc()

	advertise := wire.AdvertiseMsg{
		Network: msg.Network,
		Netmask: msg.Netmask,
		ASPath:  append([]int{int(r.asn)}, entry.ASPath...),
	}
	r.forward(src, wire.Update, advertise)
}

func (r *Reactor) handleWithdraw(raw []byte, frame wire.Frame, src *neighbor.Neighbor) {
	withdrawn, err := wire.ParseWithdrawMsg(frame.Msg)
	if err != nil {
		r.logger.Warn("dropping malformed withdraw", zap.Error(err))
		metrics.MessagesTotal.WithLabelValues("withdraw", "dropped").Inc()
		return
	}

	// Step 1: append this withdrawal to history first, so disaggregation's
	// replay removes its prefixes on the non-aggregated table rather than
	// against an already-aggregated super-prefix (spec.md §4.G
	// handle_withdraw, §4.E disaggregation).
	if err := r.history.AppendWithdraw(raw, src.Address); err != nil {
		r.logger.Error("failed to append withdrawal to history", zap.Error(err))
	} else {
		metrics.HistoryRecordsTotal.WithLabelValues("withdraw").Inc()
	}

	// Step 2: disaggregation replays every announcement and withdrawal,
	// including the one just appended, then aggregates once.
	merges, err := r.disaggregate()
	if err != nil {
		r.logger.Error("disaggregation failed", zap.Error(err))
		metrics.MessagesTotal.WithLabelValues("withdraw", "dropped").Inc()
		return
	}
	if merges > 0 {
		metrics.AggregationMergesTotal.Add(float64(merges))
	}

	metrics.MessagesTotal.WithLabelValues("withdraw", "admitted").Inc()

	r.forward(src, wire.Withdraw, withdrawn)
}

// disaggregate implements spec.md §4.E: clear the RIB, replay every
// announcement without aggregating, replay every withdrawal without
// aggregating, then aggregate once. Returns the merge count from that
// final aggregation pass, for the caller's metrics.
func (r *Reactor) disaggregate() (int, error) {
	r.table.Clear()

	if err := r.history.ReplayAnnounces(func(frame []byte) error {
		f, err := wire.ParseFrame(frame)
		if err != nil {
			return fmt.Errorf("reactor: replay: re-parsing stored announcement: %w", err)
		}
		srcAddr, err := addr.ToInt(f.Src)
		if err != nil {
			return fmt.Errorf("reactor: replay: stored announcement src: %w", err)
		}
		msg, err := wire.ParseUpdateMsg(f.Msg)
		if err != nil {
			return fmt.Errorf("reactor: replay: stored announcement payload: %w", err)
		}
		entry, err := buildEntry(msg, srcAddr)
		if err != nil {
			return fmt.Errorf("reactor: replay: rebuilding entry: %w", err)
		}
		r.table.Add(entry)
		return nil
	}); err != nil {
		return 0, err
	}

	if err := r.history.ReplayWithdrawals(func(frame []byte, source addr.Address) error {
		f, err := wire.ParseFrame(frame)
		if err != nil {
			return fmt.Errorf("reactor: replay: re-parsing stored withdrawal: %w", err)
		}
		withdrawn, err := wire.ParseWithdrawMsg(f.Msg)
		if err != nil {
			return fmt.Errorf("reactor: replay: stored withdrawal payload: %w", err)
		}
		nextHop := addr.PeerAddr(source)
		for _, w := range withdrawn {
			prefix, err := addr.FromDotted(w.Network, w.Netmask)
			if err != nil {
				continue
			}
			r.table.RemoveMatching(prefix, nextHop)
		}
		return nil
	}); err != nil {
		return 0, err
	}

	return rib.Aggregate(r.table), nil
}

func (r *Reactor) handleData(frame wire.Frame, src *neighbor.Neighbor) {
	dst, err := addr.ToInt(frame.Dst)
	if err != nil {
		r.logger.Warn("dropping data frame with unparseable dst", zap.String("dst", frame.Dst), zap.Error(err))
		metrics.MessagesTotal.WithLabelValues("data", "dropped").Inc()
		return
	}

	best, ok := rib.Select(r.table, dst)
	if !ok {
		r.sendNoRoute(frame, src)
		metrics.MessagesTotal.WithLabelValues("data", "no_route").Inc()
		return
	}

	nextNeighbor, ok := r.registry.Lookup(best.NextHop)
	if !ok {
		r.logger.Error("selected route's next_hop is not a known neighbor", zap.Stringer("next_hop", best.NextHop))
		metrics.MessagesTotal.WithLabelValues("data", "dropped").Inc()
		return
	}

	if src.Relation != neighbor.Customer && nextNeighbor.Relation != neighbor.Customer {
		// No-transit rule for the data plane (spec.md §4.G handle_data step 3).
		metrics.ExportDropsTotal.WithLabelValues("no_transit").Inc()
		return
	}

	frameBytes, err := wire.Encode(frame.Src, frame.Dst, wire.Data, frame.Msg)
	if err != nil {
		r.logger.Error("failed to re-encode data frame", zap.Error(err))
		return
	}
	if err := nextNeighbor.Link.Send(frameBytes); err != nil {
		r.logger.Warn("failed to forward data frame", zap.Stringer("next_hop", nextNeighbor.Address), zap.Error(err))
		metrics.ExportDropsTotal.WithLabelValues("transport").Inc()
		return
	}
	metrics.MessagesTotal.WithLabelValues("data", "admitted").Inc()
}

func (r *Reactor) sendNoRoute(frame wire.Frame, src *neighbor.Neighbor) {
	reply, err := wire.Encode(addr.SelfAddr(src.Address).String(), frame.Src, wire.NoRoute, wire.EmptyMsg{})
	if err != nil {
		r.logger.Error("failed to encode no-route reply", zap.Error(err))
		return
	}
	if err := src.Link.Send(reply); err != nil {
		r.logger.Warn("failed to send no-route reply", zap.Stringer("neighbor", src.Address), zap.Error(err))
	}
}

func (r *Reactor) handleDump(frame wire.Frame, src *neighbor.Neighbor) {
	msg := make(wire.TableMsg, 0, r.table.Len())
	for _, e := range r.table.Entries() {
		asPath := make([]int, len(e.ASPath))
		copy(asPath, e.ASPath)
		msg = append(msg, wire.TableEntry{
			Network:    e.Prefix.Network.String(),
			Netmask:    e.Prefix.Netmask(),
			Peer:       e.NextHop.String(),
			LocalPref:  e.LocalPref,
			ASPath:     asPath,
			SelfOrigin: e.SelfOrigin,
			Origin:     string(e.Origin),
		})
	}
	reply, err := wire.Encode(addr.SelfAddr(src.Address).String(), frame.Src, wire.Table, msg)
	if err != nil {
		r.logger.Error("failed to encode table dump", zap.Error(err))
		return
	}
	if err := src.Link.Send(reply); err != nil {
		r.logger.Warn("failed to send table dump", zap.Stringer("neighbor", src.Address), zap.Error(err))
		return
	}
	metrics.MessagesTotal.WithLabelValues("dump", "admitted").Inc()
}

// forward applies the no-transit export policy (spec.md §4.G) and
// re-emits payload to every eligible neighbor other than src.
func (r *Reactor) forward(src *neighbor.Neighbor, typ wire.Type, payload any) {
	for _, n := range r.registry.All() {
		if n.Address == src.Address {
			continue
		}
		if !ExportPolicy(src.Relation, n.Relation) {
			metrics.ExportDropsTotal.WithLabelValues("policy").Inc()
			continue
		}
		frame, err := wire.Encode(addr.SelfAddr(n.Address).String(), n.Address.String(), typ, payload)
		if err != nil {
			r.logger.Error("failed to encode outgoing frame", zap.Error(err))
			continue
		}
		if err := n.Link.Send(frame); err != nil {
			r.logger.Warn("failed to forward frame", zap.Stringer("neighbor", n.Address), zap.Error(err))
			metrics.ExportDropsTotal.WithLabelValues("transport").Inc()
		}
	}
}

// ExportPolicy implements spec.md §4.G's no-transit rule: a customer's
// announcements go to everyone; a peer's or provider's go only to
// customers.
func ExportPolicy(source, candidate neighbor.Relation) bool {
	if source == neighbor.Customer {
		return true
	}
	return candidate == neighbor.Customer
}

package server

import (
	"log/slog"
	"sync"
)

// Connection is one live client session held by the Dispatcher. Send must
// not block: transports queue the payload and report an error when the
// session is unusable.
type Connection interface {
	ID() string
	Send(data []byte) error
	Close() error
}

// Broadcaster is the mutation-side view of the fan-out: handlers hand a
// payload over and never learn whether any client received it.
type Broadcaster interface {
	Broadcast(payload []byte)
}

// Dispatcher tracks all open connections and fans broadcast payloads out to
// them. It is the single owner of the connection set: transports register a
// connection after accepting it and unregister it once the channel closes.
type Dispatcher struct {
	logger *slog.Logger
	mu     sync.RWMutex
	conns  map[string]Connection
}

func NewDispatcher(logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		logger: logger,
		conns:  make(map[string]Connection),
	}
}

func (d *Dispatcher) Register(conn Connection) {
	d.mu.Lock()
	d.conns[conn.ID()] = conn
	count := len(d.conns)
	d.mu.Unlock()

	d.logger.Info("client connected", "connId", conn.ID(), "clients", count)
}

// Unregister removes a connection. Removing one that was never registered,
// or was already removed, is a no-op.
func (d *Dispatcher) Unregister(conn Connection) {
	d.mu.Lock()
	_, ok := d.conns[conn.ID()]
	delete(d.conns, conn.ID())
	count := len(d.conns)
	d.mu.Unlock()

	if ok {
		d.logger.Info("client disconnected", "connId", conn.ID(), "clients", count)
	}
}

// Broadcast delivers payload to every registered connection, best effort.
// Delivery is attempted against a snapshot of the membership so that
// registrations and closures racing with the broadcast cannot corrupt the
// sweep. A failed Send never aborts delivery to the remaining connections;
// the failed connection is dropped after the sweep.
func (d *Dispatcher) Broadcast(payload []byte) {
	d.mu.RLock()
	targets := make([]Connection, 0, len(d.conns))
	for _, conn := range d.conns {
		targets = append(targets, conn)
	}
	d.mu.RUnlock()

	var dead []Connection
	for _, conn := range targets {
		if err := conn.Send(payload); err != nil {
			d.logger.Debug("dropping unreachable client", "connId", conn.ID(), "error", err)
			dead = append(dead, conn)
		}
	}

	for _, conn := range dead {
		d.Unregister(conn)
		conn.Close()
	}
}

func (d *Dispatcher) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.conns)
}

// Close tears the registry down at server shutdown, closing every remaining
// connection.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for id, conn := range d.conns {
		conn.Close()
		delete(d.conns, id)
	}
	return nil
}

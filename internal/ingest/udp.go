package ingest

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/ethogram-labs/affect.monitor/internal/monitoring"
)

// UDPListener receives one affect reading per datagram from perception
// processes and hands decoded readings to a Handler. Malformed
// datagrams are counted and logged, never fatal.
type UDPListener struct {
	address     string
	rcvBuf      int
	logInterval time.Duration
	conn        *net.UDPConn
	stats       StatsInterface
	handler     Handler
}

// UDPListenerConfig contains configuration options for the UDP listener.
type UDPListenerConfig struct {
	Address     string
	RcvBuf      int
	LogInterval time.Duration
	Stats       StatsInterface
	Handler     Handler
}

// NewUDPListener creates a new UDP listener with the provided
// configuration.
func NewUDPListener(config UDPListenerConfig) *UDPListener {
	// Provide a no-op stats implementation when none is supplied to
	// avoid nil checks in the datagram handling and logging paths.
	var stats StatsInterface
	if config.Stats != nil {
		stats = config.Stats
	} else {
		stats = noopStats{}
	}

	logInterval := config.LogInterval
	if logInterval == 0 {
		logInterval = time.Minute
	}

	rcvBuf := config.RcvBuf
	if rcvBuf == 0 {
		rcvBuf = 1 << 16
	}

	return &UDPListener{
		address:     config.Address,
		rcvBuf:      rcvBuf,
		logInterval: logInterval,
		stats:       stats,
		handler:     config.Handler,
	}
}

// Start begins listening for datagrams and processing them until the
// context is cancelled.
func (l *UDPListener) Start(ctx context.Context) error {
	addr, err := net.ResolveUDPAddr("udp", l.address)
	if err != nil {
		return fmt.Errorf("failed to resolve UDP address: %w", err)
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on UDP address: %w", err)
	}
	l.conn = conn
	defer conn.Close()

	if err := conn.SetReadBuffer(l.rcvBuf); err != nil {
		monitoring.Logf("warning: failed to set UDP receive buffer size to %d: %v", l.rcvBuf, err)
	}

	monitoring.Logf("UDP listener started on %s with receive buffer %d bytes", l.address, l.rcvBuf)

	go l.startStatsLogging(ctx)

	// Readings are short ASCII lines; 512 bytes is generous.
	buffer := make([]byte, 512)

	for {
		select {
		case <-ctx.Done():
			monitoring.Logf("UDP listener stopping due to context cancellation")
			return ctx.Err()
		default:
			// Short read deadline so context cancellation is noticed.
			conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))

			n, remote, err := conn.ReadFromUDP(buffer)
			if err != nil {
				if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
					continue
				}
				if ctx.Err() != nil {
					return ctx.Err()
				}
				monitoring.Logf("UDP read error: %v", err)
				continue
			}

			if err := l.handleDatagram(buffer[:n]); err != nil {
				monitoring.Logf("error handling datagram from %v: %v", remote, err)
			}
		}
	}
}

// startStatsLogging periodically logs datagram statistics. An initial
// report fires shortly after startup to avoid a long silence on first
// run.
func (l *UDPListener) startStatsLogging(ctx context.Context) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(2 * time.Second):
		l.stats.LogStats()
	}

	ticker := time.NewTicker(l.logInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.stats.LogStats()
		}
	}
}

// handleDatagram decodes one datagram and routes the reading.
func (l *UDPListener) handleDatagram(payload []byte) error {
	l.stats.AddDatagram(len(payload))

	reading, err := ParseDatagram(payload)
	if err != nil {
		l.stats.AddMalformed()
		return err
	}

	if l.handler != nil {
		if err := l.handler.HandleReading(reading); err != nil {
			l.stats.AddDropped()
			return err
		}
	}
	return nil
}

// Close closes the UDP listener and releases resources.
func (l *UDPListener) Close() error {
	if l.conn != nil {
		return l.conn.Close()
	}
	return nil
}

package ingest

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/ethogram-labs/affect.monitor/internal/monitoring"
)

// ReplayPCAP replays a capture of the live UDP stream through the same
// datagram codec the listener uses. Only UDP packets addressed to
// udpPort are considered; a udpPort of 0 accepts any port. Malformed
// payloads are counted and skipped. Returns the number of readings
// delivered.
func ReplayPCAP(ctx context.Context, path string, udpPort int, stats StatsInterface, handler Handler) (int, error) {
	if stats == nil {
		stats = noopStats{}
	}

	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open pcap file %s: %w", path, err)
	}
	defer f.Close()

	reader, err := pcapgo.NewReader(f)
	if err != nil {
		return 0, fmt.Errorf("failed to read pcap header: %w", err)
	}

	packetCount := 0
	delivered := 0
	for {
		select {
		case <-ctx.Done():
			monitoring.Logf("pcap replay stopping due to context cancellation (processed %d packets)", packetCount)
			return delivered, ctx.Err()
		default:
		}

		data, _, err := reader.ReadPacketData()
		if err == io.EOF {
			monitoring.Logf("pcap replay complete: %d packets, %d readings delivered", packetCount, delivered)
			return delivered, nil
		}
		if err != nil {
			return delivered, fmt.Errorf("read packet %d: %w", packetCount, err)
		}
		packetCount++

		packet := gopacket.NewPacket(data, reader.LinkType(), gopacket.Default)
		udpLayer := packet.Layer(layers.LayerTypeUDP)
		if udpLayer == nil {
			continue
		}
		udp, ok := udpLayer.(*layers.UDP)
		if !ok {
			continue
		}
		if udpPort != 0 && int(udp.DstPort) != udpPort {
			continue
		}
		payload := udp.Payload
		if len(payload) == 0 {
			continue
		}

		stats.AddDatagram(len(payload))
		reading, err := ParseDatagram(payload)
		if err != nil {
			stats.AddMalformed()
			monitoring.Logf("pcap packet %d: %v", packetCount, err)
			continue
		}

		if handler != nil {
			if err := handler.HandleReading(reading); err != nil {
				stats.AddDropped()
				monitoring.Logf("pcap packet %d: handler rejected reading: %v", packetCount, err)
				continue
			}
		}
		delivered++

		if packetCount%10000 == 0 {
			monitoring.Logf("pcap progress: %d packets, %d readings delivered", packetCount, delivered)
		}
	}
}

package telemetry

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.bug.st/serial"
)

// SerialConfig configures a SerialSink's connection. SimulationMode skips
// opening real hardware, matching how the teacher's MAVLinkController
// short-circuits Connect in its own simulation mode.
type SerialConfig struct {
	Port           string
	BaudRate       int
	SimulationMode bool
}

func (c SerialConfig) withDefaults() SerialConfig {
	if c.BaudRate == 0 {
		c.BaudRate = 57600
	}
	return c
}

// SerialSink writes textual per-conflict ADS-B reports (§4.4 step 6) to a
// serial link. The MAVLink wire-message encoding the teacher's protocol
// layer implements is dropped: this domain has no real ADS-B wire format
// to emulate, so reports are newline-delimited plain text.
type SerialSink struct {
	mu        sync.Mutex
	cfg       SerialConfig
	port      serial.Port
	connected bool
	logger    *logrus.Logger

	reportsSent uint64
}

// NewSerialSink creates a SerialSink. Connect must be called before Write.
func NewSerialSink(cfg SerialConfig, logger *logrus.Logger) *SerialSink {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &SerialSink{cfg: cfg.withDefaults(), logger: logger}
}

// Connect opens the configured serial port, or marks the sink connected
// with no underlying port in simulation mode.
func (s *SerialSink) Connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.connected {
		return nil
	}

	s.logger.WithFields(logrus.Fields{
		"port":     s.cfg.Port,
		"baudRate": s.cfg.BaudRate,
	}).Info("connecting telemetry serial sink")

	if s.cfg.SimulationMode {
		s.connected = true
		s.logger.Info("telemetry serial sink connected in simulation mode")
		return nil
	}

	mode := &serial.Mode{
		BaudRate: s.cfg.BaudRate,
		Parity:   serial.NoParity,
		DataBits: 8,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(s.cfg.Port, mode)
	if err != nil {
		return fmt.Errorf("open serial port: %w", err)
	}

	s.port = port
	s.connected = true
	s.logger.Info("telemetry serial sink connected")
	return nil
}

// Disconnect closes the underlying port, if any.
func (s *SerialSink) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return nil
	}
	if s.port != nil {
		if err := s.port.Close(); err != nil {
			return err
		}
	}
	s.connected = false
	s.port = nil
	return nil
}

// IsConnected reports whether Connect has succeeded and Disconnect has not
// since been called.
func (s *SerialSink) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// Report is one textual ADS-B-style surveillance line: the aircraft pair
// assessed, their miss distance, and time to closest approach.
type Report struct {
	Timestamp        time.Time
	AircraftA        int
	AircraftB        int
	MissDistance     float64
	TimeToCPA        float64
	ManeuverTriggered bool
}

// Write emits a Report as a single newline-terminated text line. In
// simulation mode (no underlying port) the report is counted but not
// written anywhere, mirroring the teacher's simulation-mode short-circuit.
func (s *SerialSink) Write(r Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return fmt.Errorf("telemetry serial sink not connected")
	}

	line := fmt.Sprintf("ADSB %s A%d-A%d miss=%.2f tcpa=%.2f evade=%t\n",
		r.Timestamp.Format(time.RFC3339Nano), r.AircraftA, r.AircraftB, r.MissDistance, r.TimeToCPA, r.ManeuverTriggered)

	s.reportsSent++
	if s.port == nil {
		return nil
	}
	_, err := s.port.Write([]byte(line))
	return err
}

// ReportsSent returns the number of reports written (or counted, in
// simulation mode) so far.
func (s *SerialSink) ReportsSent() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reportsSent
}

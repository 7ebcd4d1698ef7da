// Command sentinel is a thin, non-visual driver over the simulation core:
// it turns command-line flags into a ScenarioRecord, runs it through
// scenario.Runner or montecarlo.Runner, and reports the outcome. Argument
// parsing and persistence live here, never in internal/scenario, since the
// core's Non-goals exclude CLI handling.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arobi/sentinel/internal/adsb"
	"github.com/arobi/sentinel/internal/aircraft"
	"github.com/arobi/sentinel/internal/clock"
	"github.com/arobi/sentinel/internal/geometry"
	"github.com/arobi/sentinel/internal/montecarlo"
	"github.com/arobi/sentinel/internal/physics"
	"github.com/arobi/sentinel/internal/scenario"
	"github.com/arobi/sentinel/internal/telemetry"
	"github.com/arobi/sentinel/pkg/utils"
	"github.com/sirupsen/logrus"
)

var (
	version   = "0.1.0"
	buildTime = "unknown"
	gitCommit = "unknown"
)

var (
	mode = flag.String("mode", "help", "headless | tests | realtime | version | help")

	scenarioFile = flag.String("file", "", "scenario CSV path (headless/tests/realtime)")
	scenarioIdx  = flag.Int("index", 0, "row index within -file to run")
	avoid        = flag.Bool("avoid", true, "enable collision avoidance")
	duration     = flag.Duration("duration", 120*time.Second, "simulated duration per scenario")

	numIterations = flag.Int("n", 100, "iteration count for -mode tests")
	workers       = flag.Int("workers", 4, "worker count for -mode tests")

	httpPort     = flag.Int("http-port", 8090, "HTTP health/status port")
	enableTelemetry = flag.Bool("telemetry", false, "serve a live telemetry websocket")

	serialPort = flag.String("serial-port", "", "serial port for ADS-B report telemetry (empty disables)")
	serialBaud = flag.Int("serial-baud", 57600, "serial baud rate")
	serialSim  = flag.Bool("serial-sim", false, "run the serial sink in simulation mode (no real port opened)")

	logLevel = flag.String("log-level", "info", "debug | info | warn | error")
)

func main() {
	flag.Parse()
	logger := utils.NewLogger(*logLevel, "stdout")

	switch *mode {
	case "version":
		fmt.Printf("sentinel %s (build %s, commit %s)\n", version, buildTime, gitCommit)
		return
	case "help", "":
		printUsage()
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutdown signal received")
		cancel()
	}()

	var broadcaster *telemetry.Broadcaster
	if *enableTelemetry {
		broadcaster = telemetry.New(logger)
		go broadcaster.Run(ctx)
	}
	server := startHTTPServer(logger, broadcaster)
	defer shutdownHTTPServer(server, logger)

	var serialSink *telemetry.SerialSink
	if *serialPort != "" || *serialSim {
		serialSink = telemetry.NewSerialSink(telemetry.SerialConfig{
			Port:           *serialPort,
			BaudRate:       *serialBaud,
			SimulationMode: *serialSim,
		}, logger)
		if err := serialSink.Connect(); err != nil {
			logger.WithError(err).Error("telemetry serial sink connect failed")
			serialSink = nil
		} else {
			defer serialSink.Disconnect()
		}
	}

	var err error
	switch *mode {
	case "headless":
		err = runHeadless(ctx, logger, broadcaster, serialSink)
	case "tests":
		err = runBatch(ctx, logger)
	case "realtime":
		err = runRealtime(ctx, logger, broadcaster, serialSink)
	default:
		fmt.Fprintf(os.Stderr, "unknown mode %q\n", *mode)
		os.Exit(2)
	}

	if err != nil {
		logger.WithError(err).Error("run failed")
		os.Exit(1)
	}
}

func loadRow(path string, index int) (scenario.Row, error) {
	f, openErr := os.Open(path)
	if openErr != nil {
		return scenario.Row{}, fmt.Errorf("open %s: %w", path, openErr)
	}
	defer f.Close()

	rows, errs := scenario.ReadCSV(f)
	for _, e := range errs {
		fmt.Fprintf(os.Stderr, "scenario load: %v\n", e)
	}
	if index < 0 || index >= len(rows) {
		return scenario.Row{}, fmt.Errorf("index %d out of range (loaded %d rows)", index, len(rows))
	}
	return rows[index], nil
}

func defaultRecord() scenario.Record {
	return scenario.Record{
		TestID:            "default-head-on",
		InitialPositions:  []geometry.Vec3{{X: 0, Y: 0, Z: 100}, {X: 0, Y: 5000, Z: 100}},
		InitialVelocities: []geometry.Vec3{{X: 0, Y: 50, Z: 0}, {X: 0, Y: -50, Z: 0}},
		InitialTargets:    []geometry.Vec3{{X: 0, Y: 5000, Z: 100}, {X: 0, Y: 0, Z: 100}},
		Size:              5,
		MinimumSeparation: 50,
	}
}

func runHeadless(ctx context.Context, logger *logrus.Logger, broadcaster *telemetry.Broadcaster, serialSink *telemetry.SerialSink) error {
	rec := defaultRecord()
	if *scenarioFile != "" {
		row, err := loadRow(*scenarioFile, *scenarioIdx)
		if err != nil {
			return err
		}
		rec = row.Record
	}

	runner := scenario.NewRunner(clock.New(), logger)
	if broadcaster != nil {
		runner.WithObserver(telemetryObserver(broadcaster))
	}
	if serialSink != nil {
		runner.WithReportFunc(serialReportFunc(serialSink, logger))
	}
	res := runner.RunHeadless(ctx, rec, *avoid, *duration)

	logger.WithFields(logrus.Fields{
		"test_id":        res.Record.TestID,
		"collision":      res.Collision,
		"min_separation": res.MinimalRelativeDistance,
	}).Info("scenario complete")
	return nil
}

// telemetryObserver adapts a physics tick's fleet snapshot into per-aircraft
// telemetry.Snapshots and publishes them to broadcaster, per the §9
// observer-callback seam.
func telemetryObserver(broadcaster *telemetry.Broadcaster) physics.Observer {
	return func(fleet []*aircraft.Aircraft) {
		now := time.Now()
		for _, a := range fleet {
			snap := a.Vehicle.Snapshot()
			broadcaster.Publish(telemetry.Snapshot{
				Timestamp:  now,
				AircraftID: a.ID,
				Position:   [3]float64{snap.Position.X, snap.Position.Y, snap.Position.Z},
				Velocity:   [3]float64{snap.Velocity.X, snap.Velocity.Y, snap.Velocity.Z},
				RollAngle:  a.Vehicle.RollAngle,
				SafeZone:   a.FCC.SafeZoneOccupied(),
			})
		}
	}
}

// serialReportFunc adapts an ADS-B conflict Report into the telemetry
// package's textual wire format and writes it to sink, per §4.4 step 6.
func serialReportFunc(sink *telemetry.SerialSink, logger *logrus.Logger) adsb.ReportFunc {
	return func(r adsb.Report) {
		err := sink.Write(telemetry.Report{
			Timestamp:         time.Now(),
			AircraftA:         r.AircraftA,
			AircraftB:         r.AircraftB,
			MissDistance:      r.MissDistance,
			TimeToCPA:         r.TimeToCPA,
			ManeuverTriggered: r.ManeuverTriggered,
		})
		if err != nil {
			logger.WithError(err).Warn("telemetry serial write failed")
		}
	}
}

func runBatch(ctx context.Context, logger *logrus.Logger) error {
	var records []scenario.Record
	if *scenarioFile != "" {
		f, err := os.Open(*scenarioFile)
		if err != nil {
			return err
		}
		rows, errs := scenario.ReadCSV(f)
		f.Close()
		for _, e := range errs {
			fmt.Fprintf(os.Stderr, "scenario load: %v\n", e)
		}
		for _, row := range rows {
			records = append(records, row.Record)
		}
	} else {
		for i := 0; i < *numIterations; i++ {
			records = append(records, defaultRecord())
		}
	}

	runner := montecarlo.NewRunner(montecarlo.Config{
		AvoidCollisions: *avoid,
		Duration:        *duration,
		Workers:         *workers,
		Logger:          logger,
	})
	result := runner.RunBatch(ctx, records)

	fmt.Printf("runs=%d collisions=%d collision_free=%d min_sep=%.2f mean_sep=%.2f p95_sep=%.2f\n",
		result.TotalRuns, result.CollisionRuns, result.CollisionFree,
		result.MinSeparation, result.MeanSeparation, result.P95Separation)
	return nil
}

func runRealtime(ctx context.Context, logger *logrus.Logger, broadcaster *telemetry.Broadcaster, serialSink *telemetry.SerialSink) error {
	// Realtime mode runs the same path as headless mode. RunHeadless steps
	// synchronously and never sleeps on its clock, so the run is not paced
	// to wall-clock time; this alias only keeps both modes on the command
	// surface.
	return runHeadless(ctx, logger, broadcaster, serialSink)
}

func startHTTPServer(logger *logrus.Logger, broadcaster *telemetry.Broadcaster) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok", "service": "sentinel", "version": version})
	})
	if broadcaster != nil {
		mux.HandleFunc("/ws/telemetry", broadcaster.HandleWebSocket)
	}

	server := &http.Server{Addr: fmt.Sprintf(":%d", *httpPort), Handler: mux}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("http server error")
		}
	}()
	return server
}

func shutdownHTTPServer(server *http.Server, logger *logrus.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("http shutdown error")
	}
}

func printUsage() {
	fmt.Println(`sentinel - collision-avoidance simulation driver

Usage:
  sentinel -mode=headless [-file=scenario.csv] [-index=0] [-avoid=true] [-duration=2m]
  sentinel -mode=tests [-file=scenario.csv] [-n=100] [-workers=4]
  sentinel -mode=realtime [-file=scenario.csv] [-index=0]
  sentinel -mode=version
  sentinel -mode=help

Telemetry (headless/realtime only):
  -telemetry              serve live snapshots over /ws/telemetry
  -serial-port=/dev/ttyX  write ADS-B reports to a serial link
  -serial-sim             run the serial sink without a real port`)
}

package main

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/pion/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nasa-jpl/mmadapters/ddrive"
	"github.com/nasa-jpl/mmadapters/generichttp"
	"github.com/nasa-jpl/mmadapters/genicam"
	"github.com/nasa-jpl/mmadapters/gige"
	"github.com/nasa-jpl/mmadapters/imgrec"
	"github.com/nasa-jpl/mmadapters/server/middleware/locker"
	"github.com/nasa-jpl/mmadapters/util"
)

// CameraSetup describes one GigE camera
type CameraSetup struct {
	// Name labels the camera's metrics
	Name string `yaml:"Name" koanf:"Name"`

	// Endpoint is the URL the camera's routes are served under, e.g. "/cam0"
	Endpoint string `yaml:"Endpoint" koanf:"Endpoint"`

	// Device is the vendor device ID, "mock" for a simulated camera
	Device string `yaml:"Device" koanf:"Device"`

	// AutowriteRoot is the folder images are recorded to when autowrite is
	// enabled.  Empty disables recording.
	AutowriteRoot string `yaml:"AutowriteRoot" koanf:"AutowriteRoot"`

	// AutowritePrefix is the filename prefix for recorded images
	AutowritePrefix string `yaml:"AutowritePrefix" koanf:"AutowritePrefix"`
}

// StageSetup describes one dDrive hub
type StageSetup struct {
	// Name labels the hub's metrics
	Name string `yaml:"Name" koanf:"Name"`

	// Endpoint is the URL the hub's routes are served under
	Endpoint string `yaml:"Endpoint" koanf:"Endpoint"`

	// Addr is a serial port, e.g. /dev/ttyUSB0, or a host:port for a
	// terminal server
	Addr string `yaml:"Addr" koanf:"Addr"`

	// Serial is true for a serial port and false for TCP
	Serial bool `yaml:"Serial" koanf:"Serial"`

	// Baud is the serial baud rate, 0 for the default of 115200
	Baud int `yaml:"Baud" koanf:"Baud"`

	// CommandsPerSecond paces the hub, 0 for the default
	CommandsPerSecond float64 `yaml:"CommandsPerSecond" koanf:"CommandsPerSecond"`

	// Limits are software limits per channel, e.g. "0": {min: 0, max: 50}
	Limits map[string]util.Limiter `yaml:"Limits" koanf:"Limits"`
}

// Config is the server configuration
type Config struct {
	// Addr is the address to listen at
	Addr string `yaml:"Addr" koanf:"Addr"`

	// Mock replaces every device with a simulation
	Mock bool `yaml:"Mock" koanf:"Mock"`

	// LogLevel is one of trace, debug, info, warn, error, disabled
	LogLevel string `yaml:"LogLevel" koanf:"LogLevel"`

	Cameras []CameraSetup `yaml:"Cameras" koanf:"Cameras"`

	Stages []StageSetup `yaml:"Stages" koanf:"Stages"`
}

// LoggerFactory makes a pion logger factory at the configured level
func LoggerFactory(level string) (logging.LoggerFactory, error) {
	levels := map[string]logging.LogLevel{
		"":         logging.LogLevelInfo,
		"trace":    logging.LogLevelTrace,
		"debug":    logging.LogLevelDebug,
		"info":     logging.LogLevelInfo,
		"warn":     logging.LogLevelWarn,
		"error":    logging.LogLevelError,
		"disabled": logging.LogLevelDisabled,
	}
	lvl, ok := levels[strings.ToLower(level)]
	if !ok {
		return nil, fmt.Errorf("log level %q not understood", level)
	}
	f := logging.NewDefaultLoggerFactory()
	f.DefaultLogLevel = lvl
	return f, nil
}

// Server holds the router and the devices behind it
type Server struct {
	Router chi.Router

	Cameras []*gige.Camera
	Hubs    []*ddrive.Hub
}

// Close releases every device
func (s *Server) Close() error {
	var first error
	for _, c := range s.Cameras {
		if err := c.Finalize(); err != nil && first == nil {
			first = err
		}
	}
	for _, h := range s.Hubs {
		if err := h.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// OpenCamera returns an initialized camera
func OpenCamera(c CameraSetup, mock bool, logf logging.LoggerFactory) (*gige.Camera, error) {
	var sys genicam.NodeSystem
	if mock || strings.EqualFold(c.Device, "mock") {
		sys = genicam.NewMockCamera()
	} else {
		return nil, fmt.Errorf("camera %s: no vendor GenICam transport is built in for device %q, use Mock", c.Name, c.Device)
	}
	cam := gige.New(sys, gige.WithLoggerFactory(logf))
	if err := cam.Initialize(); err != nil {
		return nil, fmt.Errorf("camera %s: %w", c.Name, err)
	}
	return cam, nil
}

// OpenHub returns an initialized dDrive hub
func OpenHub(s StageSetup, mock bool, logf logging.LoggerFactory) (*ddrive.Hub, error) {
	opts := []ddrive.Option{ddrive.WithLoggerFactory(logf)}
	var h *ddrive.Hub
	if mock {
		h, _ = ddrive.NewMockHub(opts...)
	} else {
		if s.CommandsPerSecond != 0 {
			opts = append(opts, ddrive.WithCommandRate(s.CommandsPerSecond))
		}
		h = ddrive.NewHub(s.Addr, s.Serial, s.Baud, opts...)
	}
	if err := h.Initialize(); err != nil {
		return nil, fmt.Errorf("stage %s at %s: %w", s.Name, s.Addr, err)
	}
	return h, nil
}

// mount puts an HTTPer on the root under endpoint behind a locker
func mount(root chi.Router, endpoint string, h generichttp.HTTPer, lock *locker.Locker, mw ...func(http.Handler) http.Handler) []string {
	locker.Inject(h, lock)
	r := chi.NewRouter()
	r.Use(lock.Check, lock.Serialize)
	r.Use(mw...)
	h.RT().Bind(r)
	root.Mount(generichttp.SubMuxSanitize(endpoint), r)
	return h.RT().Endpoints()
}

// BuildServer opens every configured device and builds the router.  The
// root serves /endpoints, a map of device URL to its routes, and /metrics.
func BuildServer(c Config, logf logging.LoggerFactory) (*Server, error) {
	root := chi.NewRouter()
	root.Use(middleware.Logger)
	srv := &Server{Router: root}
	reg := prometheus.NewRegistry()
	supergraph := map[string][]string{}

	for _, setup := range c.Cameras {
		cam, err := OpenCamera(setup, c.Mock, logf)
		if err != nil {
			srv.Close()
			return nil, err
		}
		srv.Cameras = append(srv.Cameras, cam)
		var rec *imgrec.Recorder
		if setup.AutowriteRoot != "" {
			rec = &imgrec.Recorder{Root: setup.AutowriteRoot, Prefix: setup.AutowritePrefix}
			rec.Incr()
		}
		lock := locker.New()
		if err := gige.RegisterMetrics(reg, setup.Name, cam, lock); err != nil {
			srv.Close()
			return nil, err
		}
		w := gige.NewHTTPWrapper(cam, rec)
		supergraph[generichttp.SubMuxSanitize(setup.Endpoint)] = mount(root, setup.Endpoint, w, lock)
	}

	for _, setup := range c.Stages {
		hub, err := OpenHub(setup, c.Mock, logf)
		if err != nil {
			srv.Close()
			return nil, err
		}
		srv.Hubs = append(srv.Hubs, hub)
		lock := locker.New()
		if err := ddrive.RegisterMetrics(reg, setup.Name, hub, lock); err != nil {
			srv.Close()
			return nil, err
		}
		w := ddrive.NewHTTPWrapper(hub, setup.Limits)
		supergraph[generichttp.SubMuxSanitize(setup.Endpoint)] = mount(root, setup.Endpoint, w, lock, w.Middleware())
	}

	root.Get("/endpoints", func(w http.ResponseWriter, r *http.Request) {
		generichttp.JSON(w, supergraph)
	})
	root.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return srv, nil
}

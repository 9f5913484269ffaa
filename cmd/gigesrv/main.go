package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/theckman/yacspin"

	yml "gopkg.in/yaml.v2"

	"github.com/nasa-jpl/mmadapters/util"
)

var (
	// Version is the version number.  Typically injected via ldflags with git build
	Version = "1"

	// ConfigFileName is what it sounds like
	ConfigFileName = "gigesrv.yml"
	k              = koanf.New(".")
)

func setupconfig() {
	k.Load(structs.Provider(Config{
		Addr:     ":8000",
		LogLevel: "info",
		Cameras: []CameraSetup{{
			Name:            "cam0",
			Endpoint:        "/cam0",
			Device:          "mock",
			AutowritePrefix: "cam0_",
		}},
		Stages: []StageSetup{{
			Name:     "piezo",
			Endpoint: "/piezo",
			Addr:     "/dev/ttyUSB0",
			Serial:   true,
			Baud:     115200,
			Limits:   map[string]util.Limiter{},
		}},
	}, "koanf"), nil)
	if err := k.Load(file.Provider(ConfigFileName), yaml.Parser()); err != nil {
		errtxt := err.Error()
		if !strings.Contains(errtxt, "no such") { // file missing, who cares
			log.Fatalf("error loading config: %v", err)
		}
	}
}

func root() {
	str := `gigesrv serves GenICam cameras and Piezosystem Jena dDrive piezo
controllers over HTTP.

Usage:
	gigesrv <command>

Commands:
	run
	probe
	help
	mkconf
	conf
	version`
	fmt.Println(str)
}

func help() {
	str := `gigesrv is amenable to configuration via its .yaml file.  For a primer on YAML, see
https://yaml.org/start.html

Each camera and stage is served under its own Endpoint, e.g. /cam0 or
/piezo.  No two endpoints can have the same URL.  GET /endpoints lists every
route of every device; GET /metrics is a prometheus scrape target.

Every device has a /lock route.  While locked, all other requests to the
device are refused with 423 (Locked).

Cameras:
	Device "mock" is a simulated camera with a test pattern.  Features are
	under /feature/{name}, the high level properties under /property/{name}.
	AutowriteRoot enables recording frames to disk as FITS.

Stages (dDrive EDS2/EDS4 hubs):
	Addr is a serial port (Serial: true) or a host:port of a terminal server.
	Limits restrict each channel further than the actuator travel, e.g.

	Limits:
	  "0": {min: 0, max: 50}

	positions are µm in closed loop and V in open loop.

Mock: true replaces every device with a simulation.

probe connects to every device, prints what it found and exits.`
	fmt.Println(str)
}

func mkconf() {
	c := Config{}
	err := k.Unmarshal("", &c)
	if err != nil {
		log.Fatal(err)
	}
	f, err := os.Create(ConfigFileName)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()
	err = yml.NewEncoder(f).Encode(c)
	if err != nil {
		log.Fatal(err)
	}
}

func printconf() {
	c := Config{}
	k.Unmarshal("", &c)
	err := yml.NewEncoder(os.Stdout).Encode(c)
	if err != nil {
		log.Fatal(err)
	}
}

func pversion() {
	fmt.Printf("gigesrv version %v\n", Version)
}

func loadconf() (Config, *Server) {
	c := Config{}
	err := k.Unmarshal("", &c)
	if err != nil {
		log.Fatal(err)
	}
	logf, err := LoggerFactory(c.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	srv, err := BuildServer(c, logf)
	if err != nil {
		log.Fatal(err)
	}
	return c, srv
}

func run() {
	c, srv := loadconf()
	defer srv.Close()
	log.Println("now listening for requests at ", c.Addr)
	log.Fatal(http.ListenAndServe(c.Addr, srv.Router))
}

func probe() {
	c := Config{}
	if err := k.Unmarshal("", &c); err != nil {
		log.Fatal(err)
	}
	logf, err := LoggerFactory("error")
	if err != nil {
		log.Fatal(err)
	}
	spinner, err := yacspin.New(yacspin.Config{
		Frequency:         100 * time.Millisecond,
		CharSet:           yacspin.CharSets[11],
		Suffix:            " ",
		StopCharacter:     "✓",
		StopColors:        []string{"fgGreen"},
		StopFailCharacter: "✗",
		StopFailColors:    []string{"fgRed"},
	})
	if err != nil {
		log.Fatal(err)
	}
	failed := false
	for _, setup := range c.Cameras {
		spinner.Message("camera " + setup.Name)
		spinner.Start()
		cam, err := OpenCamera(setup, c.Mock, logf)
		if err != nil {
			spinner.StopFailMessage(err.Error())
			spinner.StopFail()
			failed = true
			continue
		}
		res, err := cam.GetRes()
		if err != nil {
			spinner.StopFailMessage(err.Error())
			spinner.StopFail()
			failed = true
			cam.Finalize()
			continue
		}
		spinner.StopMessage(fmt.Sprintf("camera %s, %dx%d", setup.Name, res[1], res[0]))
		spinner.Stop()
		cam.Finalize()
	}
	for _, setup := range c.Stages {
		spinner.Message("stage " + setup.Name + " at " + setup.Addr)
		spinner.Start()
		hub, err := OpenHub(setup, c.Mock, logf)
		if err != nil {
			spinner.StopFailMessage(err.Error())
			spinner.StopFail()
			failed = true
			continue
		}
		sess := hub.Session()
		spinner.StopMessage(fmt.Sprintf("stage %s, %s", setup.Name, sess.Version))
		spinner.Stop()
		for _, ch := range sess.Plugged() {
			fmt.Printf("\tchannel %d: %s serial %s, %s sensor, %g..%g µm\n",
				ch.Number, ch.Actuator, ch.Serial, ch.Sensor, ch.MinUm, ch.MaxUm)
		}
		hub.Close()
	}
	if failed {
		os.Exit(1)
	}
}

func main() {
	var cmd string
	args := os.Args
	if len(args) == 1 {
		root()
		return
	}
	setupconfig()
	cmd = args[1]
	cmd = strings.ToLower(cmd)
	switch cmd {
	case "help":
		help()
		return
	case "mkconf":
		mkconf()
		return
	case "conf":
		printconf()
		return
	case "run":
		run()
		return
	case "probe":
		probe()
		return
	case "version":
		pversion()
		return
	default:
		log.Fatal("unknown command")
	}
}

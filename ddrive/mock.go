package ddrive

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"

	"github.com/nasa-jpl/mmadapters/util"
)

// MockActuator is the state of one channel of a MockController
type MockActuator struct {
	Plugged    bool
	Name       string
	Serial     string
	Sensor     Sensor
	Pos        float64
	ClosedLoop bool
	SlewRate   float64
	SoftStart  bool
	Temp       float64
	MinUm      float64
	MaxUm      float64
	MinV       float64
	MaxV       float64
}

// MockController speaks the dDrive protocol in process.  Every Dial gets a
// fresh net.Pipe served by the controller, so a Hub can reconnect to it.
type MockController struct {
	mu         sync.Mutex
	Channels   [NumChannels]MockActuator
	Brightness int
	Firmware   string

	// Garble makes the next query be answered with junk
	Garble bool

	// Received lists every command line, in order
	Received []string
}

// NewMockController returns a hub with two actuators, a capacitive 0-80 µm
// stage on channel 0 and a strain gauge 0-400 µm stage on channel 2
func NewMockController() *MockController {
	m := &MockController{Brightness: 3, Firmware: "dDrive V1.10"}
	m.Channels[0] = MockActuator{Plugged: true, Name: "PX 80", Serial: "11245", Sensor: Capacitive,
		SlewRate: 10, Temp: 24.5, MinUm: 0, MaxUm: 80, MinV: -20, MaxV: 130}
	m.Channels[2] = MockActuator{Plugged: true, Name: "PX 400", Serial: "10923", Sensor: StrainGauge,
		SlewRate: 5, Temp: 25.1, MinUm: 0, MaxUm: 400, MinV: -20, MaxV: 130}
	return m
}

// NewMockHub returns an unpaced Hub wired to a new MockController
func NewMockHub(opts ...Option) (*Hub, *MockController) {
	m := NewMockController()
	opts = append([]Option{WithDialer(m.Dial), WithCommandRate(0)}, opts...)
	return NewHub("mock", false, 0, opts...), m
}

// Dial returns one end of a pipe whose other end is served by m
func (m *MockController) Dial() (io.ReadWriteCloser, error) {
	a, b := net.Pipe()
	go m.Serve(b)
	return a, nil
}

// Serve answers commands on conn until it is closed
func (m *MockController) Serve(conn io.ReadWriteCloser) {
	defer conn.Close()
	sc := bufio.NewScanner(conn)
	sc.Split(splitCR)
	for sc.Scan() {
		reply := m.handle(sc.Text())
		if reply == "" {
			continue
		}
		if _, err := conn.Write([]byte(reply + "\r")); err != nil {
			return
		}
	}
}

func splitCR(data []byte, atEOF bool) (int, []byte, error) {
	for i, b := range data {
		if b == '\r' {
			return i + 1, data[:i], nil
		}
	}
	if atEOF && len(data) > 0 {
		return len(data), data, nil
	}
	return 0, nil, nil
}

func (m *MockController) handle(line string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Received = append(m.Received, line)
	f := strings.Split(line, ",")
	cmd := f[0]
	switch cmd {
	case "ver":
		return m.garble("ver," + m.Firmware)
	case "light":
		if len(f) > 1 {
			m.Brightness, _ = strconv.Atoi(f[1])
			return ""
		}
		return m.garble(fmt.Sprintf("light,%d", m.Brightness))
	}
	if len(f) < 2 {
		return "ERROR"
	}
	ch, err := strconv.Atoi(f[1])
	if err != nil || ch < 0 || ch >= NumChannels {
		return "ERROR"
	}
	a := &m.Channels[ch]
	if cmd == "stat" {
		return m.garble(fmt.Sprintf("stat,%d,%d", ch, a.status()))
	}
	if !a.Plugged {
		words := make([]string, NumChannels)
		for i := range words {
			words[i] = "0"
		}
		words[ch] = strconv.Itoa(int(ErrI2C))
		if len(f) > 2 {
			return ""
		}
		return "ERROR," + strings.Join(words, ",")
	}
	if len(f) > 2 {
		m.set(a, cmd, f[2])
		return ""
	}
	var val string
	switch cmd {
	case "mess":
		val = fmtf(a.Pos)
	case "cloop":
		val = strconv.Itoa(boolToInt(a.ClosedLoop))
	case "sr":
		val = fmtf(a.SlewRate)
	case "fenable":
		val = strconv.Itoa(boolToInt(a.SoftStart))
	case "ktemp":
		val = fmtf(a.Temp)
	case "acdescr":
		val = a.Name + "," + a.Serial
	case "dspclmin":
		val = fmtf(a.MinUm)
	case "dspclmax":
		val = fmtf(a.MaxUm)
	case "dspvmin":
		val = fmtf(a.MinV)
	case "dspvmax":
		val = fmtf(a.MaxV)
	default:
		return "ERROR"
	}
	return m.garble(fmt.Sprintf("%s,%d,%s", cmd, ch, val))
}

func (m *MockController) garble(reply string) string {
	if m.Garble {
		m.Garble = false
		return "#?!" + reply
	}
	return reply
}

func (m *MockController) set(a *MockActuator, cmd, arg string) {
	v, err := strconv.ParseFloat(arg, 64)
	if err != nil {
		return
	}
	switch cmd {
	case "set":
		lim := util.Limiter{Min: a.MinV, Max: a.MaxV}
		if a.ClosedLoop {
			lim = util.Limiter{Min: a.MinUm, Max: a.MaxUm}
		}
		a.Pos = lim.Clamp(v)
	case "cloop":
		a.ClosedLoop = v == 1
	case "sr":
		a.SlewRate = v
	case "fenable":
		a.SoftStart = v == 1
	}
}

func (a *MockActuator) status() Status {
	var w uint32
	if !a.Plugged {
		return 0
	}
	w = util.SetBit(w, statusPlugged, true)
	w |= uint32(a.Sensor) << 1
	w = util.SetBit(w, statusVoltageEnable, true)
	w = util.SetBit(w, statusClosedLoop, a.ClosedLoop)
	return Status(w)
}

// Actuator returns a copy of the state of one channel
func (m *MockController) Actuator(ch int) MockActuator {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Channels[ch]
}

// Commands returns a copy of every command line received so far
func (m *MockController) Commands() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Received...)
}

// Update runs f on the controller state under its lock
func (m *MockController) Update(f func(*MockController)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f(m)
}

func fmtf(f float64) string {
	return strconv.FormatFloat(f, 'f', 3, 64)
}

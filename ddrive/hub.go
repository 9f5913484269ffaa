/*Package ddrive is a driver for Piezosystem Jena dDrive piezo amplifiers.

A dDrive hub holds up to six amplifier channels, each driving one actuator.
The hub speaks a comma separated ASCII protocol terminated by carriage
returns.  A query is "cmd,ch" and is answered "cmd,ch,value"; a set is
"cmd,ch,value" and is not answered.  Failures are answered
"ERROR,e0,e1,..." with one error word per channel.

Hub implements the motion.Mover, motion.Enabler and motion.Speeder
interfaces with the channel number as the axis name.
*/
package ddrive

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pion/logging"
	"github.com/tarm/serial"
	"golang.org/x/time/rate"

	"github.com/nasa-jpl/mmadapters/comm"
)

// DefaultCommandsPerSecond paces the hub; the amplifier needs about 200 ms
// between commands
const DefaultCommandsPerSecond = 5

// MakeSerConf makes a new serial.Config with the dDrive's framing.  baud
// defaults to 115200.
func MakeSerConf(addr string, baud int) *serial.Config {
	if baud == 0 {
		baud = 115200
	}
	return &serial.Config{
		Name:        addr,
		Baud:        baud,
		Size:        8,
		Parity:      serial.ParityNone,
		StopBits:    serial.Stop1,
		ReadTimeout: 2 * time.Second}
}

// Channel is what the hub knows about one amplifier slot
type Channel struct {
	Number   int     `json:"channel"`
	Plugged  bool    `json:"plugged"`
	Actuator string  `json:"actuator,omitempty"`
	Serial   string  `json:"serial,omitempty"`
	Sensor   string  `json:"sensor,omitempty"`
	MinUm    float64 `json:"minUm"`
	MaxUm    float64 `json:"maxUm"`
	MinV     float64 `json:"minV"`
	MaxV     float64 `json:"maxV"`
}

// SessionState is everything learned from the hub since Initialize.  The
// driver keeps no state outside of it.
type SessionState struct {
	Version  string                `json:"version"`
	Channels [NumChannels]Channel `json:"channels"`
}

// Plugged returns the channels that have an actuator
func (s SessionState) Plugged() []Channel {
	var out []Channel
	for _, c := range s.Channels {
		if c.Plugged {
			out = append(out, c)
		}
	}
	return out
}

// Option configures a Hub
type Option func(*Hub)

// WithLoggerFactory sets the factory the hub's logger comes from
func WithLoggerFactory(f logging.LoggerFactory) Option {
	return func(h *Hub) { h.logf = f }
}

// WithCommandRate sets how many commands per second are sent.  Zero or less
// means no pacing.
func WithCommandRate(perSecond float64) Option {
	return func(h *Hub) {
		if perSecond <= 0 {
			h.pace = rate.NewLimiter(rate.Inf, 1)
			return
		}
		h.pace = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// WithDialer replaces the serial/TCP connection with whatever dial returns
func WithDialer(dial func() (io.ReadWriteCloser, error)) Option {
	return func(h *Hub) { h.port.Dialer = dial }
}

// Hub is a dDrive amplifier
type Hub struct {
	port *comm.RemoteDevice
	pace *rate.Limiter
	logf logging.LoggerFactory
	log  logging.LeveledLogger

	mu    sync.Mutex
	state SessionState
}

// NewHub returns a hub at addr, a serial port if serial is true and a
// host:port otherwise.  Nothing is sent until Initialize.
func NewHub(addr string, serial bool, baud int, opts ...Option) *Hub {
	rd := comm.NewRemoteDevice(addr, serial, &comm.CR, MakeSerConf(addr, baud))
	h := &Hub{port: &rd}
	for i := range h.state.Channels {
		h.state.Channels[i].Number = i
	}
	WithCommandRate(DefaultCommandsPerSecond)(h)
	for _, opt := range opts {
		opt(h)
	}
	if h.logf == nil {
		h.logf = logging.NewDefaultLoggerFactory()
	}
	h.log = h.logf.NewLogger("ddrive")
	return h
}

// Initialize opens the connection, reads the version and detects which
// channels have an actuator
func (h *Hub) Initialize() error {
	if err := h.port.Open(); err != nil {
		return err
	}
	v, err := h.Version()
	if err != nil {
		return err
	}
	h.log.Infof("dDrive %s at %s", v, h.port.Addr)
	return h.Detect()
}

// Close closes the connection
func (h *Hub) Close() error {
	return h.port.Close()
}

// Session returns a copy of the session state
func (h *Hub) Session() SessionState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Detect queries the status of every channel and refreshes the inventory
func (h *Hub) Detect() error {
	var chans [NumChannels]Channel
	for ch := range chans {
		c := &chans[ch]
		c.Number = ch
		st, err := h.status(ch)
		if err != nil {
			if _, ok := err.(*DeviceError); ok {
				continue
			}
			return err
		}
		if !st.Plugged() {
			continue
		}
		c.Plugged = true
		c.Sensor = st.Sensor().String()
		fields, err := h.query("acdescr", ch)
		if err != nil {
			return err
		}
		c.Actuator = fields[0]
		if len(fields) > 1 {
			c.Serial = fields[1]
		}
		for _, q := range []struct {
			cmd string
			dst *float64
		}{
			{"dspclmin", &c.MinUm},
			{"dspclmax", &c.MaxUm},
			{"dspvmin", &c.MinV},
			{"dspvmax", &c.MaxV},
		} {
			if *q.dst, err = h.queryFloat(q.cmd, ch); err != nil {
				return err
			}
		}
		h.log.Infof("channel %d: %s (%s), %g..%g µm", ch, c.Actuator, c.Serial, c.MinUm, c.MaxUm)
	}
	h.mu.Lock()
	h.state.Channels = chans
	h.mu.Unlock()
	return nil
}

// Version returns the firmware version string
func (h *Hub) Version() (string, error) {
	fields, err := h.exchange("ver", -1)
	if err != nil {
		return "", err
	}
	v := strings.Join(fields, ",")
	h.mu.Lock()
	h.state.Version = v
	h.mu.Unlock()
	return v, nil
}

// GetBrightness returns the front panel display brightness
func (h *Hub) GetBrightness() (int, error) {
	fields, err := h.exchange("light", -1)
	if err != nil {
		return 0, err
	}
	return atoi(fields[0])
}

// SetBrightness sets the front panel display brightness
func (h *Hub) SetBrightness(b int) error {
	return h.send(fmt.Sprintf("light,%d", b))
}

// Raw sends a command verbatim.  Queries, a bare command or "cmd,ch", are
// answered and the answer is returned whole.  Anything longer is a set and
// returns "".
func (h *Hub) Raw(cmd string) (string, error) {
	if strings.Count(cmd, ",") > 1 {
		return "", h.send(cmd)
	}
	if err := h.pace.Wait(context.Background()); err != nil {
		return "", err
	}
	if err := h.port.Open(); err != nil {
		return "", err
	}
	h.port.Lock()
	resp, err := h.port.SendRecv([]byte(cmd))
	h.port.Unlock()
	if err != nil {
		h.port.Close()
	}
	return string(resp), err
}

func (h *Hub) status(ch int) (Status, error) {
	i, err := h.queryInt("stat", ch)
	return Status(i), err
}

// send writes a command that is not answered
func (h *Hub) send(cmd string) error {
	if err := h.pace.Wait(context.Background()); err != nil {
		return err
	}
	if err := h.port.Open(); err != nil {
		return err
	}
	h.port.Lock()
	defer h.port.Unlock()
	h.log.Tracef("-> %s", cmd)
	return h.port.Send([]byte(cmd))
}

// exchange sends cmd, or "cmd,ch" if ch >= 0, and returns the fields of the
// answer after the echo
func (h *Hub) exchange(cmd string, ch int) ([]string, error) {
	msg := cmd
	if ch >= 0 {
		msg = cmd + "," + strconv.Itoa(ch)
	}
	if err := h.pace.Wait(context.Background()); err != nil {
		return nil, err
	}
	if err := h.port.Open(); err != nil {
		return nil, err
	}
	h.port.Lock()
	h.log.Tracef("-> %s", msg)
	resp, err := h.port.SendRecv([]byte(msg))
	h.port.Unlock()
	if err != nil {
		// a half read answer would poison the next exchange
		h.port.Close()
		return nil, err
	}
	h.log.Tracef("<- %s", resp)
	fields := strings.Split(strings.TrimSpace(string(resp)), ",")
	if strings.EqualFold(fields[0], "error") {
		return nil, h.deviceError(fields, ch)
	}
	want := 2
	if ch < 0 {
		want = 1
	}
	if len(fields) < want+1 || !strings.EqualFold(fields[0], cmd) {
		h.log.Warnf("unrecognized answer %q to %q", resp, msg)
		h.port.Close()
		return nil, ErrUnrecognizedAnswer
	}
	if ch >= 0 && fields[1] != strconv.Itoa(ch) {
		h.log.Warnf("answer %q is for another channel than %q", resp, msg)
		h.port.Close()
		return nil, ErrUnrecognizedAnswer
	}
	return fields[want:], nil
}

func (h *Hub) deviceError(fields []string, ch int) error {
	idx := ch + 1
	if ch < 0 {
		idx = 1
	}
	if idx >= len(fields) {
		return ErrUnrecognizedAnswer
	}
	bits, err := strconv.ParseUint(strings.TrimSpace(fields[idx]), 10, 32)
	if err != nil {
		return ErrUnrecognizedAnswer
	}
	e := &DeviceError{Channel: ch, Bits: ErrorBits(bits)}
	h.log.Warnf("%v", e)
	return e
}

func (h *Hub) query(cmd string, ch int) ([]string, error) {
	return h.exchange(cmd, ch)
}

func (h *Hub) queryFloat(cmd string, ch int) (float64, error) {
	fields, err := h.exchange(cmd, ch)
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(fields[0]), 64)
	if err != nil {
		return 0, ErrUnrecognizedAnswer
	}
	return f, nil
}

func (h *Hub) queryInt(cmd string, ch int) (int, error) {
	fields, err := h.exchange(cmd, ch)
	if err != nil {
		return 0, err
	}
	return atoi(fields[0])
}

func (h *Hub) setFloat(cmd string, ch int, v float64) error {
	return h.send(fmt.Sprintf("%s,%d,%.3f", cmd, ch, v))
}

func (h *Hub) setInt(cmd string, ch int, v int) error {
	return h.send(fmt.Sprintf("%s,%d,%d", cmd, ch, v))
}

func atoi(s string) (int, error) {
	i, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, ErrUnrecognizedAnswer
	}
	return i, nil
}

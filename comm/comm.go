/*Package comm provides an embeddable type for line oriented communication with
lab hardware over serial or TCP.

Most usages of this package will boil down to:
	1.  embed *RemoteDevice in a type that represents your hardware.
	2.  construct it with NewRemoteDevice, giving the terminators and, for
		serial devices, a serial.Config
	3.  Write any methods you see fit on top of SendRecv

A minimal example for a sensor that responds to "RD?" with its temperature:

	type MySensor struct {
		*comm.RemoteDevice
	}

	func (ms *MySensor) ReadTemp() (float64, error) {
		if err := ms.Open(); err != nil {
			return 0, err
		}
		ms.Lock()
		defer ms.Unlock()
		resp, err := ms.SendRecv([]byte("RD?"))
		if err != nil {
			return 0, err
		}
		return strconv.ParseFloat(string(resp), 64)
	}
*/
package comm

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/tarm/serial"

	"github.com/nasa-jpl/mmadapters/util"
)

var (
	// ErrNoSerialConf is generated when a serial device has no serial.Config
	ErrNoSerialConf = errors.New("device is serial but has no serial config")

	// ErrNotConnected is generated when .Conn is nil and Send or Recv is called.
	ErrNotConnected = errors.New("conn is nil, not connected to remote")

	// ErrTerminatorNotFound is generated when the termination byte is not found in a response
	ErrTerminatorNotFound = errors.New("termination byte not found")
)

// DefaultTimeout is the read/write timeout used when RemoteDevice.Timeout is zero
const DefaultTimeout = 3 * time.Second

// Terminators holds the receive and transmit termination bytes
type Terminators struct {
	Rx byte
	Tx byte
}

// CR is carriage return on both sides
var CR = Terminators{Rx: '\r', Tx: '\r'}

type deadliner interface {
	SetDeadline(time.Time) error
}

/*RemoteDevice has an address and speaks a terminated line protocol over
serial or TCP.

It embeds a mutex that callers hold around a SendRecv exchange so replies
are not interleaved.  Open, Close and CloseEventually take it themselves.
*/
type RemoteDevice struct {
	sync.Mutex

	Addr     string
	IsSerial bool
	Conn     io.ReadWriteCloser

	// Timeout bounds each Send and Recv on connections that support deadlines
	Timeout time.Duration

	// Dialer, if not nil, replaces the serial/TCP dial.  Tests use it to
	// hand the device one end of a net.Pipe.
	Dialer func() (io.ReadWriteCloser, error)

	// IdleClose is how long CloseEventually waits before closing
	IdleClose time.Duration

	term   Terminators
	serCfg *serial.Config
	rd     *bufio.Reader
	timer  *time.Timer
}

// NewRemoteDevice creates a new RemoteDevice.  A nil term means CR on both
// sides.  serCfg is only used when serial is true.
func NewRemoteDevice(addr string, serial bool, term *Terminators, serCfg *serial.Config) RemoteDevice {
	t := CR
	if term != nil {
		t = *term
	}
	return RemoteDevice{
		Addr:      addr,
		IsSerial:  serial,
		Timeout:   DefaultTimeout,
		IdleClose: 5 * time.Second,
		term:      t,
		serCfg:    serCfg}
}

// Open the connection, setting the Conn variable.  Opening an open device
// is a no-op.
func (rd *RemoteDevice) Open() error {
	rd.Lock()
	defer rd.Unlock()
	if rd.timer != nil {
		rd.timer.Stop()
	}
	if rd.Conn != nil {
		return nil
	}
	// exponential backoff, some controllers do not like being
	// connection thrashed
	wasTimeout := false
	op := func() error {
		err := rd.open()
		if err != nil {
			if strings.Contains(strings.ToLower(err.Error()), "refused") {
				return backoff.Permanent(err)
			}
			wasTimeout = true
			return err
		}
		wasTimeout = false
		return nil
	}

	err := backoff.Retry(op, &backoff.ExponentialBackOff{
		InitialInterval:     25 * time.Millisecond,
		RandomizationFactor: 0.,
		Multiplier:          2.,
		MaxInterval:         1 * time.Second,
		MaxElapsedTime:      3 * time.Second,
		Clock:               backoff.SystemClock})
	if err == nil {
		return nil
	}
	if wasTimeout {
		return fmt.Errorf("connection timeout to %s: %w", rd.Addr, err)
	}
	return err
}

func (rd *RemoteDevice) open() error {
	var err error
	var conn io.ReadWriteCloser
	switch {
	case rd.Dialer != nil:
		conn, err = rd.Dialer()
	case rd.IsSerial:
		if rd.serCfg == nil {
			return backoff.Permanent(ErrNoSerialConf)
		}
		conn, err = serial.OpenPort(rd.serCfg)
	default:
		conn, err = util.TCPSetup(rd.Addr, rd.timeout())
	}
	if err != nil {
		return err
	}
	rd.Conn = conn
	rd.rd = bufio.NewReader(conn)
	return nil
}

func (rd *RemoteDevice) timeout() time.Duration {
	if rd.Timeout <= 0 {
		return DefaultTimeout
	}
	return rd.Timeout
}

// Close the connection, nil-ing the Conn variable
func (rd *RemoteDevice) Close() error {
	rd.Lock()
	defer rd.Unlock()
	return rd.close()
}

func (rd *RemoteDevice) close() error {
	if rd.Conn == nil {
		return nil
	}
	err := rd.Conn.Close()
	rd.Conn = nil
	rd.rd = nil
	return err
}

// CloseEventually closes the connection after IdleClose unless Open is
// called first
func (rd *RemoteDevice) CloseEventually() {
	rd.Lock()
	defer rd.Unlock()
	if rd.timer != nil {
		rd.timer.Stop()
	}
	rd.timer = time.AfterFunc(rd.IdleClose, func() {
		rd.Lock()
		defer rd.Unlock()
		rd.close()
	})
}

// Terminators returns the Rx and Tx termination bytes
func (rd *RemoteDevice) Terminators() Terminators {
	return rd.term
}

func (rd *RemoteDevice) arm() {
	if d, ok := rd.Conn.(deadliner); ok {
		d.SetDeadline(time.Now().Add(rd.timeout()))
	}
}

// Send writes data to the remote with the Tx terminator appended
func (rd *RemoteDevice) Send(b []byte) error {
	if rd.Conn == nil {
		return ErrNotConnected
	}
	rd.arm()
	buf := make([]byte, len(b), len(b)+1)
	copy(buf, b)
	_, err := rd.Conn.Write(append(buf, rd.term.Tx))
	return err
}

// Recv recieves one line from the remote and strips the Rx terminator
func (rd *RemoteDevice) Recv() ([]byte, error) {
	if rd.Conn == nil {
		return nil, ErrNotConnected
	}
	rd.arm()
	buf, err := rd.rd.ReadBytes(rd.term.Rx)
	if err != nil {
		if err == io.EOF && len(buf) > 0 {
			return buf, ErrTerminatorNotFound
		}
		return nil, err
	}
	return buf[:len(buf)-1], nil
}

// SendRecv sends a buffer after appending the Tx terminator,
// then returns the response with the Rx terminator stripped
func (rd *RemoteDevice) SendRecv(b []byte) ([]byte, error) {
	if err := rd.Send(b); err != nil {
		return nil, err
	}
	return rd.Recv()
}

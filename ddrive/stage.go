package ddrive

import (
	"strconv"

	"github.com/nasa-jpl/mmadapters/util"
)

// Positions are in µm with the loop closed and in V with it open, as the
// amplifier reports them.  Axis names are channel numbers, "0" through "5".

// channel parses an axis name and checks that an actuator is plugged in
func (h *Hub) channel(axis string) (Channel, error) {
	ch, err := strconv.Atoi(axis)
	if err != nil || ch < 0 || ch >= NumChannels {
		return Channel{}, ErrInvalidChannel
	}
	h.mu.Lock()
	c := h.state.Channels[ch]
	h.mu.Unlock()
	if !c.Plugged {
		return Channel{}, ErrNoActuator
	}
	return c, nil
}

// GetPos returns the position of an axis
func (h *Hub) GetPos(axis string) (float64, error) {
	c, err := h.channel(axis)
	if err != nil {
		return 0, err
	}
	return h.queryFloat("mess", c.Number)
}

// MoveAbs commands an axis to a position.  Positions outside the
// actuator's travel are refused without being sent.
func (h *Hub) MoveAbs(axis string, x float64) error {
	c, err := h.channel(axis)
	if err != nil {
		return err
	}
	closed, err := h.GetEnabled(axis)
	if err != nil {
		return err
	}
	lim := util.Limiter{Min: c.MinV, Max: c.MaxV}
	if closed {
		lim = util.Limiter{Min: c.MinUm, Max: c.MaxUm}
	}
	if lim.Max > lim.Min && !lim.Check(x) {
		return ErrOutOfRange
	}
	return h.setFloat("set", c.Number, x)
}

// MoveRel moves an axis by dx from where it is now
func (h *Hub) MoveRel(axis string, dx float64) error {
	x, err := h.GetPos(axis)
	if err != nil {
		return err
	}
	return h.MoveAbs(axis, x+dx)
}

// Enable closes the position loop of an axis
func (h *Hub) Enable(axis string) error {
	return h.setLoop(axis, true)
}

// Disable opens the position loop of an axis
func (h *Hub) Disable(axis string) error {
	return h.setLoop(axis, false)
}

func (h *Hub) setLoop(axis string, closed bool) error {
	c, err := h.channel(axis)
	if err != nil {
		return err
	}
	return h.setInt("cloop", c.Number, boolToInt(closed))
}

// GetEnabled returns true if the position loop of an axis is closed
func (h *Hub) GetEnabled(axis string) (bool, error) {
	c, err := h.channel(axis)
	if err != nil {
		return false, err
	}
	i, err := h.queryInt("cloop", c.Number)
	return i == 1, err
}

// GetVelocity returns the slew rate of an axis in V/ms
func (h *Hub) GetVelocity(axis string) (float64, error) {
	c, err := h.channel(axis)
	if err != nil {
		return 0, err
	}
	return h.queryFloat("sr", c.Number)
}

// SetVelocity sets the slew rate of an axis in V/ms
func (h *Hub) SetVelocity(axis string, sr float64) error {
	c, err := h.channel(axis)
	if err != nil {
		return err
	}
	return h.setFloat("sr", c.Number, sr)
}

// GetAxisTemperature returns the temperature of the actuator in °C
func (h *Hub) GetAxisTemperature(axis string) (float64, error) {
	c, err := h.channel(axis)
	if err != nil {
		return 0, err
	}
	return h.queryFloat("ktemp", c.Number)
}

// GetSoftStart returns true if the axis ramps its voltage up at power on
func (h *Hub) GetSoftStart(axis string) (bool, error) {
	c, err := h.channel(axis)
	if err != nil {
		return false, err
	}
	i, err := h.queryInt("fenable", c.Number)
	return i == 1, err
}

// SetSoftStart turns the power on voltage ramp of an axis on or off
func (h *Hub) SetSoftStart(axis string, on bool) error {
	c, err := h.channel(axis)
	if err != nil {
		return err
	}
	return h.setInt("fenable", c.Number, boolToInt(on))
}

// GetStatus returns the status register of an axis
func (h *Hub) GetStatus(axis string) (Status, error) {
	c, err := h.channel(axis)
	if err != nil {
		return 0, err
	}
	return h.status(c.Number)
}

// Travel returns the closed loop travel of an axis in µm, as read at
// Initialize
func (h *Hub) Travel(axis string) (util.Limiter, error) {
	c, err := h.channel(axis)
	if err != nil {
		return util.Limiter{}, err
	}
	return util.Limiter{Min: c.MinUm, Max: c.MaxUm}, nil
}

// Actuator returns what is known about the actuator on an axis
func (h *Hub) Actuator(axis string) (Channel, error) {
	return h.channel(axis)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

package gige

import (
	"sort"
	"strconv"

	"github.com/nasa-jpl/mmadapters/camera"
	"github.com/nasa-jpl/mmadapters/genicam"
)

// GenICam has separate vertical and horizontal binning and no unified
// factor.  The Binning property gives the illusion of one where it can:
// a write goes to every axis the camera has, a read comes from the
// vertical axis if present.

func (c *Camera) createBinning() error {
	act := func(p *camera.Property, a camera.ActionType) error {
		switch a {
		case camera.BeforeGet:
			for _, f := range []genicam.IntFeature{genicam.BinningVertical, genicam.BinningHorizontal} {
				if v, ok := c.reg.TryInt(f).Get(); ok {
					p.StoreInt(v)
					return nil
				}
			}
			p.Store("1")
		case camera.AfterSet:
			b, err := p.Int()
			if err != nil {
				return err
			}
			// a factor only one axis takes puts the written axes back
			var written []genicam.IntFeature
			var prev []int64
			for _, f := range []genicam.IntFeature{genicam.BinningVertical, genicam.BinningHorizontal} {
				if !c.reg.IsWritable(f) {
					continue
				}
				old, oldErr := c.reg.GetInt(f)
				if err := c.reg.SetInt(f, b); err != nil {
					for i := range written {
						if rerr := c.reg.SetInt(written[i], prev[i]); rerr != nil {
							c.log.Warnf("restoring %s to %d: %v", written[i], prev[i], rerr)
						}
					}
					if rerr := c.ResizeImageBuffer(); rerr != nil {
						c.log.Warnf("resizing buffer after failed binning: %v", rerr)
					}
					return err
				}
				if oldErr == nil {
					written = append(written, f)
					prev = append(prev, old)
				}
			}
			return c.ResizeImageBuffer()
		}
		return nil
	}
	if err := c.prop.Create(KeywordBinning, "1", camera.Integer, false, act); err != nil {
		return err
	}
	if err := c.createInt(KeywordBinningVertical, genicam.BinningVertical, false, c.ResizeImageBuffer); err != nil {
		return err
	}
	if err := c.createInt(KeywordBinningHorizont, genicam.BinningHorizontal, false, c.ResizeImageBuffer); err != nil {
		return err
	}
	return c.setAllowedBinning()
}

// maxBinningValues caps how many binning factors are offered per axis
const maxBinningValues = 64

// binningValues lists min, min+inc, ... max of a binning feature
func (c *Camera) binningValues(f genicam.IntFeature) ([]string, error) {
	if !c.reg.IsAvailable(f) {
		return nil, nil
	}
	lo, err := c.reg.IntMin(f)
	if err != nil {
		return nil, err
	}
	hi, err := c.reg.IntMax(f)
	if err != nil {
		return nil, err
	}
	inc, err := c.reg.IntIncrement(f)
	if err != nil {
		return nil, err
	}
	if inc < 1 {
		inc = 1
	}
	if hi < lo {
		return nil, nil
	}
	var out []string
	for i := lo; ; i += inc {
		if len(out) == maxBinningValues {
			// too many to list, offer the ends
			return []string{strconv.FormatInt(lo, 10), strconv.FormatInt(hi, 10)}, nil
		}
		out = append(out, strconv.FormatInt(i, 10))
		// unsigned so i+inc is never computed past hi
		if uint64(hi)-uint64(i) < uint64(inc) {
			break
		}
	}
	return out, nil
}

func (c *Camera) setAllowedBinning() error {
	v, err := c.binningValues(genicam.BinningVertical)
	if err != nil {
		return err
	}
	if len(v) > 0 {
		if err := c.prop.SetAllowedValues(KeywordBinningVertical, v); err != nil {
			return err
		}
	}
	h, err := c.binningValues(genicam.BinningHorizontal)
	if err != nil {
		return err
	}
	if len(h) > 0 {
		if err := c.prop.SetAllowedValues(KeywordBinningHorizont, h); err != nil {
			return err
		}
	}
	return c.prop.SetAllowedValues(KeywordBinning, AllowedBinning(v, h))
}

// AllowedBinning is the sorted union of the vertical and horizontal binning
// factors, or just "1" when the camera bins neither way
func AllowedBinning(vertical, horizontal []string) []string {
	seen := make(map[int64]bool)
	var nums []int64
	for _, s := range append(append([]string(nil), vertical...), horizontal...) {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil || seen[n] {
			continue
		}
		seen[n] = true
		nums = append(nums, n)
	}
	if len(nums) == 0 {
		return []string{"1"}
	}
	sort.Slice(nums, func(i, j int) bool { return nums[i] < nums[j] })
	out := make([]string, len(nums))
	for i, n := range nums {
		out[i] = strconv.FormatInt(n, 10)
	}
	return out
}

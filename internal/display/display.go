//go:build tinygo

// Package display renders roller-blind status onto an optional
// Sharp Memory LCD attached to the board, the same sharpmem.Device the
// teacher's examples/sharpmem demo drives directly, plus a scrolling
// debug log rendered with tinyterm.
package display

import (
	"image/color"

	"tinygo.org/x/drivers"
	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/freemono"
	"tinygo.org/x/tinyterm"

	"github.com/faern/fyrtur-motor-board/internal/motion"
	"github.com/faern/fyrtur-motor-board/internal/quadrature"
)

var fg = color.RGBA{R: 255, G: 255, B: 255, A: 255}

// Target is the subset of a display device the status panel draws to.
// sharpmem.Device satisfies it directly.
type Target interface {
	drivers.Displayer
	ClearDisplay() error
}

// Panel paints a one-line status summary and feeds a scrolling debug
// log.
type Panel struct {
	target Target
	font   *tinyfont.Font
	term   *tinyterm.Terminal
	logTop int16
}

// New builds a Panel. logTop is stored on the Panel but not passed to
// the terminal: the tinyterm terminal is created over the whole target,
// so the debug log is not offset below the status line.
func New(target Target, logTop int16) *Panel {
	return &Panel{
		target: target,
		font:   &freemono.Regular9pt7b,
		term:   tinyterm.NewTerminal(target),
		logTop: logTop,
	}
}

// Refresh redraws the status line from the current controller/decoder
// state and flushes the underlying display buffer.
func (p *Panel) Refresh(c *motion.Controller, d *quadrature.Decoder) error {
	if err := p.target.ClearDisplay(); err != nil {
		return err
	}

	line := statusLine(c, d)
	tinyfont.WriteLine(p.target, p.font, 0, 12, line, fg)

	return p.target.Display()
}

// Log writes a line to the scrolling debug terminal, e.g. for
// stall/calibration transitions.
func (p *Panel) Log(line string) {
	p.term.Write([]byte(line))
	p.term.Write([]byte("\r\n"))
}

func statusLine(c *motion.Controller, d *quadrature.Decoder) string {
	pct := c.PositionPercent()
	status := c.Status().String()
	rpm := d.RPM(c.GearRatio())
	return itoa(int(pct)) + "% " + status + " " + itoa(int(rpm)) + "rpm"
}

// itoa avoids pulling in strconv's formatting machinery for this one
// small, always-non-negative case.
func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [10]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

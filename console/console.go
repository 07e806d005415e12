// Package console draws the status panel and the panic screen on the HAL
// framebuffer.
package console

import (
	"image/color"
	"strings"
	"unicode/utf8"

	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"
	"tinygo.org/x/tinyterm"

	"rtcore/hal"
)

const (
	fontHeight = 10
	fontOffset = 7
)

var (
	background = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	panicBG    = color.RGBA{R: 160, G: 0, B: 0, A: 255}
	panicFG    = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

// Console renders fixed-size text panels. A nil framebuffer turns every
// call into a no-op.
type Console struct {
	d    *fbDisplay
	font *tinyfont.Font

	fontWidth int16
	cols      int
	rows      int
	frames    uint64
}

// New returns a console drawing into fb.
func New(fb hal.Framebuffer) *Console {
	c := &Console{d: &fbDisplay{fb: fb}, font: &proggy.TinySZ8pt7b}
	_, w := tinyfont.LineWidth(c.font, "0")
	c.fontWidth = int16(w)
	if c.fontWidth <= 0 {
		c.fontWidth = 6
	}
	if fb != nil {
		c.cols = fb.Width() / int(c.fontWidth)
		c.rows = fb.Height() / fontHeight
	}
	return c
}

// Size returns the panel dimensions in characters.
func (c *Console) Size() (cols, rows int) { return c.cols, c.rows }

// Frames returns the number of panels presented so far.
func (c *Console) Frames() uint64 { return c.frames }

// Render replaces the panel with lines and presents it. Lines past the last
// row are dropped; long lines are cut at the panel width.
func (c *Console) Render(lines []string) error {
	if c.d.fb == nil || c.rows == 0 {
		return nil
	}
	c.d.fb.ClearRGB(background.R, background.G, background.B)

	t := tinyterm.NewTerminal(c.d)
	t.Configure(&tinyterm.Config{
		Font:       c.font,
		FontHeight: fontHeight,
		FontOffset: fontOffset,
	})

	var b strings.Builder
	for i, line := range lines {
		if i >= c.rows {
			break
		}
		if i > 0 {
			b.WriteString("\r\n")
		}
		s, _ := takeRunes(line, c.cols)
		b.WriteString(s)
	}
	if _, err := t.Write([]byte(b.String())); err != nil {
		return err
	}
	if err := c.d.Display(); err != nil {
		return err
	}
	c.frames++
	return nil
}

// Panic paints a full-screen report and presents it. Long lines wrap; text
// past the bottom edge is dropped.
func (c *Console) Panic(title string, lines []string) error {
	if c.d.fb == nil || c.rows == 0 {
		return nil
	}
	w, h := c.d.Size()
	_ = c.d.FillRectangle(0, 0, w, h, panicBG)

	y := int16(0)
	draw := func(s string) bool {
		for {
			if y+fontHeight > h {
				return false
			}
			chunk, rest := takeRunes(s, c.cols)
			tinyfont.WriteLine(c.d, c.font, 0, y+fontOffset, chunk, panicFG)
			y += fontHeight
			s = strings.TrimLeft(rest, " \t")
			if s == "" {
				return true
			}
		}
	}

	if draw(title) {
		for _, line := range lines {
			if line == "" {
				continue
			}
			if !draw(line) {
				break
			}
		}
	}
	if err := c.d.Display(); err != nil {
		return err
	}
	c.frames++
	return nil
}

func takeRunes(s string, n int) (prefix, rest string) {
	if n <= 0 || s == "" {
		return "", s
	}
	if len(s) <= n {
		return s, ""
	}
	i, count := 0, 0
	for i < len(s) && count < n {
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
		count++
	}
	return s[:i], s[i:]
}

package lcd

import (
	"strings"

	"github.com/sweeney/plant-irrigator/internal/logic"
)

// OpKind names a recorded device call.
type OpKind string

const (
	OpClear     OpKind = "CLEAR"
	OpSetCursor OpKind = "SET_CURSOR"
	OpPrint     OpKind = "PRINT"
	OpPower     OpKind = "POWER"
)

// Op is one recorded device call.
type Op struct {
	Kind OpKind
	Col  uint8
	Row  uint8
	Text string
	On   bool
}

// FakeDevice is a test double that records calls and models a 16x2 screen.
type FakeDevice struct {
	// Ops contains every call, in order.
	Ops []Op

	// DropClears makes the next N Clear calls have no effect on the screen,
	// like a module that misses a command.
	DropClears int

	// Powered is the current power state.
	Powered bool

	screen [Rows][logic.DisplayColumns]byte
	col    uint8
	row    uint8
}

// NewFakeDevice creates a powered, blank FakeDevice.
func NewFakeDevice() *FakeDevice {
	f := &FakeDevice{Powered: true}
	f.blank()
	return f
}

// Clear blanks the screen and homes the cursor.
func (f *FakeDevice) Clear() {
	f.Ops = append(f.Ops, Op{Kind: OpClear})
	if f.DropClears > 0 {
		f.DropClears--
		return
	}
	f.blank()
	f.col, f.row = 0, 0
}

// SetCursor moves the cursor.
func (f *FakeDevice) SetCursor(col, row uint8) {
	f.Ops = append(f.Ops, Op{Kind: OpSetCursor, Col: col, Row: row})
	f.col, f.row = col, row
}

// Print writes text at the cursor; characters past the last column are lost.
func (f *FakeDevice) Print(text []byte) {
	f.Ops = append(f.Ops, Op{Kind: OpPrint, Text: string(text)})
	if int(f.row) >= Rows {
		return
	}
	for _, c := range text {
		if int(f.col) >= logic.DisplayColumns {
			break
		}
		f.screen[f.row][f.col] = c
		f.col++
	}
}

// Power switches the display on or off. Contents are retained.
func (f *FakeDevice) Power(on bool) {
	f.Ops = append(f.Ops, Op{Kind: OpPower, On: on})
	f.Powered = on
}

// Line returns the visible text of row i with trailing blanks removed.
func (f *FakeDevice) Line(i int) string {
	return strings.TrimRight(string(f.screen[i][:]), " ")
}

// Cursor returns the current cursor position.
func (f *FakeDevice) Cursor() (col, row uint8) {
	return f.col, f.row
}

// Prints returns the text of every Print call, in order.
func (f *FakeDevice) Prints() []string {
	var out []string
	for _, op := range f.Ops {
		if op.Kind == OpPrint {
			out = append(out, op.Text)
		}
	}
	return out
}

// Reset clears recorded calls. The screen contents are kept.
func (f *FakeDevice) Reset() {
	f.Ops = nil
	f.DropClears = 0
}

func (f *FakeDevice) blank() {
	for r := range f.screen {
		for c := range f.screen[r] {
			f.screen[r][c] = ' '
		}
	}
}

package logic

// CountdownLen is the width of a formatted countdown: "HHh:MMmin".
const CountdownLen = 9

// countdownTemplate is written over in place; digits land right to left.
var countdownTemplate = [CountdownLen]byte{'0', '0', 'h', ':', '0', '0', 'm', 'i', 'n'}

const (
	hoursEnd = 2 // index one past the hours field
	minsEnd  = 6 // index one past the minutes field
)

// Countdown is the time left until the next sensing window.
type Countdown struct {
	Hours   uint32
	Minutes uint32
}

// NewCountdown splits a whole number of minutes into hours and minutes.
func NewCountdown(totalMinutes uint32) Countdown {
	return Countdown{
		Hours:   totalMinutes / 60,
		Minutes: totalMinutes % 60,
	}
}

// Format writes the countdown into buf as "HHh:MMmin" without allocating.
// Either field reaching 100 returns ErrCountdownOverflow; buf then holds the
// unmodified template and must not be shown.
func (c Countdown) Format(buf *[CountdownLen]byte) error {
	*buf = countdownTemplate
	if c.Hours >= 100 || c.Minutes >= 100 {
		return ErrCountdownOverflow
	}
	putDigits(buf, c.Minutes, minsEnd)
	putDigits(buf, c.Hours, hoursEnd)
	return nil
}

// putDigits writes n in decimal ending just before index end.
// Zero writes nothing, leaving the template's '0's.
func putDigits(buf *[CountdownLen]byte, n uint32, end int) {
	for i := end; n > 0; n /= 10 {
		i--
		buf[i] = byte('0' + n%10)
	}
}

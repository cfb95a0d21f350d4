// datetime.go - the Datetime device: local wall-clock fields refreshed
// on every DEI (§4.F/4.L).

package varvara

import (
	"time"

	"github.com/zotley/uxnvm/internal/uxn"
)

const datetimeBase = 0xC0

const (
	dtYear   = 0x00 // u16
	dtMonth  = 0x02
	dtDay    = 0x03
	dtHour   = 0x04
	dtMinute = 0x05
	dtSecond = 0x06
	dtDotw   = 0x07
	dtDoy    = 0x08 // u16
	dtIsDST  = 0x0A
)

// Datetime implements the §4.L device. Now is overridable for tests;
// it defaults to time.Now.
type Datetime struct {
	bus *Bus
	Now func() time.Time
}

// NewDatetime wires a Datetime device onto bus at base 0xC0.
func NewDatetime(bus *Bus) *Datetime {
	d := &Datetime{bus: bus, Now: time.Now}
	bus.Install(datetimeBase, d)
	return d
}

func (d *Datetime) dei(cpu *uxn.CPU, target uint8) uint8 {
	t := d.Now().Local()
	writeShort(&d.bus.Ports, datetimeBase+dtYear, uint16(t.Year()))
	d.bus.Ports[datetimeBase+dtMonth] = uint8(t.Month() - 1)
	d.bus.Ports[datetimeBase+dtDay] = uint8(t.Day())
	d.bus.Ports[datetimeBase+dtHour] = uint8(t.Hour())
	d.bus.Ports[datetimeBase+dtMinute] = uint8(t.Minute())
	d.bus.Ports[datetimeBase+dtSecond] = uint8(t.Second())
	d.bus.Ports[datetimeBase+dtDotw] = uint8(t.Weekday())
	writeShort(&d.bus.Ports, datetimeBase+dtDoy, uint16(t.YearDay()-1))
	_, offset := t.Zone()
	_, janOffset := time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, t.Location()).Zone()
	isDST := uint8(0)
	if offset != janOffset {
		isDST = 1
	}
	d.bus.Ports[datetimeBase+dtIsDST] = isDST
	return d.bus.Ports[target]
}

func (d *Datetime) deo(cpu *uxn.CPU, target uint8) bool { return true }

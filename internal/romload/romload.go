// Package romload loads a Uxn ROM image from disk and encodes the CLI
// argument-injection byte stream the Console device consumes on boot,
// grounded on the teacher's MediaLoader (media_loader.go): plain
// os.ReadFile plus a size check, adapted here from "load a
// sound file into a staging buffer" to "load a ROM image into the CPU's
// address space".
package romload

import (
	"fmt"
	"os"
)

// MaxROMSize is the largest ROM Load accepts before the overflow past
// the main 64 KiB image is handed to the System device's expansion
// banks (§6 "ROM load").
const MaxROMSize = 0x10000 + 15*0x10000

// Load reads path and returns its raw bytes. It refuses anything larger
// than MaxROMSize so a malformed file cannot exhaust expansion memory.
func Load(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("romload: %w", err)
	}
	if len(data) > MaxROMSize {
		return nil, fmt.Errorf("romload: %s is %d bytes, exceeds max %d", path, len(data), MaxROMSize)
	}
	return data, nil
}

// ArgByte is one byte of the console argument-injection stream §4.F/4.M
// describe: each argument's bytes are followed by a type-3 spacer, the
// final argument by a type-4 terminator instead.
type ArgByte struct {
	Byte   byte
	Final  bool
	Spacer bool
}

// EncodeArgs flattens args into the ordered ArgByte stream a Machine's
// QueueArg expects to replay, one byte at a time, after boot.
func EncodeArgs(args []string) []ArgByte {
	var out []ArgByte
	for i, arg := range args {
		for _, b := range []byte(arg) {
			out = append(out, ArgByte{Byte: b})
		}
		last := i == len(args)-1
		if last {
			out = append(out, ArgByte{Byte: '\n', Final: true})
		} else {
			out = append(out, ArgByte{Byte: '\n', Spacer: true})
		}
	}
	return out
}

// file.go - the File device: name-driven open, sandboxed to the
// process working directory, chunked reads/writes, directory listing
// as a text stream (§4.F/4.K).

package varvara

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/zotley/uxnvm/internal/uxn"
)

const fileBase = 0xA0

const (
	filSuccess = 0x02 // u16
	filStat    = 0x04 // u16
	filDelete  = 0x06
	filAppend  = 0x07
	filName    = 0x08 // u16
	filLength  = 0x0A // u16
	filRead    = 0x0C // u16
	filWrite   = 0x0E // u16
)

// handle is the File device's open state: a file being read, a file
// being written, or the rendered "XXXX name\n" directory listing, kept
// so a directory read can be drained across several chunked READ calls.
type handle struct {
	file    *os.File
	writeF  *os.File
	dirLeft []byte // remaining bytes of the rendered directory listing
}

// File implements the §4.K device.
type File struct {
	bus *Bus
	h   *handle

	warned map[string]bool
	Stderr func(string)
}

// NewFile wires a File device onto bus at base 0xA0.
func NewFile(bus *Bus) *File {
	f := &File{bus: bus, warned: map[string]bool{}}
	f.Stderr = func(s string) { fmt.Fprint(os.Stderr, s) }
	bus.Install(fileBase, f)
	return f
}

func (f *File) dei(cpu *uxn.CPU, target uint8) uint8 { return f.bus.Ports[target] }

func (f *File) deo(cpu *uxn.CPU, target uint8) bool {
	off := target - fileBase
	switch off {
	case filRead + 1:
		f.doRead(cpu)
	case filWrite + 1:
		f.doWrite(cpu)
	case filName, filName + 1:
		f.closeHandle()
	}
	return true
}

func (f *File) closeHandle() {
	if f.h == nil {
		return
	}
	if f.h.file != nil {
		f.h.file.Close()
	}
	if f.h.writeF != nil {
		f.h.writeF.Close()
	}
	f.h = nil
}

// filename reads the NUL-terminated name string from RAM at `name`.
func (f *File) filename(cpu *uxn.CPU) string {
	addr := readShort(&f.bus.Ports, fileBase+filName)
	var sb strings.Builder
	for {
		b := cpu.Ram[addr]
		if b == 0 {
			break
		}
		sb.WriteByte(b)
		addr++
	}
	return sb.String()
}

// resolveSandboxed canonicalizes path and rejects anything outside the
// process working directory, or a symlink (§4.K, §7 filesystem sandbox
// violation kind).
func (f *File) resolveSandboxed(name string) (string, os.FileInfo, error) {
	info, err := os.Lstat(name)
	if err != nil {
		return "", nil, err
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return "", nil, fmt.Errorf("%s is a symlink", name)
	}
	abs, err := filepath.Abs(name)
	if err != nil {
		return "", nil, err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", nil, err
	}
	pwd, err := os.Getwd()
	if err != nil {
		return "", nil, err
	}
	if resolved != pwd && !strings.HasPrefix(resolved, pwd+string(filepath.Separator)) {
		return "", nil, fmt.Errorf("%s is outside the working directory", name)
	}
	return resolved, info, nil
}

func (f *File) warnOnce(key, msg string) {
	if f.warned[key] {
		return
	}
	f.warned[key] = true
	if f.Stderr != nil {
		f.Stderr(msg + "\n")
	}
}

func (f *File) setSuccess(n uint16) {
	writeShort(&f.bus.Ports, fileBase+filSuccess, n)
}

func (f *File) doRead(cpu *uxn.CPU) {
	f.setSuccess(0)

	if f.h == nil || (f.h.file == nil && f.h.dirLeft == nil) {
		name := f.filename(cpu)
		path, info, err := f.resolveSandboxed(name)
		if err != nil {
			f.warnOnce("read:"+name, "uxn: file read failed for "+name+": "+err.Error())
			return
		}
		if info.IsDir() {
			listing, err := f.renderDir(path)
			if err != nil {
				f.warnOnce("readdir:"+name, "uxn: could not list "+name+": "+err.Error())
				return
			}
			f.h = &handle{dirLeft: listing}
		} else {
			file, err := os.Open(path)
			if err != nil {
				f.warnOnce("open:"+name, "uxn: could not open "+name+": "+err.Error())
				return
			}
			f.h = &handle{file: file}
		}
	}

	length := readShort(&f.bus.Ports, fileBase+filLength)
	buf := make([]byte, length)
	var n int
	if f.h.file != nil {
		var err error
		n, err = f.h.file.Read(buf)
		if n == 0 && err != nil {
			f.closeHandle()
		}
	} else {
		n = copy(buf, f.h.dirLeft)
		f.h.dirLeft = f.h.dirLeft[n:]
	}

	addr := readShort(&f.bus.Ports, fileBase+filRead)
	for i := 0; i < n; i++ {
		cpu.Ram[addr] = buf[i]
		addr++
	}
	f.setSuccess(uint16(n))
}

// renderDir builds the "XXXX name\n" (or "----"/"????") listing text
// for every entry in dir, sorted by name (§4.K, supplemented from
// raven-varvara/src/file.rs's directory-read behavior).
func (f *File) renderDir(dir string) ([]byte, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var sb strings.Builder
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			continue
		}
		var size string
		switch {
		case info.IsDir():
			size = "----"
		case info.Size() >= 1<<16:
			size = "????"
		default:
			size = fmt.Sprintf("%04x", info.Size())
		}
		sb.WriteString(size)
		sb.WriteByte(' ')
		sb.WriteString(e.Name())
		sb.WriteByte('\n')
	}
	return []byte(sb.String()), nil
}

func (f *File) doWrite(cpu *uxn.CPU) {
	f.setSuccess(0)

	if f.h == nil || f.h.writeF == nil {
		name := f.filename(cpu)
		path, info, err := f.resolveSandboxed(name)
		if err != nil {
			if !os.IsNotExist(err) {
				f.warnOnce("writesandbox:"+name, "uxn: file write refused for "+name+": "+err.Error())
				return
			}
			// The file may not exist yet; its parent directory must pass
			// the sandbox check before it is created below.
			if _, _, perr := f.resolveSandboxed(filepath.Dir(name)); perr != nil {
				f.warnOnce("writesandbox:"+name, "uxn: file write refused for "+name+": "+perr.Error())
				return
			}
			path = name
		} else if info.IsDir() {
			f.warnOnce("writedir:"+name, "uxn: "+name+" is a directory; skipping")
			return
		}
		flags := os.O_WRONLY | os.O_CREATE
		if f.bus.Ports[fileBase+filAppend] == 1 {
			flags |= os.O_APPEND
		} else {
			flags |= os.O_TRUNC
		}
		file, err := os.OpenFile(path, flags, 0644)
		if err != nil {
			f.warnOnce("openw:"+name, "uxn: could not open "+name+" for writing: "+err.Error())
			return
		}
		f.closeHandle()
		f.h = &handle{writeF: file}
	}

	length := readShort(&f.bus.Ports, fileBase+filLength)
	addr := readShort(&f.bus.Ports, fileBase+filWrite)
	buf := make([]byte, length)
	for i := range buf {
		buf[i] = cpu.Ram[addr]
		addr++
	}
	n, err := f.h.writeF.Write(buf)
	if err != nil {
		f.warnOnce("write-err", "uxn: write failed: "+err.Error())
		return
	}
	f.setSuccess(uint16(n))
}

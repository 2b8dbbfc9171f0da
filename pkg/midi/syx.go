package midi

import (
	"bytes"
	"io"
	"os"

	"github.com/pkg/errors"
)

// ErrInvalidSysex is wrapped by every .syx parsing failure
var ErrInvalidSysex = errors.New("invalid sysex")

// SplitSysex cuts a .syx dump into its F0..F7 messages. Every data byte
// must be 7-bit and every message must be terminated.
func SplitSysex(data []byte) ([]SysexEvent, error) {
	var events []SysexEvent

	for i := 0; i < len(data); {
		if data[i] != StatusSysExStart {
			return nil, errors.Wrapf(ErrInvalidSysex, "offset %d: expected 0x%02X, got 0x%02X", i, StatusSysExStart, data[i])
		}

		end := bytes.IndexByte(data[i+1:], StatusSysExEnd)
		if end < 0 {
			return nil, errors.Wrapf(ErrInvalidSysex, "offset %d: unterminated message", i)
		}
		end += i + 1

		for j := i + 1; j < end; j++ {
			if data[j] > 0x7F {
				return nil, errors.Wrapf(ErrInvalidSysex, "offset %d: data byte 0x%02X is not 7-bit", j, data[j])
			}
		}

		msg := make([]byte, end-i+1)
		copy(msg, data[i:end+1])
		events = append(events, SysexEvent{Data: msg})
		i = end + 1
	}

	if len(events) == 0 {
		return nil, errors.Wrap(ErrInvalidSysex, "no messages")
	}
	return events, nil
}

// ReadSysexFile loads a .syx dump
func ReadSysexFile(filename string) ([]SysexEvent, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read syx file")
	}
	return SplitSysex(data)
}

// WriteSysex writes events back to back as a .syx dump
func WriteSysex(w io.Writer, events []SysexEvent) error {
	for _, ev := range events {
		if _, err := w.Write(ev.Message()); err != nil {
			return err
		}
	}
	return nil
}

// WriteSysexFile writes events to a .syx file
func WriteSysexFile(filename string, events []SysexEvent) error {
	var buf bytes.Buffer
	if err := WriteSysex(&buf, events); err != nil {
		return err
	}
	return os.WriteFile(filename, buf.Bytes(), 0644)
}

// ManufacturerID returns the one or three byte vendor prefix of a message
func (e SysexEvent) ManufacturerID() ([]byte, bool) {
	msg := e.Message()
	if len(msg) < 3 {
		return nil, false
	}
	if msg[1] == 0x00 {
		if len(msg) < 5 {
			return nil, false
		}
		return msg[1:4], true
	}
	return msg[1:2], true
}

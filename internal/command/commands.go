package command

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/geowiwi/ems-gateway/pkg/ems"
)

// dispatch parses one command line, runs it against c, and renders the
// outcome as a single wire reply line. It never panics on malformed
// input: every branch either returns a value or a typed *Error.
func dispatch(ctx context.Context, c *Connection, line string) string {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return invalidCmd().Error()
	}

	var (
		result string
		err    error
	)
	switch strings.ToLower(fields[0]) {
	case "geterrors":
		result, err = cmdGetErrors(ctx, c, fields[1:])
	case "hk1":
		result, err = cmdHK(ctx, c, ems.SubTypeHK1, fields[1:])
	case "hk2":
		result, err = cmdHK(ctx, c, ems.SubTypeHK2, fields[1:])
	case "ww":
		result, err = cmdWW(ctx, c, fields[1:])
	case "thermdesinfect":
		result, err = cmdThermDesinfect(ctx, c, fields[1:])
	case "zirkpump":
		result, err = cmdZirkPump(ctx, c, fields[1:])
	default:
		err = invalidCmd()
	}

	if err != nil {
		return asCommandError(err).Error()
	}
	return "OK " + result
}

// asCommandError normalises any error returned by a bus round trip into
// the command layer's typed Error, defaulting to KindBus for anything
// not already classified.
func asCommandError(err error) *Error {
	if ce, ok := err.(*Error); ok {
		return ce
	}
	return busFailure(err)
}

func cmdGetErrors(ctx context.Context, c *Connection, args []string) (string, error) {
	start := 0
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 0 {
			return "", invalidArgs()
		}
		start = n
	}
	recs, err := c.getErrors(ctx, start)
	if err != nil {
		return "", err
	}
	parts := make([]string, len(recs))
	for i, v := range recs {
		parts[i] = v.String()
	}
	return strings.Join(parts, ";"), nil
}

// hkMonitorType maps an HK subtype to its RC monitor/setpoint request
// type, matching the dispatch table in pkg/ems/descriptors.go.
func hkMonitorType(sub ems.SubType) (byte, bool) {
	switch sub {
	case ems.SubTypeHK1:
		return 0x3E, true
	case ems.SubTypeHK2:
		return 0x48, true
	default:
		return 0, false
	}
}

func cmdHK(ctx context.Context, c *Connection, sub ems.SubType, args []string) (string, error) {
	if len(args) == 0 {
		return "", invalidCmd()
	}
	typ, ok := hkMonitorType(sub)
	if !ok {
		return "", invalidArgs()
	}
	switch strings.ToLower(args[0]) {
	case "getsolltemp":
		field := ems.HKSollTempField(sub)
		reply, err := c.request(ctx, ems.RC, typ, byte(field.Offset), nil)
		if err != nil {
			return "", err
		}
		v, ok := reply.Numeric(field)
		if !ok {
			return "", busFailure(errNoValue)
		}
		return formatFloat(v), nil

	case "setsolltemp":
		if len(args) != 2 {
			return "", invalidArgs()
		}
		f, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return "", invalidArgs()
		}
		field := ems.HKSollTempField(sub)
		payload := ems.EncodeNumeric(field, f)
		if _, err := c.request(ctx, ems.RC, typ, byte(field.Offset), payload); err != nil {
			return "", err
		}
		return "", nil

	case "getkennlinie":
		reply, err := c.request(ctx, ems.RC, typ, 7, nil)
		if err != nil {
			return "", err
		}
		if !reply.CanAccess(7, 3) {
			return "", busFailure(errNoValue)
		}
		b := reply.At(7, 3)
		return fmt.Sprintf("%d,%d,%d", b[0], b[1], b[2]), nil

	case "setkennlinie":
		if len(args) != 4 {
			return "", invalidArgs()
		}
		low, err1 := strconv.Atoi(args[1])
		med, err2 := strconv.Atoi(args[2])
		high, err3 := strconv.Atoi(args[3])
		if err1 != nil || err2 != nil || err3 != nil {
			return "", invalidArgs()
		}
		if !inByteRange(low) || !inByteRange(med) || !inByteRange(high) {
			return "", invalidArgs()
		}
		payload := []byte{byte(low), byte(med), byte(high)}
		if _, err := c.request(ctx, ems.RC, typ, 7, payload); err != nil {
			return "", err
		}
		return "", nil

	default:
		return "", invalidCmd()
	}
}

func cmdWW(ctx context.Context, c *Connection, args []string) (string, error) {
	if len(args) == 0 {
		return "", invalidCmd()
	}
	switch strings.ToLower(args[0]) {
	case "getsolltemp":
		field := ems.WWSollTempField()
		reply, err := c.request(ctx, ems.UBA, 0x33, byte(field.Offset), nil)
		if err != nil {
			return "", err
		}
		v, ok := reply.Numeric(field)
		if !ok {
			return "", busFailure(errNoValue)
		}
		return formatFloat(v), nil

	case "setsolltemp":
		if len(args) != 2 {
			return "", invalidArgs()
		}
		f, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return "", invalidArgs()
		}
		field := ems.WWSollTempField()
		payload := ems.EncodeNumeric(field, f)
		if _, err := c.request(ctx, ems.UBA, 0x33, byte(field.Offset), payload); err != nil {
			return "", err
		}
		return "", nil

	default:
		return "", invalidCmd()
	}
}

func cmdThermDesinfect(ctx context.Context, c *Connection, args []string) (string, error) {
	return toggleCmd(ctx, c, ems.UBA, 0x33, 8, args)
}

func cmdZirkPump(ctx context.Context, c *Connection, args []string) (string, error) {
	return toggleCmd(ctx, c, ems.UBA, 0x33, 9, args)
}

// toggleCmd implements the shared get/enable/disable shape used by the
// two warm-water toggle commands: a single-byte flag at a fixed offset
// within the UBA warm-water parameter frame.
func toggleCmd(ctx context.Context, c *Connection, dest, typ byte, offset int, args []string) (string, error) {
	if len(args) == 0 {
		return "", invalidCmd()
	}
	switch strings.ToLower(args[0]) {
	case "get":
		reply, err := c.request(ctx, dest, typ, byte(offset), nil)
		if err != nil {
			return "", err
		}
		if !reply.CanAccess(offset, 1) {
			return "", busFailure(errNoValue)
		}
		if reply.At(offset, 1)[0] != 0 {
			return "on", nil
		}
		return "off", nil
	case "enable":
		if _, err := c.request(ctx, dest, typ, byte(offset), []byte{1}); err != nil {
			return "", err
		}
		return "", nil
	case "disable":
		if _, err := c.request(ctx, dest, typ, byte(offset), []byte{0}); err != nil {
			return "", err
		}
		return "", nil
	default:
		return "", invalidCmd()
	}
}

func inByteRange(n int) bool { return n >= 0 && n <= 0xff }

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 1, 64)
}

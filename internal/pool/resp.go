package pool

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// RESP wire codec. Replies decode to:
//
//	+simple  -> string
//	-error   -> *ResponseError (returned as the error, not the reply)
//	:integer -> int64
//	$bulk    -> []byte, nil for $-1
//	*array   -> []interface{}, nil for *-1
var errProtocol = errors.New("protocol error")

var crlf = []byte("\r\n")

// writeCommand encodes cmd and args as a RESP array of bulk strings.
func writeCommand(w *bufio.Writer, cmd string, args ...interface{}) error {
	if _, err := fmt.Fprintf(w, "*%d\r\n", len(args)+1); err != nil {
		return err
	}
	if err := writeBulk(w, []byte(cmd)); err != nil {
		return err
	}
	for _, arg := range args {
		if err := writeBulk(w, argBytes(arg)); err != nil {
			return err
		}
	}
	return w.Flush()
}

func writeBulk(w *bufio.Writer, b []byte) error {
	if _, err := fmt.Fprintf(w, "$%d\r\n", len(b)); err != nil {
		return err
	}
	if _, err := w.Write(b); err != nil {
		return err
	}
	_, err := w.Write(crlf)
	return err
}

// argBytes renders a command argument. Strings and byte slices pass through;
// integers render in decimal; anything else falls back to fmt.Sprint.
func argBytes(arg interface{}) []byte {
	switch v := arg.(type) {
	case string:
		return []byte(v)
	case []byte:
		return v
	case int:
		return strconv.AppendInt(nil, int64(v), 10)
	case int64:
		return strconv.AppendInt(nil, v, 10)
	default:
		return []byte(fmt.Sprint(arg))
	}
}

// readReply decodes one reply. A server error reply comes back as a
// *ResponseError in the error position with a nil reply; the connection
// remains usable in that case.
func readReply(r *bufio.Reader) (interface{}, error) {
	line, err := readLine(r)
	if err != nil {
		return nil, err
	}
	if len(line) == 0 {
		return nil, errProtocol
	}
	switch line[0] {
	case '+':
		return string(line[1:]), nil
	case '-':
		return nil, &ResponseError{Message: string(line[1:])}
	case ':':
		n, err := strconv.ParseInt(string(line[1:]), 10, 64)
		if err != nil {
			return nil, errProtocol
		}
		return n, nil
	case '$':
		n, err := strconv.Atoi(string(line[1:]))
		if err != nil {
			return nil, errProtocol
		}
		if n < 0 {
			return nil, nil
		}
		buf := make([]byte, n+2)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, err
		}
		if buf[n] != '\r' || buf[n+1] != '\n' {
			return nil, errProtocol
		}
		return buf[:n], nil
	case '*':
		n, err := strconv.Atoi(string(line[1:]))
		if err != nil {
			return nil, errProtocol
		}
		if n < 0 {
			return nil, nil
		}
		elems := make([]interface{}, 0, n)
		for i := 0; i < n; i++ {
			elem, err := readReply(r)
			if err != nil {
				// Nested error replies are legal inside arrays; keep them
				// as values so the surrounding array stays intact.
				var respErr *ResponseError
				if errors.As(err, &respErr) {
					elem = respErr
				} else {
					return nil, err
				}
			}
			elems = append(elems, elem)
		}
		return elems, nil
	default:
		return nil, errProtocol
	}
}

// readLine reads one CRLF-terminated line, returning it without the CRLF.
func readLine(r *bufio.Reader) ([]byte, error) {
	line, err := r.ReadBytes('\n')
	if err != nil {
		return nil, err
	}
	i := len(line) - 2
	if i < 0 || line[i] != '\r' {
		return nil, errProtocol
	}
	return line[:i], nil
}

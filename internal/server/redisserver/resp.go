package redisserver

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/yndnr/kvmesh-go/internal/command"
)

// Protocol limits.
const (
	// MaxArrayLen limits the number of elements in a RESP array.
	MaxArrayLen = 64 * 1024

	// MaxBulkLen limits the size of a single bulk string (4MB).
	MaxBulkLen = 4 * 1024 * 1024

	// MaxInlineLen limits inline command line length (64KB).
	MaxInlineLen = 64 * 1024
)

var (
	ErrProtocol      = errors.New("resp: protocol error")
	ErrLimitExceeded = errors.New("resp: limit exceeded")
)

// ReadCommand reads one command and returns its tokens. Both the array
// form ("*2\r\n$3\r\nGET\r\n$1\r\nk\r\n") and the inline form
// ("GET k\r\n") are accepted. An empty command returns nil, nil.
func ReadCommand(r *bufio.Reader) ([]string, error) {
	b, err := r.Peek(1)
	if err != nil {
		return nil, err
	}
	if b[0] != '*' {
		line, err := readInlineLine(r)
		if err != nil {
			return nil, err
		}
		return strings.Fields(line), nil
	}

	line, err := readLine(r, maxHeaderLen)
	if err != nil {
		return nil, err
	}
	n, err := parseLength(line[1:], "array", MaxArrayLen)
	if err != nil || n <= 0 {
		return nil, err
	}

	args := make([]string, n)
	for i := range args {
		if args[i], err = readArg(r); err != nil {
			return nil, err
		}
	}
	return args, nil
}

// readArg reads one array element of a client command. Clients send bulk
// strings; a simple string is tolerated and a null bulk reads as "".
func readArg(r *bufio.Reader) (string, error) {
	line, err := readLine(r, maxHeaderLen)
	if err != nil {
		return "", err
	}
	switch {
	case strings.HasPrefix(line, "+"):
		return line[1:], nil
	case !strings.HasPrefix(line, "$"):
		return "", fmt.Errorf("%w: expected bulk string", ErrProtocol)
	}
	n, err := parseLength(line[1:], "bulk", MaxBulkLen)
	if err != nil || n < 0 {
		return "", err
	}
	body, err := readBody(r, n)
	return string(body), err
}

// maxHeaderLen bounds "*<n>" and "$<n>" lines.
const maxHeaderLen = 64

// parseLength parses the count after a '*' or '$' marker. -1 is the null
// marker; anything else outside [0, limit] is rejected.
func parseLength(s, what string, limit int) (int, error) {
	n, err := strconv.Atoi(s)
	switch {
	case err != nil || n < -1:
		return 0, fmt.Errorf("%w: invalid %s length %q", ErrProtocol, what, s)
	case n > limit:
		return 0, fmt.Errorf("%w: %s length %d exceeds limit %d", ErrLimitExceeded, what, n, limit)
	}
	return n, nil
}

// readBody reads an n-byte bulk payload and its CRLF.
func readBody(r *bufio.Reader, n int) ([]byte, error) {
	buf := make([]byte, n+2)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	if buf[n] != '\r' || buf[n+1] != '\n' {
		return nil, fmt.Errorf("%w: invalid bulk terminator", ErrProtocol)
	}
	return buf[:n], nil
}

// readLine reads up to CRLF, which is stripped. Lines longer than maxLen
// fail without buffering the rest.
func readLine(r *bufio.Reader, maxLen int) (string, error) {
	buf, err := readRawLine(r, maxLen)
	if err != nil {
		return "", err
	}
	line, ok := bytes.CutSuffix(buf, []byte("\r\n"))
	if !ok {
		return "", fmt.Errorf("%w: missing CRLF", ErrProtocol)
	}
	return string(line), nil
}

// readInlineLine reads an inline command. Hand-typed input (nc, telnet)
// may end lines with a bare LF, so the CR is optional here.
func readInlineLine(r *bufio.Reader) (string, error) {
	buf, err := readRawLine(r, MaxInlineLen)
	if err != nil {
		return "", err
	}
	buf = bytes.TrimSuffix(buf, []byte("\n"))
	buf = bytes.TrimSuffix(buf, []byte("\r"))
	return string(buf), nil
}

// readRawLine returns one line including its LF terminator.
func readRawLine(r *bufio.Reader, maxLen int) ([]byte, error) {
	var buf []byte
	for {
		frag, err := r.ReadSlice('\n')
		buf = append(buf, frag...)
		if len(buf) > maxLen+2 {
			return nil, fmt.Errorf("%w: line length exceeds limit %d", ErrLimitExceeded, maxLen)
		}
		if err == nil {
			return buf, nil
		}
		if !errors.Is(err, bufio.ErrBufferFull) {
			return nil, err
		}
	}
}

func WriteSimpleString(w *bufio.Writer, s string) error {
	_, err := w.WriteString("+" + s + "\r\n")
	return err
}

func WriteError(w *bufio.Writer, s string) error {
	_, err := w.WriteString("-" + s + "\r\n")
	return err
}

func WriteInteger(w *bufio.Writer, n int64) error {
	_, err := w.WriteString(":" + strconv.FormatInt(n, 10) + "\r\n")
	return err
}

func WriteNullBulk(w *bufio.Writer) error {
	_, err := w.WriteString("$-1\r\n")
	return err
}

func WriteBulk(w *bufio.Writer, b []byte) error {
	if b == nil {
		return WriteNullBulk(w)
	}
	if _, err := w.WriteString("$" + strconv.Itoa(len(b)) + "\r\n"); err != nil {
		return err
	}
	if _, err := w.Write(b); err != nil {
		return err
	}
	_, err := w.WriteString("\r\n")
	return err
}

func WriteBulkString(w *bufio.Writer, s string) error {
	if _, err := w.WriteString("$" + strconv.Itoa(len(s)) + "\r\n"); err != nil {
		return err
	}
	if _, err := w.WriteString(s); err != nil {
		return err
	}
	_, err := w.WriteString("\r\n")
	return err
}

func WriteArrayHeader(w *bufio.Writer, n int) error {
	_, err := w.WriteString("*" + strconv.Itoa(n) + "\r\n")
	return err
}

// WriteReply encodes r. Multi replies are written as consecutive frames.
func WriteReply(w *bufio.Writer, r command.Reply) error {
	switch r.Kind {
	case command.ReplyStatus:
		return WriteSimpleString(w, r.Str)
	case command.ReplyError:
		return WriteError(w, command.ErrorLine(r.Err))
	case command.ReplyInteger:
		return WriteInteger(w, r.Int)
	case command.ReplyBulk:
		return WriteBulkString(w, r.Str)
	case command.ReplyNil:
		return WriteNullBulk(w)
	case command.ReplyArray:
		if err := WriteArrayHeader(w, len(r.Items)); err != nil {
			return err
		}
		for _, item := range r.Items {
			if err := WriteReply(w, item); err != nil {
				return err
			}
		}
		return nil
	case command.ReplyMulti:
		for _, item := range r.Items {
			if err := WriteReply(w, item); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("resp: cannot encode reply kind %s", r.Kind)
	}
}

// WriteMessage writes a pubsub message frame.
func WriteMessage(w *bufio.Writer, channel, payload string) error {
	if err := WriteArrayHeader(w, 3); err != nil {
		return err
	}
	if err := WriteBulkString(w, "message"); err != nil {
		return err
	}
	if err := WriteBulkString(w, channel); err != nil {
		return err
	}
	return WriteBulkString(w, payload)
}

// WriteCommand encodes args as an array of bulk strings, the form clients
// send.
func WriteCommand(w *bufio.Writer, args []string) error {
	if err := WriteArrayHeader(w, len(args)); err != nil {
		return err
	}
	for _, a := range args {
		if err := WriteBulkString(w, a); err != nil {
			return err
		}
	}
	return nil
}

// ReadReply decodes one reply frame. Error lines become ReplyError with a
// command.WireError so they print exactly as received.
func ReadReply(r *bufio.Reader) (command.Reply, error) {
	return readReply(r, 0)
}

const maxReplyDepth = 16

func readReply(r *bufio.Reader, depth int) (command.Reply, error) {
	if depth > maxReplyDepth {
		return command.Reply{}, fmt.Errorf("%w: reply nested too deeply", ErrProtocol)
	}
	line, err := readLine(r, MaxInlineLen)
	if err != nil {
		return command.Reply{}, err
	}
	if line == "" {
		return command.Reply{}, fmt.Errorf("%w: empty reply line", ErrProtocol)
	}

	body := line[1:]
	switch line[0] {
	case '+':
		return command.Status(body), nil
	case '-':
		return command.Error(command.WireError(body)), nil
	case ':':
		n, err := strconv.ParseInt(body, 10, 64)
		if err != nil {
			return command.Reply{}, fmt.Errorf("%w: invalid integer %q", ErrProtocol, body)
		}
		return command.Integer(n), nil
	case '$':
		n, err := parseLength(body, "bulk", MaxBulkLen)
		if err != nil {
			return command.Reply{}, err
		}
		if n == -1 {
			return command.Nil(), nil
		}
		payload, err := readBody(r, n)
		if err != nil {
			return command.Reply{}, err
		}
		return command.Bulk(string(payload)), nil
	case '*':
		n, err := parseLength(body, "array", MaxArrayLen)
		if err != nil {
			return command.Reply{}, err
		}
		if n == -1 {
			return command.Nil(), nil
		}
		items := make([]command.Reply, n)
		for i := range items {
			if items[i], err = readReply(r, depth+1); err != nil {
				return command.Reply{}, err
			}
		}
		return command.Array(items...), nil
	default:
		return command.Reply{}, fmt.Errorf("%w: unexpected reply type %q", ErrProtocol, line[0])
	}
}

package redisserver

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/yndnr/kvmesh-go/internal/command"
	"github.com/yndnr/kvmesh-go/internal/core/domain"
)

// ============================================================
// ReadCommand
// ============================================================

func TestReadCommand(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"array PING", "*1\r\n$4\r\nPING\r\n", []string{"PING"}},
		{"array SET", "*3\r\n$3\r\nSET\r\n$1\r\nk\r\n$5\r\nhello\r\n", []string{"SET", "k", "hello"}},
		{"array with spaces in bulk", "*2\r\n$4\r\nECHO\r\n$5\r\na b c\r\n", []string{"ECHO", "a b c"}},
		{"empty array", "*0\r\n", nil},
		{"null array", "*-1\r\n", nil},
		{"null bulk", "*2\r\n$3\r\nGET\r\n$-1\r\n", []string{"GET", ""}},
		{"simple string arg", "*2\r\n$3\r\nGET\r\n+simple\r\n", []string{"GET", "simple"}},
		{"inline", "GET mykey\r\n", []string{"GET", "mykey"}},
		{"inline extra whitespace", "  SET   k   v  \r\n", []string{"SET", "k", "v"}},
		{"inline empty", "\r\n", nil},
		{"inline whitespace only", "   \r\n", nil},
		{"inline bare LF", "PING\n", []string{"PING"}},
		{"inline bare LF with args", "GET k\n", []string{"GET", "k"}},
		{"inline empty bare LF", "\n", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadCommand(bufio.NewReader(strings.NewReader(tt.input)))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("arg[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestReadCommand_Pipeline(t *testing.T) {
	input := "*1\r\n$4\r\nPING\r\nGET key\r\n*1\r\n$4\r\nQUIT\r\n"
	r := bufio.NewReader(strings.NewReader(input))

	for _, want := range []string{"PING", "GET key", "QUIT"} {
		got, err := ReadCommand(r)
		if err != nil {
			t.Fatalf("ReadCommand: %v", err)
		}
		if strings.Join(got, " ") != want {
			t.Errorf("got %q, want %q", got, want)
		}
	}
}

func TestReadCommand_Limits(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"array length", fmt.Sprintf("*%d\r\n", MaxArrayLen+1)},
		{"bulk length", fmt.Sprintf("*1\r\n$%d\r\n", MaxBulkLen+1)},
		{"inline length", strings.Repeat("A", MaxInlineLen+1) + "\r\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCommand(bufio.NewReader(strings.NewReader(tt.input)))
			if !errors.Is(err, ErrLimitExceeded) {
				t.Fatalf("error = %v, want ErrLimitExceeded", err)
			}
		})
	}
}

func TestReadCommand_ProtocolErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"array without CRLF", "*2\n$3\nGET\n$3\nkey\n"},
		{"invalid array count", "*abc\r\n"},
		{"invalid bulk length", "*1\r\n$xyz\r\n"},
		{"negative bulk length", "*1\r\n$-2\r\n"},
		{"missing terminator", "*1\r\n$4\r\ntest"},
		{"integer in array", "*1\r\n:1\r\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadCommand(bufio.NewReader(strings.NewReader(tt.input))); err == nil {
				t.Error("expected protocol error")
			}
		})
	}
}

// ============================================================
// Reply encoding
// ============================================================

func encode(t *testing.T, fn func(w *bufio.Writer) error) string {
	t.Helper()
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	if err := fn(w); err != nil {
		t.Fatalf("write: %v", err)
	}
	_ = w.Flush()
	return buf.String()
}

func TestWriteReply(t *testing.T) {
	tests := []struct {
		name  string
		reply command.Reply
		want  string
	}{
		{"status", command.OK(), "+OK\r\n"},
		{"integer", command.Integer(-2), ":-2\r\n"},
		{"bulk", command.Bulk("hello"), "$5\r\nhello\r\n"},
		{"empty bulk", command.Bulk(""), "$0\r\n\r\n"},
		{"nil", command.Nil(), "$-1\r\n"},
		{"error", command.Error(domain.ErrSyntax), "-ERR syntax error\r\n"},
		{"wrongtype", command.Error(domain.ErrWrongType), "-WRONGTYPE Operation against a key holding the wrong kind of value\r\n"},
		{"empty array", command.Array(), "*0\r\n"},
		{"array", command.BulkArray([]string{"a", "bc"}), "*2\r\n$1\r\na\r\n$2\r\nbc\r\n"},
		{
			"nested array",
			command.Array(command.Bulk("x"), command.Integer(1), command.Nil()),
			"*3\r\n$1\r\nx\r\n:1\r\n$-1\r\n",
		},
		{
			"multi",
			command.Multi(
				command.Array(command.Bulk("subscribe"), command.Bulk("a"), command.Integer(1)),
				command.Array(command.Bulk("subscribe"), command.Bulk("b"), command.Integer(2)),
			),
			"*3\r\n$9\r\nsubscribe\r\n$1\r\na\r\n:1\r\n*3\r\n$9\r\nsubscribe\r\n$1\r\nb\r\n:2\r\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := encode(t, func(w *bufio.Writer) error { return WriteReply(w, tt.reply) })
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWriteReply_UnknownKind(t *testing.T) {
	w := bufio.NewWriter(&bytes.Buffer{})
	if err := WriteReply(w, command.Reply{}); err == nil {
		t.Fatal("expected error for zero reply")
	}
}

func TestWriteMessage(t *testing.T) {
	got := encode(t, func(w *bufio.Writer) error { return WriteMessage(w, "news", "hi there") })
	want := "*3\r\n$7\r\nmessage\r\n$4\r\nnews\r\n$8\r\nhi there\r\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestWriteBulk_Nil(t *testing.T) {
	if got := encode(t, func(w *bufio.Writer) error { return WriteBulk(w, nil) }); got != "$-1\r\n" {
		t.Errorf("got %q", got)
	}
}

func TestWriteCommand(t *testing.T) {
	got := encode(t, func(w *bufio.Writer) error { return WriteCommand(w, []string{"SET", "k", "hello world"}) })
	want := "*3\r\n$3\r\nSET\r\n$1\r\nk\r\n$11\r\nhello world\r\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestReadReply(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string // redis-cli rendering
	}{
		{"status", "+OK\r\n", "OK"},
		{"error", "-WRONGTYPE Operation against a key holding the wrong kind of value\r\n",
			"(error) WRONGTYPE Operation against a key holding the wrong kind of value"},
		{"integer", ":-7\r\n", "(integer) -7"},
		{"bulk", "$5\r\nhello\r\n", `"hello"`},
		{"bulk with crlf", "$4\r\na\r\nb\r\n", `"a\r\nb"`},
		{"nil bulk", "$-1\r\n", "(nil)"},
		{"nil array", "*-1\r\n", "(nil)"},
		{"empty array", "*0\r\n", "(empty array)"},
		{"array", "*2\r\n$1\r\na\r\n:3\r\n", "1) \"a\"\n2) (integer) 3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := ReadReply(bufio.NewReader(strings.NewReader(tt.in)))
			if err != nil {
				t.Fatalf("ReadReply() error = %v", err)
			}
			if got := r.String(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReadReply_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want error
	}{
		{"unknown type", "?x\r\n", ErrProtocol},
		{"bad integer", ":abc\r\n", ErrProtocol},
		{"bad bulk length", "$-5\r\n", ErrProtocol},
		{"bulk too long", fmt.Sprintf("$%d\r\n", MaxBulkLen+1), ErrLimitExceeded},
		{"bad terminator", "$2\r\nabXY", ErrProtocol},
		{"empty line", "\r\n", ErrProtocol},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadReply(bufio.NewReader(strings.NewReader(tt.in)))
			if !errors.Is(err, tt.want) {
				t.Errorf("ReadReply() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestReadReply_MatchesWriteReply(t *testing.T) {
	orig := command.Array(command.Bulk("message"), command.Bulk("news"), command.Bulk("hi"))
	wire := encode(t, func(w *bufio.Writer) error { return WriteReply(w, orig) })

	got, err := ReadReply(bufio.NewReader(strings.NewReader(wire)))
	if err != nil {
		t.Fatalf("ReadReply() error = %v", err)
	}
	if got.String() != orig.String() {
		t.Errorf("got %q, want %q", got.String(), orig.String())
	}
}

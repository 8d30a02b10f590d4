package command

import (
	"errors"
	"strconv"
	"strings"

	"github.com/yndnr/kvmesh-go/internal/core/domain"
)

// ReplyKind identifies the shape of a Reply.
type ReplyKind uint8

const (
	ReplyStatus ReplyKind = iota + 1
	ReplyError
	ReplyInteger
	ReplyBulk
	ReplyNil
	ReplyArray
	// ReplyMulti is a sequence of top-level replies sent back to back.
	// SUBSCRIBE with several channels uses it.
	ReplyMulti
)

func (k ReplyKind) String() string {
	switch k {
	case ReplyStatus:
		return "status"
	case ReplyError:
		return "error"
	case ReplyInteger:
		return "integer"
	case ReplyBulk:
		return "bulk"
	case ReplyNil:
		return "nil"
	case ReplyArray:
		return "array"
	case ReplyMulti:
		return "multi"
	default:
		return "unknown"
	}
}

// Reply is the result of one command.
type Reply struct {
	Kind  ReplyKind
	Str   string  // Status and Bulk
	Int   int64   // Integer
	Err   error   // Error
	Items []Reply // Array and Multi
}

var (
	okReply   = Reply{Kind: ReplyStatus, Str: "OK"}
	nilReply  = Reply{Kind: ReplyNil}
	pongReply = Reply{Kind: ReplyStatus, Str: "PONG"}
)

// Status returns a status reply.
func Status(s string) Reply { return Reply{Kind: ReplyStatus, Str: s} }

// OK returns the +OK status reply.
func OK() Reply { return okReply }

// Nil returns the nil bulk reply.
func Nil() Reply { return nilReply }

// Integer returns an integer reply.
func Integer(n int64) Reply { return Reply{Kind: ReplyInteger, Int: n} }

// Bool returns 1 or 0.
func Bool(b bool) Reply {
	if b {
		return Integer(1)
	}
	return Integer(0)
}

// Bulk returns a bulk string reply.
func Bulk(s string) Reply { return Reply{Kind: ReplyBulk, Str: s} }

// OptionalBulk returns Bulk(s) when ok, otherwise Nil().
func OptionalBulk(s string, ok bool) Reply {
	if !ok {
		return nilReply
	}
	return Bulk(s)
}

// Error returns an error reply.
func Error(err error) Reply { return Reply{Kind: ReplyError, Err: err} }

// Array returns an array reply of items.
func Array(items ...Reply) Reply {
	if items == nil {
		items = []Reply{}
	}
	return Reply{Kind: ReplyArray, Items: items}
}

// BulkArray returns an array of bulk strings.
func BulkArray(values []string) Reply {
	items := make([]Reply, len(values))
	for i, v := range values {
		items[i] = Bulk(v)
	}
	return Reply{Kind: ReplyArray, Items: items}
}

// Multi returns several replies to be written as separate frames.
func Multi(items ...Reply) Reply { return Reply{Kind: ReplyMulti, Items: items} }

// WireError is an error line as received from a server, such as
// "WRONGTYPE Operation against a key holding the wrong kind of value".
type WireError string

func (e WireError) Error() string { return string(e) }

// IsError reports whether r is an error reply.
func (r Reply) IsError() bool { return r.Kind == ReplyError }

// ErrorLine renders err as the text of a RESP error line, without the
// leading '-'.
func ErrorLine(err error) string {
	var we WireError
	if errors.As(err, &we) {
		return string(we)
	}
	var de *domain.DomainError
	if !errors.As(err, &de) {
		return "ERR " + err.Error()
	}
	switch {
	case de.Code == domain.CodeTypeMismatch:
		return "WRONGTYPE " + de.Message
	case de.Code == domain.CodeAuth && de.Message == domain.ErrNoAuth.Message:
		return "NOAUTH " + de.Message
	default:
		return "ERR " + de.Message
	}
}

// String renders r the way redis-cli prints replies.
func (r Reply) String() string {
	var b strings.Builder
	r.format(&b, "")
	return b.String()
}

func (r Reply) format(b *strings.Builder, indent string) {
	switch r.Kind {
	case ReplyStatus:
		b.WriteString(r.Str)
	case ReplyError:
		b.WriteString("(error) " + ErrorLine(r.Err))
	case ReplyInteger:
		b.WriteString("(integer) " + strconv.FormatInt(r.Int, 10))
	case ReplyBulk:
		b.WriteString(strconv.Quote(r.Str))
	case ReplyNil:
		b.WriteString("(nil)")
	case ReplyArray, ReplyMulti:
		if len(r.Items) == 0 {
			b.WriteString("(empty array)")
			return
		}
		width := len(strconv.Itoa(len(r.Items)))
		for i, item := range r.Items {
			if i > 0 {
				b.WriteString("\n" + indent)
			}
			prefix := strconv.Itoa(i+1) + ") "
			prefix = strings.Repeat(" ", width-len(strconv.Itoa(i+1))) + prefix
			b.WriteString(prefix)
			item.format(b, indent+strings.Repeat(" ", len(prefix)))
		}
	default:
		b.WriteString("(unknown reply)")
	}
}

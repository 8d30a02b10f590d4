package output

import (
	"io"
	"strings"

	"github.com/yndnr/kvmesh-go/internal/command"
)

// ReplyValue converts a reply into a JSON/YAML friendly value: strings for
// status and bulk replies, int64 for integers, nil for nil, []any for
// arrays and {"error": line} for errors.
func ReplyValue(r command.Reply) any {
	switch r.Kind {
	case command.ReplyStatus, command.ReplyBulk:
		return r.Str
	case command.ReplyInteger:
		return r.Int
	case command.ReplyError:
		return map[string]string{"error": command.ErrorLine(r.Err)}
	case command.ReplyArray, command.ReplyMulti:
		items := make([]any, len(r.Items))
		for i, item := range r.Items {
			items[i] = ReplyValue(item)
		}
		return items
	default:
		return nil
	}
}

// WriteReply renders r in format. Table mode uses the redis-cli layout.
func WriteReply(w io.Writer, format Format, r command.Reply) error {
	if format == FormatJSON || format == FormatYAML {
		return New(format).Format(w, r)
	}
	s := r.String()
	if !strings.HasSuffix(s, "\n") {
		s += "\n"
	}
	_, err := io.WriteString(w, s)
	return err
}

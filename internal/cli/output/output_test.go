package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/yndnr/kvmesh-go/internal/command"
	"github.com/yndnr/kvmesh-go/internal/core/domain"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatTable, false},
		{"table", FormatTable, false},
		{"JSON", FormatJSON, false},
		{" yaml ", FormatYAML, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestNew(t *testing.T) {
	if _, ok := New(FormatJSON).(*JSONFormatter); !ok {
		t.Error("New(json) is not a JSONFormatter")
	}
	if _, ok := New(FormatYAML).(*YAMLFormatter); !ok {
		t.Error("New(yaml) is not a YAMLFormatter")
	}
	if _, ok := New("whatever").(*TableFormatter); !ok {
		t.Error("New(unknown) should fall back to table")
	}
}

// ============================================================================
// Replies
// ============================================================================

func sampleReply() command.Reply {
	return command.Array(
		command.Bulk("a"),
		command.Integer(3),
		command.Nil(),
		command.Array(command.Status("OK")),
	)
}

func TestReplyValue(t *testing.T) {
	got, err := json.Marshal(ReplyValue(sampleReply()))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != `["a",3,null,["OK"]]` {
		t.Errorf("ReplyValue = %s", got)
	}

	errVal := ReplyValue(command.Error(domain.ErrWrongType))
	m, ok := errVal.(map[string]string)
	if !ok || !strings.HasPrefix(m["error"], "WRONGTYPE ") {
		t.Errorf("error ReplyValue = %#v", errVal)
	}
}

func TestWriteReply(t *testing.T) {
	tests := []struct {
		format Format
		reply  command.Reply
		want   string
	}{
		{FormatTable, command.Bulk("hi"), "\"hi\"\n"},
		{FormatTable, command.Integer(7), "(integer) 7\n"},
		{FormatTable, command.Error(errors.New("boom")), "(error) ERR boom\n"},
		{FormatJSON, command.Bulk("hi"), "\"hi\"\n"},
		{FormatJSON, command.Nil(), "null\n"},
		{FormatYAML, command.BulkArray([]string{"x", "y"}), "- x\n- y\n"},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		if err := WriteReply(&buf, tt.format, tt.reply); err != nil {
			t.Fatalf("WriteReply: %v", err)
		}
		if buf.String() != tt.want {
			t.Errorf("WriteReply(%s, %s) = %q, want %q", tt.format, tt.reply.String(), buf.String(), tt.want)
		}
	}
}

func TestTableFormatter_Reply(t *testing.T) {
	var buf bytes.Buffer
	if err := (&TableFormatter{}).Format(&buf, command.BulkArray([]string{"a", "b"})); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "1) \"a\"\n2) \"b\"\n" {
		t.Errorf("table reply = %q", buf.String())
	}
}

// ============================================================================
// Structs and tables
// ============================================================================

type inner struct {
	Version string `yaml:"version"`
}

type summary struct {
	Build   inner     `yaml:"build"`
	Keys    int       `yaml:"keys" json:"keys"`
	Dirty   bool      `json:"dirty"`
	Backend string    `yaml:"backend"`
	Saved   time.Time `yaml:"saved"`
	Hidden  string    `yaml:"-"`
	secret  string
}

func TestTableFormatter_Struct(t *testing.T) {
	s := summary{Build: inner{Version: "1.2.3"}, Keys: 5, Dirty: true, Hidden: "h", secret: "x"}

	var buf bytes.Buffer
	if err := (&TableFormatter{}).Format(&buf, &s); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	want := [][]string{
		{"FIELD", "VALUE"},
		{"build.version", "1.2.3"},
		{"keys", "5"},
		{"dirty", "true"},
		{"backend", "-"},
		{"saved", "-"},
	}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines:\n%s", len(lines), buf.String())
	}
	for i, w := range want {
		if got := strings.Fields(lines[i]); len(got) != 2 || got[0] != w[0] || got[1] != w[1] {
			t.Errorf("line %d = %q, want %v", i, lines[i], w)
		}
	}
}

func TestTableFormatter_Slice(t *testing.T) {
	rows := []*summary{{Keys: 1, Backend: "file"}, {Keys: 2, Backend: "badger"}}

	var buf bytes.Buffer
	if err := (&TableFormatter{NoHeaders: true}).Format(&buf, rows); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if strings.Contains(out, "KEYS") {
		t.Error("NoHeaders still printed headers")
	}
	if !strings.Contains(out, "badger") || strings.Count(out, "\n") != 2 {
		t.Errorf("slice table = %q", out)
	}
}

func TestTableFormatter_MapSorted(t *testing.T) {
	var buf bytes.Buffer
	if err := (&TableFormatter{}).Format(&buf, map[string]int{"b": 2, "a": 1}); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 || !strings.HasPrefix(lines[1], "a") || !strings.HasPrefix(lines[2], "b") {
		t.Errorf("map table = %q", buf.String())
	}
}

func TestTableFormatter_PrebuiltTable(t *testing.T) {
	tbl := &Table{Headers: []string{"NAME", "VALUE"}}
	tbl.AddRow("k1", "v1")

	var buf bytes.Buffer
	if err := (&TableFormatter{}).Format(&buf, tbl); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "NAME") || !strings.Contains(buf.String(), "k1") {
		t.Errorf("table = %q", buf.String())
	}
}

func TestTableFormatter_ScalarFallsBackToYAML(t *testing.T) {
	var buf bytes.Buffer
	if err := (&TableFormatter{}).Format(&buf, 42); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "42\n" {
		t.Errorf("scalar = %q", buf.String())
	}
}

func TestYAMLFormatter_Struct(t *testing.T) {
	var buf bytes.Buffer
	if err := (&YAMLFormatter{}).Format(&buf, summary{Keys: 9, Backend: "none"}); err != nil {
		t.Fatal(err)
	}
	var back map[string]any
	if err := yaml.Unmarshal(buf.Bytes(), &back); err != nil {
		t.Fatalf("output is not yaml: %v\n%s", err, buf.String())
	}
	if back["keys"] != 9 || back["backend"] != "none" {
		t.Errorf("yaml = %v", back)
	}
}

package output

import (
	"fmt"
	"io"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/yndnr/kvmesh-go/internal/command"
)

// TableFormatter renders data as aligned columns.
//
// A struct becomes a FIELD/VALUE table with nested structs flattened to
// dotted names, a slice of structs becomes one row per element, and a map
// becomes a sorted KEY/VALUE table. Anything else falls back to YAML.
type TableFormatter struct {
	NoHeaders bool
}

// Format implements Formatter.
func (f *TableFormatter) Format(w io.Writer, data any) error {
	switch v := data.(type) {
	case nil:
		return nil
	case *Table:
		return v.render(w, f.NoHeaders)
	case Table:
		return v.render(w, f.NoHeaders)
	case command.Reply:
		return WriteReply(w, FormatTable, v)
	}

	t, ok := toTable(reflect.ValueOf(data))
	if !ok {
		return (&YAMLFormatter{}).Format(w, data)
	}
	return t.render(w, f.NoHeaders)
}

// Table is pre-built tabular output.
type Table struct {
	Headers []string
	Rows    [][]string
}

// AddRow appends a row.
func (t *Table) AddRow(cells ...string) { t.Rows = append(t.Rows, cells) }

func (t *Table) render(w io.Writer, noHeaders bool) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if !noHeaders && len(t.Headers) > 0 {
		fmt.Fprintln(tw, strings.Join(t.Headers, "\t"))
	}
	for _, row := range t.Rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

var timeType = reflect.TypeOf(time.Time{})

func toTable(v reflect.Value) (*Table, bool) {
	v = indirect(v)
	if !v.IsValid() {
		return nil, false
	}
	switch v.Kind() {
	case reflect.Struct:
		if v.Type() == timeType {
			return nil, false
		}
		t := &Table{Headers: []string{"FIELD", "VALUE"}}
		flatten(t, "", v)
		return t, true
	case reflect.Map:
		t := &Table{Headers: []string{"KEY", "VALUE"}}
		keys := v.MapKeys()
		sort.Slice(keys, func(i, j int) bool { return cell(keys[i]) < cell(keys[j]) })
		for _, k := range keys {
			t.AddRow(cell(k), cell(v.MapIndex(k)))
		}
		return t, true
	case reflect.Slice, reflect.Array:
		return sliceTable(v)
	default:
		return nil, false
	}
}

func sliceTable(v reflect.Value) (*Table, bool) {
	if v.Len() == 0 {
		return &Table{}, true
	}
	elemType := v.Type().Elem()
	for elemType.Kind() == reflect.Pointer {
		elemType = elemType.Elem()
	}
	if elemType.Kind() != reflect.Struct || elemType == timeType {
		t := &Table{Headers: []string{"VALUE"}}
		for i := 0; i < v.Len(); i++ {
			t.AddRow(cell(v.Index(i)))
		}
		return t, true
	}

	var fields []int
	t := &Table{}
	for i := 0; i < elemType.NumField(); i++ {
		name, ok := fieldName(elemType.Field(i))
		if !ok {
			continue
		}
		fields = append(fields, i)
		t.Headers = append(t.Headers, strings.ToUpper(name))
	}
	for i := 0; i < v.Len(); i++ {
		elem := indirect(v.Index(i))
		row := make([]string, len(fields))
		for j, idx := range fields {
			if elem.IsValid() {
				row[j] = cell(elem.Field(idx))
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, true
}

func flatten(t *Table, prefix string, v reflect.Value) {
	typ := v.Type()
	for i := 0; i < typ.NumField(); i++ {
		name, ok := fieldName(typ.Field(i))
		if !ok {
			continue
		}
		if prefix != "" {
			name = prefix + "." + name
		}
		fv := indirect(v.Field(i))
		if fv.IsValid() && fv.Kind() == reflect.Struct && fv.Type() != timeType {
			flatten(t, name, fv)
			continue
		}
		t.AddRow(name, cell(fv))
	}
}

// fieldName prefers the yaml tag, then the json tag.
func fieldName(f reflect.StructField) (string, bool) {
	if !f.IsExported() {
		return "", false
	}
	for _, key := range []string{"yaml", "json"} {
		tag, ok := f.Tag.Lookup(key)
		if !ok {
			continue
		}
		name, _, _ := strings.Cut(tag, ",")
		if name == "-" {
			return "", false
		}
		if name != "" {
			return name, true
		}
	}
	return f.Name, true
}

func indirect(v reflect.Value) reflect.Value {
	for v.IsValid() && (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

func cell(v reflect.Value) string {
	v = indirect(v)
	if !v.IsValid() {
		return "-"
	}
	if v.Type() == timeType {
		ts := v.Interface().(time.Time)
		if ts.IsZero() {
			return "-"
		}
		return ts.Format(time.RFC3339)
	}
	if v.Type() == reflect.TypeOf(time.Duration(0)) {
		return v.Interface().(time.Duration).String()
	}
	switch v.Kind() {
	case reflect.String:
		if v.Len() == 0 {
			return "-"
		}
		return v.String()
	case reflect.Bool:
		return strconv.FormatBool(v.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(v.Uint(), 10)
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(v.Float(), 'f', -1, 64)
	case reflect.Slice, reflect.Array:
		if v.Len() == 0 {
			return "-"
		}
		parts := make([]string, v.Len())
		for i := range parts {
			parts[i] = cell(v.Index(i))
		}
		return strings.Join(parts, ",")
	case reflect.Map:
		return fmt.Sprintf("{%d keys}", v.Len())
	default:
		return fmt.Sprint(v.Interface())
	}
}

package inspect

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jonnelaakso/emberplus-go/pkg/consumer"
	"github.com/jonnelaakso/emberplus-go/pkg/value"
)

// Formatter formats operation results for terminals.
type Formatter struct {
	// ShowMetadata includes kind, access and description.
	ShowMetadata bool

	// ShowPaths includes the numeric path alongside the identifier.
	ShowPaths bool

	// IndentWidth is the number of spaces per indent level.
	IndentWidth int

	// TimeFormat is used for record timestamps.
	TimeFormat string
}

// NewFormatter creates a new Formatter with default settings.
func NewFormatter() *Formatter {
	return &Formatter{
		ShowMetadata: true,
		ShowPaths:    true,
		IndentWidth:  2,
		TimeFormat:   "15:04:05.000",
	}
}

// Indent returns the content with indentation.
func (f *Formatter) Indent(depth int, content string) string {
	width := f.IndentWidth
	if width == 0 {
		width = 2
	}
	return strings.Repeat(" ", depth*width) + content
}

// FormatValue formats a value for display. Strings are quoted so that
// "6" and 6 can be told apart.
func (f *Formatter) FormatValue(v value.Value) string {
	switch v.Kind() {
	case value.KindString:
		s, _ := v.AsString()
		return strconv.Quote(s)
	default:
		return v.String()
	}
}

// FormatNode renders one node on a single line:
//
//	Gain [0.1.2] = -12.5 (parameter, readWrite) Input gain in dB
func (f *Formatter) FormatNode(d consumer.NodeDescriptor) string {
	var sb strings.Builder

	name := d.Identifier
	if name == "" {
		name = strconv.FormatUint(uint64(d.Number), 10)
	}
	sb.WriteString(name)
	if d.ChildCount > 0 {
		sb.WriteString("/")
	}
	if f.ShowPaths {
		fmt.Fprintf(&sb, " [%s]", d.Path)
	}
	if d.Value != nil {
		sb.WriteString(" = ")
		sb.WriteString(f.FormatValue(*d.Value))
	}
	if f.ShowMetadata {
		meta := []string{d.Kind}
		if d.Access != "" {
			meta = append(meta, d.Access)
		}
		if d.ChildCount > 0 {
			meta = append(meta, pluralize(d.ChildCount, "child", "children"))
		}
		fmt.Fprintf(&sb, " (%s)", strings.Join(meta, ", "))
		if d.Description != "" {
			sb.WriteString(" ")
			sb.WriteString(d.Description)
		}
	}
	return sb.String()
}

// FormatBrowse lists the children of a browsed node.
func (f *Formatter) FormatBrowse(r *consumer.BrowseResult) string {
	var sb strings.Builder
	sb.WriteString(displayPath(r.Path))
	sb.WriteString(":\n")
	if len(r.Nodes) == 0 {
		sb.WriteString(f.Indent(1, "(no children)\n"))
		return sb.String()
	}
	for _, n := range r.Nodes {
		sb.WriteString(f.Indent(1, f.FormatNode(n)))
		sb.WriteString("\n")
	}
	return sb.String()
}

// FormatGet renders a get result. Nodes without a value are described
// instead.
func (f *Formatter) FormatGet(r *consumer.GetResult) string {
	if r.Node != nil && r.Node.Value == nil {
		return f.FormatNode(*r.Node)
	}
	return fmt.Sprintf("%s = %s", r.Path, f.FormatValue(r.Value))
}

// FormatSet renders a set acknowledgement.
func (f *Formatter) FormatSet(r *consumer.SetResult) string {
	status := "ok"
	if !r.Success {
		status = "failed"
	}
	return fmt.Sprintf("%s <- %s (%s)", r.Path, f.FormatValue(r.Value), status)
}

// FormatRecord renders one watch record:
//
//	12:00:01.250 0.1.3 Meter = -20 (was -60)
func (f *Formatter) FormatRecord(rec consumer.Record) string {
	var sb strings.Builder
	layout := f.TimeFormat
	if layout == "" {
		layout = "15:04:05.000"
	}
	sb.WriteString(rec.Timestamp.Format(layout))
	sb.WriteString(" ")
	sb.WriteString(rec.Path)
	if rec.Identifier != "" {
		sb.WriteString(" ")
		sb.WriteString(rec.Identifier)
	}
	sb.WriteString(" = ")
	sb.WriteString(f.FormatValue(rec.Value))
	if rec.PreviousValue != nil {
		fmt.Fprintf(&sb, " (was %s)", f.FormatValue(*rec.PreviousValue))
	}
	return sb.String()
}

// FormatTree renders an inspected subtree, one node per line.
func (f *Formatter) FormatTree(nodes []*TreeNode) string {
	if len(nodes) == 0 {
		return "(empty)\n"
	}
	var sb strings.Builder
	f.writeTree(&sb, nodes, 0)
	return sb.String()
}

func (f *Formatter) writeTree(sb *strings.Builder, nodes []*TreeNode, depth int) {
	for _, n := range nodes {
		sb.WriteString(f.Indent(depth, f.FormatNode(n.NodeDescriptor)))
		sb.WriteString("\n")
		f.writeTree(sb, n.Children, depth+1)
	}
}

func displayPath(p string) string {
	if p == "" {
		return "(root)"
	}
	return p
}

func pluralize(n int, one, many string) string {
	if n == 1 {
		return "1 " + one
	}
	return strconv.Itoa(n) + " " + many
}

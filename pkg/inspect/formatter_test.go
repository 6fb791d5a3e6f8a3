package inspect

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jonnelaakso/emberplus-go/pkg/consumer"
	"github.com/jonnelaakso/emberplus-go/pkg/value"
)

func ptr(v value.Value) *value.Value { return &v }

func TestFormatValue(t *testing.T) {
	f := NewFormatter()

	tests := []struct {
		name     string
		value    value.Value
		expected string
	}{
		{"string", value.String("Mic 1"), `"Mic 1"`},
		{"numeric string", value.String("6"), `"6"`},
		{"integer number", value.Number(6), "6"},
		{"fractional number", value.Number(-12.5), "-12.5"},
		{"bool", value.Bool(true), "true"},
		{"null", value.Null, "null"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, f.FormatValue(tt.value))
		})
	}
}

func TestFormatNode(t *testing.T) {
	gain := consumer.NodeDescriptor{
		Path:        "0.1.2",
		Number:      2,
		Identifier:  "Gain",
		Description: "Input gain in dB",
		Kind:        "parameter",
		Access:      "readWrite",
		Value:       ptr(value.Number(-12.5)),
	}
	audio := consumer.NodeDescriptor{Path: "0.1", Number: 1, Identifier: "Audio", Kind: "container", ChildCount: 4}
	anon := consumer.NodeDescriptor{Path: "0.7", Number: 7, Kind: "function"}

	f := NewFormatter()
	assert.Equal(t, "Gain [0.1.2] = -12.5 (parameter, readWrite) Input gain in dB", f.FormatNode(gain))
	assert.Equal(t, "Audio/ [0.1] (container, 4 children)", f.FormatNode(audio))
	assert.Equal(t, "7 [0.7] (function)", f.FormatNode(anon))

	f.ShowMetadata = false
	f.ShowPaths = false
	assert.Equal(t, "Gain = -12.5", f.FormatNode(gain))
	assert.Equal(t, "Audio/", f.FormatNode(audio))
}

func TestFormatBrowse(t *testing.T) {
	f := &Formatter{}

	out := f.FormatBrowse(&consumer.BrowseResult{Nodes: []consumer.NodeDescriptor{
		{Path: "0", Identifier: "Device", Kind: "container", ChildCount: 1},
	}})
	assert.Equal(t, "(root):\n  Device/\n", out)

	out = f.FormatBrowse(&consumer.BrowseResult{Path: "0.3"})
	assert.Equal(t, "0.3:\n  (no children)\n", out)
}

func TestFormatGetAndSet(t *testing.T) {
	f := NewFormatter()

	assert.Equal(t, `0.1.1 = "Mic 1"`, f.FormatGet(&consumer.GetResult{Path: "0.1.1", Value: value.String("Mic 1")}))

	node := consumer.NodeDescriptor{Path: "0.1", Identifier: "Audio", Kind: "container", ChildCount: 1}
	assert.Equal(t, "Audio/ [0.1] (container, 1 child)", f.FormatGet(&consumer.GetResult{Path: "0.1", Node: &node}))

	assert.Equal(t, "0.1.2 <- 6 (ok)", f.FormatSet(&consumer.SetResult{Path: "0.1.2", Value: value.Number(6), Success: true}))
	assert.Equal(t, "0.1.2 <- 6 (failed)", f.FormatSet(&consumer.SetResult{Path: "0.1.2", Value: value.Number(6)}))
}

func TestFormatRecord(t *testing.T) {
	f := NewFormatter()
	ts := time.Date(2026, 1, 2, 12, 0, 1, 250_000_000, time.UTC)

	rec := consumer.Record{Path: "0.1.3", Value: value.Number(-20), Timestamp: ts}
	assert.Equal(t, "12:00:01.250 0.1.3 = -20", f.FormatRecord(rec))

	rec.Identifier = "Meter"
	rec.PreviousValue = ptr(value.Number(-60))
	assert.Equal(t, "12:00:01.250 0.1.3 Meter = -20 (was -60)", f.FormatRecord(rec))
}

func TestFormatTree(t *testing.T) {
	f := &Formatter{IndentWidth: 2}
	nodes := []*TreeNode{{
		NodeDescriptor: consumer.NodeDescriptor{Path: "0", Identifier: "Device", ChildCount: 1},
		Children: []*TreeNode{{
			NodeDescriptor: consumer.NodeDescriptor{Path: "0.0", Identifier: "Gain", Value: ptr(value.Number(1))},
		}},
	}}

	out := f.FormatTree(nodes)
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	assert.Equal(t, []string{"Device/", "  Gain = 1"}, lines)
	assert.Equal(t, "(empty)\n", f.FormatTree(nil))
}

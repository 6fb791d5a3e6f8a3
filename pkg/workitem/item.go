// Package workitem runs host work items against one provider connection
// and renders their outcomes as structured records.
package workitem

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jonnelaakso/emberplus-go/pkg/treepath"
	"github.com/jonnelaakso/emberplus-go/pkg/value"
)

// Operation names a work item action.
type Operation string

const (
	OpBrowse    Operation = "browse"
	OpGet       Operation = "get"
	OpSet       Operation = "set"
	OpSubscribe Operation = "subscribe"
)

// ErrInvalidItem is returned by Item.Validate.
var ErrInvalidItem = errors.New("invalid work item")

// Item is one unit of work.
type Item struct {
	// Operation is the action to perform.
	Operation Operation `yaml:"operation" json:"operation"`

	// Path addresses the node. Empty means root and is only valid for browse.
	Path string `yaml:"path,omitempty" json:"path,omitempty"`

	// Value is the raw value for set, converted using ValueType.
	Value string `yaml:"value,omitempty" json:"value,omitempty"`

	// ValueType is the declared kind of Value (string, number, boolean).
	ValueType string `yaml:"valueType,omitempty" json:"valueType,omitempty"`

	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// Validate checks the item without touching the network.
func (it *Item) Validate() error {
	switch it.Operation {
	case OpBrowse:
		if err := treepath.Validate(it.Path); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidItem, err)
		}
	case OpGet, OpSubscribe, OpSet:
		if err := treepath.ValidateAddressable(it.Path); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidItem, err)
		}
	case "":
		return fmt.Errorf("%w: operation is required", ErrInvalidItem)
	default:
		return fmt.Errorf("%w: unknown operation %q", ErrInvalidItem, it.Operation)
	}

	if it.Operation == OpSet {
		kind, err := value.ParseKind(it.ValueType)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidItem, err)
		}
		if _, err := value.Parse(it.Value, kind); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidItem, err)
		}
	}
	return nil
}

// String returns a short label such as "set 0.1.2".
func (it *Item) String() string {
	if it.Path == "" {
		return string(it.Operation) + " <root>"
	}
	return string(it.Operation) + " " + it.Path
}

// Batch is a YAML document of work items.
type Batch struct {
	Name              string `yaml:"name"`
	ContinueOnFailure bool   `yaml:"continueOnFailure"`
	Items             []Item `yaml:"items"`
}

// ParseBatch parses a batch from YAML bytes.
func ParseBatch(data []byte) (*Batch, error) {
	var b Batch
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("parse batch: %w", err)
	}
	for i := range b.Items {
		b.Items[i].Operation = Operation(strings.ToLower(string(b.Items[i].Operation)))
	}
	if len(b.Items) == 0 {
		return nil, fmt.Errorf("%w: batch has no items", ErrInvalidItem)
	}
	return &b, nil
}

// LoadBatch reads a batch file.
func LoadBatch(path string) (*Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read batch %s: %w", path, err)
	}
	b, err := ParseBatch(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return b, nil
}

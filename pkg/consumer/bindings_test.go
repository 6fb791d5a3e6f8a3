package consumer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBindingsShareNode(t *testing.T) {
	b := newBindings()
	b.bind("Device.Audio.Meter", "0.1.3")
	b.bind("0.1.3", "0.1.3")
	assert.Equal(t, []string{"0.1.3", "Device.Audio.Meter"}, b.keys("0.1.3"))

	node, last := b.unbind("Device.Audio.Meter")
	assert.Equal(t, "0.1.3", node)
	assert.False(t, last)

	node, last = b.unbind("0.1.3")
	assert.Equal(t, "0.1.3", node)
	assert.True(t, last)
	assert.Empty(t, b.keys("0.1.3"))

	node, last = b.unbind("0.1.3")
	assert.Equal(t, "", node)
	assert.True(t, last)
}

func TestBindingsRebindMovesKey(t *testing.T) {
	b := newBindings()
	b.bind("Gain", "0.1.2")
	b.bind("Gain", "0.2.2")
	assert.Empty(t, b.keys("0.1.2"))
	assert.Equal(t, []string{"Gain"}, b.keys("0.2.2"))

	b.clear()
	assert.Empty(t, b.keys("0.2.2"))
}

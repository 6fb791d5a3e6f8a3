package interactive

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolvePath(t *testing.T) {
	tests := []struct {
		cwd, arg, want string
	}{
		{"", "", ""},
		{"0.1", ".", "0.1"},
		{"0.1", "/", ""},
		{"0.1", "/Device.Audio", "Device.Audio"},
		{"0.1", "2", "0.1.2"},
		{"0.1", "Gain", "0.1.Gain"},
		{"0.1", "..", "0"},
		{"0", "..", ""},
		{"", "..", ""},
		{"0.1.2", "../Mute", "0.1.Mute"},
		{"0.1.2", "../../0", "0.0"},
		{"Device", " Audio ", "Device.Audio"},
	}
	for _, tt := range tests {
		t.Run(tt.cwd+"+"+tt.arg, func(t *testing.T) {
			assert.Equal(t, tt.want, resolvePath(tt.cwd, tt.arg))
		})
	}
}

func TestPrompt(t *testing.T) {
	assert.Equal(t, "127.0.0.1:9000:/> ", prompt("127.0.0.1:9000", ""))
	assert.Equal(t, "mixer:0.1> ", prompt("mixer", "0.1"))
}

package provider

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/jonnelaakso/emberplus-go/pkg/log"
	"github.com/jonnelaakso/emberplus-go/pkg/value"
	"github.com/jonnelaakso/emberplus-go/pkg/wire"
)

// Paths of the demo tree used by the simulator and tests.
const (
	DemoGainPath  = "0.1.2"
	DemoMeterPath = "0.1.3"
)

// DemoTree builds a small audio device:
//
//	0       Device
//	0.0     Device.Identity        (product, version)
//	0.1     Device.Audio           (mute, label, gain, meter)
//	0.2     Device.Routing         matrix
//	0.3     Device.Reset           function
func DemoTree() *Tree {
	identity := NewContainer(0, "Identity").Add(
		NewParameter(0, "Product", value.String("Demo Mixer"), wire.AccessRead),
		NewParameter(1, "Version", value.String("1.0.0"), wire.AccessRead),
	)

	audio := NewContainer(1, "Audio").Describe("Input channel 1").Add(
		NewParameter(0, "Mute", value.Bool(false), wire.AccessReadWrite).Describe("Channel mute"),
		NewParameter(1, "Label", value.String("Mic 1"), wire.AccessReadWrite),
		NewParameter(2, "Gain", value.Number(-12.5), wire.AccessReadWrite).Describe("Input gain in dB"),
		NewParameter(3, "Meter", value.Number(-60), wire.AccessRead).Describe("Peak level in dBFS"),
	)

	device := NewContainer(0, "Device").Describe("Demo device").Add(
		identity,
		audio,
		NewMatrix(2, "Routing"),
		NewFunction(3, "Reset"),
	)

	return NewTree(device)
}

// Simulate drives the value at path with a slow sine between lo and hi
// until ctx ends.
func Simulate(ctx context.Context, tree *Tree, path string, interval time.Duration, lo, hi float64, logger *slog.Logger) {
	logger = log.OrDiscard(logger)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	start := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			phase := now.Sub(start).Seconds() / 4
			v := lo + (hi-lo)*(math.Sin(phase)+1)/2
			v = math.Round(v*10) / 10
			if err := tree.Update(path, value.Number(v)); err != nil {
				logger.Warn("Simulation stopped", slog.String("path", path), slog.Any("error", err))
				return
			}
		}
	}
}

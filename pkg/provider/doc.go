// Package provider serves an in-memory node tree over the tree protocol.
//
// A Tree is built once from Elements:
//
//	tree := provider.NewTree(
//		provider.NewContainer(0, "Device").Add(
//			provider.NewParameter(0, "Gain", value.Number(0), wire.AccessReadWrite),
//		),
//	)
//
// Nodes are addressed by numeric path ("0.0"), identifier path
// ("Device.Gain") or a mix of both ("0.Gain"). A Server answers resolve,
// directory, set and subscribe requests and pushes a notification to each
// subscribed connection whenever a parameter value changes.
package provider

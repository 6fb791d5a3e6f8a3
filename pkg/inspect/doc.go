// Package inspect renders nodes, values and watch records for humans and
// walks whole subtrees of a provider.
package inspect

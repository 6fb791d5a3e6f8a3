// Package discovery finds and announces tree providers with mDNS/DNS-SD.
//
// Providers register under _ember._tcp in the local. domain. The instance
// name is free text chosen by the operator ("Studio A Mixer"). TXT records
// carry:
//
//	txtvers  TXT format version, currently "1"
//	product  product name
//	version  provider software version
//	root     identifier of the top-level node
//
// A provider reachable on several interfaces answers once per interface;
// Browser merges those answers into one Provider with all addresses.
package discovery

// Package discovery advertises and browses OPC gateway sessions on the
// local network via mDNS.
//
// A gateway session announces itself under the _opcda-gw._tcp service
// type with TXT records carrying the OPC server name, the session GUID,
// and the client version. Browsers aggregate announcements from all
// interfaces into one Gateway entry per instance name.
package discovery

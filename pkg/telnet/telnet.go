// Package telnet strips Telnet control sequences out of a raw client byte
// stream and splits it into lines. Option negotiation is deliberately inert:
// WILL/WONT/DO/DONT and subnegotiations are consumed and never answered.
package telnet

// Telnet protocol bytes.
const (
	IAC  byte = 255 // Interpret As Command
	DONT byte = 254
	DO   byte = 253
	WONT byte = 252
	WILL byte = 251
	SB   byte = 250 // Subnegotiation Begin
	AYT  byte = 246 // Are You There
	SE   byte = 240 // Subnegotiation End
)

// Probe is the liveness probe sent to idle clients. The payload is irrelevant;
// writing it only serves to surface a dead peer as a write error.
var Probe = []byte{IAC, AYT}

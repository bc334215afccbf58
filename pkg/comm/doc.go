// Package comm implements the serial protocol engine for the ATS-BT
// accessory.
package comm

// The accessory speaks a line-oriented ASCII protocol over a USB CDC
// serial port. Commands are uppercase tokens terminated by CR; the
// firmware answers with zero or more data lines followed by exactly one
// terminal line starting with a success or error token.
//
// The engine is layered leaf-first: Transport owns the port and moves
// raw lines with timeouts, Tokens classifies lines into events, and
// Channel serializes one in-flight command at a time on top of both.
// Nothing else in this module touches the port directly.

// Package protocol defines the in-band control tokens sent over the serial
// link to switch the remote transceiver between transmit and receive mode
// and to enable audio streaming at startup.
package protocol

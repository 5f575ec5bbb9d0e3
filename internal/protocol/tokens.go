package protocol

import (
	"fmt"
	"io"
)

// In-band CAT control tokens exchanged with the transceiver. The remote end
// interprets them as mode switches; their exact byte values are a protocol
// constant of the device firmware.
var (
	// TokenTransmit tells the remote end to start transmitting.
	TokenTransmit = []byte("UA1;TX0;")

	// TokenReceive tells the remote end to stop transmitting and go receive.
	TokenReceive = []byte(";RX;")

	// TokenEnableStreaming enables audio-over-CAT streaming. Sent once at
	// startup after the device settle delay.
	TokenEnableStreaming = []byte("UA1;")
)

// WriteToken writes one control token to the serial device, verifying the
// token went out in full. A truncated token would desynchronize the remote
// end's mode state.
func WriteToken(w io.Writer, token []byte) error {
	n, err := w.Write(token)
	if err != nil {
		return fmt.Errorf("failed to write control token %q: %w", token, err)
	}
	if n != len(token) {
		return fmt.Errorf("short write of control token %q: %d of %d bytes", token, n, len(token))
	}
	return nil
}

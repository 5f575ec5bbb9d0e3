// Package serial wraps the transceiver's serial device. It maps read
// timeouts to a retryable would-block condition and serializes writes so
// the receive and transmit paths can safely share one physical device.
package serial

// Package atcmd recognizes the AT command lines a companion microcontroller
// sends over the serial link and answers them.
//
// The companion believes it talks to a stock WiFi modem. It only needs a
// handful of commands answered with "OK", and it blocks after AT+RST until
// it sees the link messages:
//
//	> AT+RST
//	< WIFI CONNECTED
//	< WIFI GOT IP
//	< OK
//
// Classify is the pure mapping from a line to an Intent. Recognizer adds the
// replies and logging. LineTransport frames any io.ReadWriter, and
// OpenSerial opens a real UART with go.bug.st/serial.
package atcmd

//go:build tinygo

package board

import (
	"net/netip"
	"time"

	"tinygo.org/x/drivers/netdev"
)

// Netdever is the subset of a tinygo.org/x/drivers network device
// (ch9120.Device, comboat's device, ...) a NetConn needs: socket
// creation, a blocking stream connect, and byte-oriented send/recv.
type Netdever interface {
	Socket(domain, stype, protocol int) (int, error)
	Connect(sockfd int, host string, ip netip.AddrPort) error
	Send(sockfd int, buf []byte, flags int, deadline time.Time) (int, error)
	Recv(sockfd int, buf []byte, flags int, deadline time.Time) (int, error)
	Close(sockfd int) error
}

// NetConn adapts a Netdever's fd-oriented socket calls into the plain
// io.ReadWriter the MQTT client in internal/telemetry wants, the way
// the standard library's net.Conn wraps a descriptor. It turns the
// board's UART-attached network modem (ch9120 or comboat) into a
// transport without either of those drivers needing to know about
// MQTT.
type NetConn struct {
	dev    Netdever
	sockfd int
}

// DialTCP opens a TCP stream socket to addr over dev and wraps it.
func DialTCP(dev Netdever, addr netip.AddrPort) (*NetConn, error) {
	sockfd, err := dev.Socket(netdev.AF_INET, netdev.SOCK_STREAM, netdev.IPPROTO_TCP)
	if err != nil {
		return nil, err
	}
	if err := dev.Connect(sockfd, "", addr); err != nil {
		return nil, err
	}
	return &NetConn{dev: dev, sockfd: sockfd}, nil
}

func (c *NetConn) Read(p []byte) (int, error) {
	return c.dev.Recv(c.sockfd, p, 0, time.Time{})
}

func (c *NetConn) Write(p []byte) (int, error) {
	return c.dev.Send(c.sockfd, p, 0, time.Time{})
}

func (c *NetConn) Close() error {
	return c.dev.Close(c.sockfd)
}

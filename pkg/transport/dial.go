package transport

import (
	"context"
	"net"
)

// Dialer opens outbound connections to resolved destinations. Narrowed to
// an interface so the transport driver's dial step is test-doubled easily.
type Dialer interface {
	Dial(ctx context.Context, network, address string) (Conn, error)
}

// netDialer is the production Dialer, backed by net.Dialer.
type netDialer struct {
	d net.Dialer
}

// NewDialer returns the default TCP dialer.
func NewDialer() Dialer {
	return &netDialer{}
}

func (d *netDialer) Dial(ctx context.Context, network, address string) (Conn, error) {
	nc, err := d.d.DialContext(ctx, network, address)
	if err != nil {
		return nil, err
	}
	return NewTCPConn(nc), nil
}

package remote

import (
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/skip2/go-qrcode"
)

// reachableURLs lists the URLs other devices on the network can use.
func reachableURLs(addr string) ([]string, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("invalid listen address %q: %w", addr, err)
	}
	if host != "" && host != "0.0.0.0" && host != "::" {
		return []string{"http://" + net.JoinHostPort(host, port)}, nil
	}

	var urls []string
	addrs, err := net.InterfaceAddrs()
	if err == nil {
		for _, a := range addrs {
			if ipnet, ok := a.(*net.IPNet); ok && !ipnet.IP.IsLoopback() && ipnet.IP.To4() != nil {
				urls = append(urls, "http://"+net.JoinHostPort(ipnet.IP.String(), port))
			}
		}
	}
	if len(urls) == 0 {
		urls = append(urls, "http://"+net.JoinHostPort("localhost", port))
	}
	return urls, nil
}

// writeQR draws text as a QR code using half-block characters, two modules per line.
func writeQR(w io.Writer, text string) error {
	qr, err := qrcode.New(text, qrcode.Medium)
	if err != nil {
		return fmt.Errorf("generating qr code: %w", err)
	}
	bitmap := qr.Bitmap()

	var b strings.Builder
	for y := 0; y < len(bitmap); y += 2 {
		for x := range bitmap[y] {
			top := bitmap[y][x]
			bottom := y+1 < len(bitmap) && bitmap[y+1][x]
			switch {
			case top && bottom:
				b.WriteRune(' ')
			case top:
				b.WriteRune('▄')
			case bottom:
				b.WriteRune('▀')
			default:
				b.WriteRune('█')
			}
		}
		b.WriteRune('\n')
	}
	_, err = io.WriteString(w, b.String())
	return err
}

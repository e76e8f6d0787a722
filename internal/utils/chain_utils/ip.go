package chainutils

import (
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

const externalIPService = "https://api.ipify.org"

// GetExternalIP queries a public IP service and returns the external IPv4 address.
func GetExternalIP(ctx context.Context) (net.IP, error) {
	return getExternalIP(ctx, resty.New().SetTimeout(5*time.Second), externalIPService)
}

func getExternalIP(ctx context.Context, client *resty.Client, url string) (net.IP, error) {
	resp, err := client.R().SetContext(ctx).Get(url)
	if err != nil {
		log.Error().Err(err).Msg("failed to query external IP")
		return nil, fmt.Errorf("query external ip: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("query external ip: status %d", resp.StatusCode())
	}

	ipStr := strings.TrimSpace(resp.String())
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return nil, fmt.Errorf("invalid ip returned: %s", ipStr)
	}
	ip = ip.To4()
	if ip == nil {
		return nil, fmt.Errorf("non-ipv4 address returned: %s", ipStr)
	}

	return ip, nil
}

// IPv4ToInt converts an IPv4 net.IP to its uint32 representation (big-endian)
func IPv4ToInt(ip net.IP) (uint32, error) {
	ip4 := ip.To4()
	if ip4 == nil {
		return 0, fmt.Errorf("not an ipv4 address")
	}
	return binary.BigEndian.Uint32(ip4), nil
}

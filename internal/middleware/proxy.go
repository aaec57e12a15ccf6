package middleware

import (
	"log/slog"
	"net"

	"github.com/labstack/echo/v4"
)

// TrustedProxies sets how c.RealIP() resolves the client address, which is
// the rate limiter's key. X-Forwarded-For is read from the right: trusted
// proxy hops are skipped and the first untrusted address is the client, so
// entries a client prepends itself are never reached. X-Real-IP is ignored.
// Only the CIDRs in trustedCIDRs (TRUSTED_PROXIES) count as proxies; with
// none, the peer address is always the client.
func TrustedProxies(e *echo.Echo, trustedCIDRs []string) {
	e.IPExtractor = buildIPExtractor(trustedCIDRs)
}

func buildIPExtractor(trustedCIDRs []string) echo.IPExtractor {
	// Turn off echo's built-in trust of loopback, link-local and private
	// ranges so only configured proxies are believed.
	opts := []echo.TrustOption{
		echo.TrustLoopback(false),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false),
	}

	for _, cidr := range trustedCIDRs {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			slog.Warn("ignoring invalid trusted proxy CIDR",
				slog.String("cidr", cidr),
				slog.Any("error", err),
			)
			continue
		}
		opts = append(opts, echo.TrustIPRange(network))
	}

	return echo.ExtractIPFromXFFHeader(opts...)
}

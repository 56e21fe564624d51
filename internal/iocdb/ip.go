package iocdb

import (
	"strconv"
	"strings"

	"github.com/coach-gateway/pkg/models"
)

// cidrRange is the numeric form of an ip-type entry written in CIDR
// notation. The stored network is pre-masked so membership is a single
// AND+compare.
type cidrRange struct {
	network uint32
	mask    uint32
	entry   *models.IndicatorEntry
}

func (c cidrRange) contains(ip uint32) bool {
	return ip&c.mask == c.network
}

// parseIPv4 converts a dotted-quad string to a 32-bit integer. It rejects
// anything that is not exactly four in-range decimal octets.
func parseIPv4(s string) (uint32, bool) {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return 0, false
	}

	var ip uint32
	for _, part := range parts {
		if part == "" || len(part) > 3 {
			return 0, false
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 || n > 255 {
			return 0, false
		}
		ip = ip<<8 | uint32(n)
	}
	return ip, true
}

// parseCIDR converts "a.b.c.d/len" into a pre-masked cidrRange. The entry
// back-reference is filled in by the caller.
func parseCIDR(s string) (network, mask uint32, ok bool) {
	addr, prefixStr, found := strings.Cut(s, "/")
	if !found {
		return 0, 0, false
	}

	ip, ok := parseIPv4(addr)
	if !ok {
		return 0, 0, false
	}

	prefix, err := strconv.Atoi(prefixStr)
	if err != nil || prefix < 0 || prefix > 32 {
		return 0, 0, false
	}

	if prefix == 0 {
		mask = 0
	} else {
		mask = ^uint32(0) << (32 - prefix)
	}
	return ip & mask, mask, true
}

package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"

	"github.com/tomakado/containers/set"
)

// Query parameters that vary between syndicated copies of the same article
// without changing its identity.
var trackingParams = set.New(
	"utm_source", "utm_medium", "utm_campaign", "utm_content", "utm_term",
	"at_medium", "at_campaign", "at_custom1", "at_custom2", "at_custom3",
	"fbclid", "gclid", "msclkid", "mc_cid", "mc_eid",
	"ref", "source", "campaign",
)

// Fingerprint derives a stable identity for a feed item from its title and
// the host+path of its link. The query string and publish timestamp are
// deliberately excluded: the same story syndicated through two feeds often
// differs only in tracking parameters and timestamps.
func Fingerprint(title, link string) string {
	normalizedTitle := collapseWhitespace(strings.ToLower(strings.TrimSpace(title)))

	host, path := hostAndPath(link)

	h := sha256.New()
	h.Write([]byte(normalizedTitle))
	h.Write([]byte("|"))
	h.Write([]byte(host))
	h.Write([]byte(path))
	return hex.EncodeToString(h.Sum(nil))
}

// NormalizeLink strips tracking query parameters and the fragment from a URL,
// producing the canonical link stored on the item. Unparsable input is
// returned unchanged.
func NormalizeLink(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	query := parsed.Query()
	for key := range query {
		if trackingParams.Contains(key) {
			query.Del(key)
		}
	}
	parsed.RawQuery = query.Encode()
	parsed.Fragment = ""

	return parsed.String()
}

func hostAndPath(link string) (string, string) {
	parsed, err := url.Parse(link)
	if err != nil {
		return strings.ToLower(link), ""
	}
	return strings.ToLower(parsed.Host), strings.TrimSuffix(parsed.Path, "/")
}

func collapseWhitespace(value string) string {
	return strings.Join(strings.Fields(value), " ")
}

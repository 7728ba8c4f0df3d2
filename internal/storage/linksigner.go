package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// LinkSigner resolves opaque file keys to time-limited download URLs. It
// stands in for the object-store collaborator: the chat core treats file
// attachments as opaque metadata and only ever asks for a link.
type LinkSigner struct {
	BaseURL string
	secret  []byte
	ttl     time.Duration
	now     func() time.Time
}

// NewLinkSigner builds a signer for the given download base URL.
func NewLinkSigner(baseURL, secret string, ttl time.Duration) *LinkSigner {
	return &LinkSigner{
		BaseURL: baseURL,
		secret:  []byte(secret),
		ttl:     ttl,
		now:     time.Now,
	}
}

// SignedURL returns a download URL for fileKey valid until the TTL lapses.
func (l *LinkSigner) SignedURL(fileKey string) (string, error) {
	if fileKey == "" {
		return "", fmt.Errorf("empty file key")
	}
	expires := l.now().Add(l.ttl).Unix()
	sig := l.sign(fileKey, expires)

	q := url.Values{}
	q.Set("expires", strconv.FormatInt(expires, 10))
	q.Set("sig", sig)
	return fmt.Sprintf("%s/%s?%s", l.BaseURL, url.PathEscape(fileKey), q.Encode()), nil
}

// Verify checks a signature produced by SignedURL.
func (l *LinkSigner) Verify(fileKey string, expires int64, sig string) bool {
	if l.now().Unix() > expires {
		return false
	}
	expected := l.sign(fileKey, expires)
	return hmac.Equal([]byte(expected), []byte(sig))
}

func (l *LinkSigner) sign(fileKey string, expires int64) string {
	mac := hmac.New(sha256.New, l.secret)
	fmt.Fprintf(mac, "%s:%d", fileKey, expires)
	return hex.EncodeToString(mac.Sum(nil))
}

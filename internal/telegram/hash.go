package telegram

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"slices"
	"strings"
)

const (
	hashKey = "hash"
	userKey = "user"

	// webAppDataConst is the fixed message used to derive the per-bot signing key.
	webAppDataConst = "WebAppData"
)

// Pair is a single decoded key=value entry of an initData string.
type Pair struct {
	Key   string
	Value string
}

// Pairs keeps decoded initData entries in transmission order.
type Pairs []Pair

// ParsePairs decodes a form-encoded initData string. Keys must be unique.
func ParsePairs(raw string) (Pairs, error) {
	var pairs Pairs
	seen := make(map[string]struct{})

	for _, part := range strings.Split(raw, "&") {
		if part == "" {
			continue
		}
		k, v, _ := strings.Cut(part, "=")

		key, err := url.QueryUnescape(k)
		if err != nil {
			return nil, fmt.Errorf("%w: key: %v", ErrMalformedPayload, err)
		}
		value, err := url.QueryUnescape(v)
		if err != nil {
			return nil, fmt.Errorf("%w: value of %q: %v", ErrMalformedPayload, key, err)
		}

		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("%w: duplicate key %q", ErrMalformedPayload, key)
		}
		seen[key] = struct{}{}
		pairs = append(pairs, Pair{Key: key, Value: value})
	}

	return pairs, nil
}

// Get returns the value stored under key.
func (p Pairs) Get(key string) (string, bool) {
	for _, pair := range p {
		if pair.Key == key {
			return pair.Value, true
		}
	}
	return "", false
}

// Without returns a copy of p with key removed.
func (p Pairs) Without(key string) Pairs {
	out := make(Pairs, 0, len(p))
	for _, pair := range p {
		if pair.Key != key {
			out = append(out, pair)
		}
	}
	return out
}

// CheckString renders the canonical data-check-string: pairs sorted by key,
// one key=value per line, no trailing newline.
func (p Pairs) CheckString() string {
	sorted := slices.Clone(p)
	slices.SortFunc(sorted, func(a, b Pair) int {
		return strings.Compare(a.Key, b.Key)
	})

	var b strings.Builder
	for i, pair := range sorted {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(pair.Key)
		b.WriteByte('=')
		b.WriteString(pair.Value)
	}
	return b.String()
}

// Encode renders p as a form-encoded string in its current order.
func (p Pairs) Encode() string {
	parts := make([]string, 0, len(p))
	for _, pair := range p {
		parts = append(parts, url.QueryEscape(pair.Key)+"="+url.QueryEscape(pair.Value))
	}
	return strings.Join(parts, "&")
}

func deriveKey(botToken string) []byte {
	h := hmac.New(sha256.New, []byte(botToken))
	h.Write([]byte(webAppDataConst))
	return h.Sum(nil)
}

func signCheckString(key []byte, checkString string) string {
	h := hmac.New(sha256.New, key)
	h.Write([]byte(checkString))
	return hex.EncodeToString(h.Sum(nil))
}

// Sign returns the lowercase hex signature of pairs (any hash entry is
// ignored) under botToken.
func Sign(pairs Pairs, botToken string) string {
	return signCheckString(deriveKey(botToken), pairs.Without(hashKey).CheckString())
}

// SignedInitData returns pairs encoded with a trailing hash entry.
func SignedInitData(pairs Pairs, botToken string) string {
	unsigned := pairs.Without(hashKey)
	signed := append(slices.Clone(unsigned), Pair{Key: hashKey, Value: Sign(unsigned, botToken)})
	return signed.Encode()
}

package ecpay

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// ecpayEscape percent-encodes s the way the gateway's reference
// implementations do. Alphanumerics and -_.!~*'() stay literal, every
// other byte of the UTF-8 encoding becomes %XX with uppercase hex.
func ecpayEscape(s string) string {
	const upperhex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case 'A' <= c && c <= 'Z', 'a' <= c && c <= 'z', '0' <= c && c <= '9':
			b.WriteByte(c)
		case c == '-' || c == '_' || c == '.' || c == '!' || c == '~' ||
			c == '*' || c == '\'' || c == '(' || c == ')':
			b.WriteByte(c)
		default:
			b.WriteByte('%')
			b.WriteByte(upperhex[c>>4])
			b.WriteByte(upperhex[c&0x0f])
		}
	}
	return b.String()
}

// dotNetAdjust applies the gateway's post-encoding fixups. Spaces become
// plus signs and the characters the encoder left literal but the gateway's
// server does not are re-escaped with lowercase hex.
func dotNetAdjust(s string) string {
	s = strings.ReplaceAll(s, "%20", "+")
	s = strings.ReplaceAll(s, "!", "%21")
	s = strings.ReplaceAll(s, "'", "%27")
	s = strings.ReplaceAll(s, "(", "%28")
	s = strings.ReplaceAll(s, ")", "%29")
	s = strings.ReplaceAll(s, "*", "%2a")
	return s
}

// GenerateCheckMacValue computes the gateway signature over the given form
// fields. Any CheckMacValue entry in params is ignored. The pipeline is
// fixed by the gateway: sort keys, join k=v pairs, wrap with HashKey and
// HashIV, percent-encode, lowercase, adjust, SHA256, uppercase hex.
func GenerateCheckMacValue(params map[string]string, hashKey, hashIV string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == "CheckMacValue" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("HashKey=")
	b.WriteString(hashKey)
	for _, k := range keys {
		b.WriteByte('&')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(params[k])
	}
	b.WriteString("&HashIV=")
	b.WriteString(hashIV)

	encoded := strings.ToLower(ecpayEscape(b.String()))
	encoded = dotNetAdjust(encoded)

	sum := sha256.Sum256([]byte(encoded))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

// VerifyCheckMacValue recomputes the signature over params and compares it
// with the CheckMacValue field the gateway sent.
func VerifyCheckMacValue(params map[string]string, hashKey, hashIV string) bool {
	sent, ok := params["CheckMacValue"]
	if !ok || sent == "" {
		return false
	}
	return GenerateCheckMacValue(params, hashKey, hashIV) == strings.ToUpper(sent)
}

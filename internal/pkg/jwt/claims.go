package jwt

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
)

// ClaimKind tags the value held by a ClaimValue.
type ClaimKind uint8

const (
	ClaimString ClaimKind = iota + 1
	ClaimNumber
	ClaimBool
)

var errUnsupportedClaim = errors.New("unsupported claim value")

// ClaimValue is a custom claim value: a string, a number or a boolean.
type ClaimValue struct {
	kind ClaimKind
	str  string
	num  float64
	b    bool
}

func StringClaim(v string) ClaimValue  { return ClaimValue{kind: ClaimString, str: v} }
func NumberClaim(v float64) ClaimValue { return ClaimValue{kind: ClaimNumber, num: v} }
func BoolClaim(v bool) ClaimValue      { return ClaimValue{kind: ClaimBool, b: v} }

func (v ClaimValue) Kind() ClaimKind { return v.kind }

// encodable reports whether v has a JSON form. The zero ClaimValue and
// non-finite numbers do not.
func (v ClaimValue) encodable() bool {
	switch v.kind {
	case ClaimString, ClaimBool:
		return true
	case ClaimNumber:
		return !math.IsNaN(v.num) && !math.IsInf(v.num, 0)
	}
	return false
}

func (v ClaimValue) AsString() (string, bool)  { return v.str, v.kind == ClaimString }
func (v ClaimValue) AsNumber() (float64, bool) { return v.num, v.kind == ClaimNumber }
func (v ClaimValue) AsBool() (bool, bool)      { return v.b, v.kind == ClaimBool }

// Interface returns the value as a plain Go value, for callers that hand
// claims to code expecting map[string]interface{}.
func (v ClaimValue) Interface() interface{} {
	switch v.kind {
	case ClaimString:
		return v.str
	case ClaimNumber:
		return v.num
	case ClaimBool:
		return v.b
	}
	return nil
}

func (v ClaimValue) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case ClaimString:
		return json.Marshal(v.str)
	case ClaimNumber:
		return json.Marshal(v.num)
	case ClaimBool:
		return json.Marshal(v.b)
	}
	return nil, fmt.Errorf("%w: empty value", errUnsupportedClaim)
}

func (v *ClaimValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("%w: empty input", errUnsupportedClaim)
	}

	switch c := data[0]; {
	case c == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = StringClaim(s)
	case c == 't' || c == 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*v = BoolClaim(b)
	case c == '-' || (c >= '0' && c <= '9'):
		n, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return err
		}
		*v = NumberClaim(n)
	default:
		return fmt.Errorf("%w: %s", errUnsupportedClaim, data)
	}
	return nil
}

// Claims is an ordered bag of custom claims. Keys keep the position of their
// first Set, which makes the signed payload deterministic.
type Claims struct {
	keys   []string
	values map[string]ClaimValue
}

func NewClaims() *Claims {
	return &Claims{values: make(map[string]ClaimValue)}
}

// Set stores value under key and returns c so calls can be chained. Values
// with no JSON form (the zero ClaimValue, NaN, ±Inf) are ignored, which keeps
// every bag signable.
func (c *Claims) Set(key string, value ClaimValue) *Claims {
	if !value.encodable() {
		return c
	}
	if c.values == nil {
		c.values = make(map[string]ClaimValue)
	}
	if _, ok := c.values[key]; !ok {
		c.keys = append(c.keys, key)
	}
	c.values[key] = value
	return c
}

func (c *Claims) Get(key string) (ClaimValue, bool) {
	if c == nil {
		return ClaimValue{}, false
	}
	v, ok := c.values[key]
	return v, ok
}

func (c *Claims) Len() int {
	if c == nil {
		return 0
	}
	return len(c.keys)
}

// Keys returns the claim names in insertion order.
func (c *Claims) Keys() []string {
	if c == nil {
		return nil
	}
	return append([]string(nil), c.keys...)
}

// Map flattens the bag into a plain map.
func (c *Claims) Map() map[string]interface{} {
	out := make(map[string]interface{}, c.Len())
	if c == nil {
		return out
	}
	for _, k := range c.keys {
		out[k] = c.values[k].Interface()
	}
	return out
}

// registeredNames are owned by TokenClaims.RegisteredClaims and never taken
// from the custom bag.
var registeredNames = map[string]bool{
	"iss": true,
	"sub": true,
	"aud": true,
	"exp": true,
	"nbf": true,
	"iat": true,
	"jti": true,
}

// TokenClaims is the full claim set of a token: the caller's custom claims
// followed by the registered claims.
type TokenClaims struct {
	Custom *Claims
	jwt.RegisteredClaims
}

// MarshalJSON writes custom claims first, in insertion order, then sub, iss,
// iat and exp. A custom claim that uses a registered name is dropped.
func (tc TokenClaims) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true

	write := func(key string, value interface{}) error {
		v, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("marshal claim %q: %w", key, err)
		}
		k, _ := json.Marshal(key)
		if !first {
			buf.WriteByte(',')
		}
		first = false
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
		return nil
	}

	if tc.Custom != nil {
		for _, key := range tc.Custom.keys {
			if registeredNames[key] {
				continue
			}
			if err := write(key, tc.Custom.values[key]); err != nil {
				return nil, err
			}
		}
	}

	rc := tc.RegisteredClaims
	if rc.Subject != "" {
		if err := write("sub", rc.Subject); err != nil {
			return nil, err
		}
	}
	if rc.Issuer != "" {
		if err := write("iss", rc.Issuer); err != nil {
			return nil, err
		}
	}
	if len(rc.Audience) > 0 {
		if err := write("aud", rc.Audience); err != nil {
			return nil, err
		}
	}
	if rc.IssuedAt != nil {
		if err := write("iat", rc.IssuedAt); err != nil {
			return nil, err
		}
	}
	if rc.NotBefore != nil {
		if err := write("nbf", rc.NotBefore); err != nil {
			return nil, err
		}
	}
	if rc.ExpiresAt != nil {
		if err := write("exp", rc.ExpiresAt); err != nil {
			return nil, err
		}
	}
	if rc.ID != "" {
		if err := write("jti", rc.ID); err != nil {
			return nil, err
		}
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON fills the registered claims and collects every other member
// into Custom, in payload order. Custom values that are not a string, number
// or boolean are skipped.
func (tc *TokenClaims) UnmarshalJSON(data []byte) error {
	if err := json.Unmarshal(data, &tc.RegisteredClaims); err != nil {
		return err
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("claims must be a JSON object")
	}

	custom := NewClaims()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected claim key %v", tok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		if registeredNames[key] {
			continue
		}

		var v ClaimValue
		if err := v.UnmarshalJSON(raw); err != nil {
			if errors.Is(err, errUnsupportedClaim) {
				continue
			}
			return err
		}
		custom.Set(key, v)
	}

	tc.Custom = custom
	return nil
}

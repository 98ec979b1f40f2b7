package numverify

import "strings"

// ClientCredentials is the per-session client pair issued by the gateway.
type ClientCredentials struct {
	ClientID     string
	ClientSecret string
}

// String keeps the secret out of logs and error messages.
func (c ClientCredentials) String() string {
	return "ClientCredentials{ClientID: " + c.ClientID + ", ClientSecret: [REDACTED]}"
}

// ProviderMetadata holds the endpoints taken from the discovery document.
type ProviderMetadata struct {
	AuthorizationEndpoint string
	TokenEndpoint         string
}

// Result is the outcome of a number verification.
type Result struct {
	Verified      bool
	RecycledSince string
	ReasonCode    string
	// Raw is the provider payload as received.
	Raw map[string]any
}

// ParseResult reads the verification signal out of a provider payload.
// CAMARA answers with devicePhoneNumberVerified, older passthroughs with verified.
func ParseResult(raw map[string]any) *Result {
	res := &Result{Raw: raw}
	if v, ok := raw["verified"].(bool); ok {
		res.Verified = v
	} else if v, ok := raw["devicePhoneNumberVerified"].(bool); ok {
		res.Verified = v
	}
	if v, ok := raw["recycledSince"].(string); ok {
		res.RecycledSince = v
	}
	if v, ok := raw["reasonCode"].(string); ok {
		res.ReasonCode = v
	}
	return res
}

// E164 prefixes number with '+' unless it already carries one.
func E164(number string) string {
	number = strings.TrimSpace(number)
	return "+" + strings.TrimPrefix(number, "+")
}

package auth

const (
	ScopeOpenID       = "openid"
	ScopeResolweRead  = "resolwe:read"
	ScopeResolweWrite = "resolwe:write"
)

// AllScopes is the scope set granted to anonymous callers when the gateway
// runs without an issuer.
var AllScopes = []string{
	ScopeOpenID,
	ScopeResolweRead,
	ScopeResolweWrite,
}

package domain

// Identity holds trusted claims decoded from a verified token.
type Identity struct {
	UserID string `json:"id"`
	Role   Role   `json:"role"`
}

// TokenChannel names the transport a credential arrived on.
type TokenChannel string

const (
	ChannelNone   TokenChannel = "none"
	ChannelCookie TokenChannel = "cookie"
	ChannelHeader TokenChannel = "header"
)

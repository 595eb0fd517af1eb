package marketdata

// Credentials holds the API key pair used for the stream authentication
// handshake and for signing REST requests.
type Credentials struct {
	// Key is the public API key identifier.
	Key string `json:"key"`
	// Secret is the private API secret.
	Secret string `json:"secret"`
}

// Empty returns true if either half of the key pair is missing.
func (c Credentials) Empty() bool {
	return c.Key == "" || c.Secret == ""
}

// String returns a masked representation safe for logs.
func (c Credentials) String() string {
	return "Credentials{Key:" + maskKey(c.Key) + "}"
}

func maskKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "****" + key[len(key)-4:]
}

package xid

import "github.com/google/uuid"

// New returns an opaque identifier such as "inv-1b4e28ba-2fa1-11d2-883f-0016d3cca427".
func New(prefix string) string {
	if prefix == "" {
		return uuid.NewString()
	}
	return prefix + "-" + uuid.NewString()
}

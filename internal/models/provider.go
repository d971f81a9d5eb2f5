package models

import "fmt"

// Provider names an external identity provider a user can link.
type Provider string

const (
	ProviderFacebook Provider = "facebook"
	ProviderGoogle   Provider = "google"
)

// Providers lists every supported provider in a stable order.
var Providers = []Provider{ProviderFacebook, ProviderGoogle}

// ParseProvider maps a route or body value onto the closed provider set.
// It returns the package constants, never a value backed by name.
func ParseProvider(name string) (Provider, error) {
	switch Provider(name) {
	case ProviderFacebook:
		return ProviderFacebook, nil
	case ProviderGoogle:
		return ProviderGoogle, nil
	default:
		return "", fmt.Errorf("unsupported provider %q", name)
	}
}

func (p Provider) String() string {
	return string(p)
}

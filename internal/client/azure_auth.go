package client

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/hashicorp/go-cleanhttp"
)

// DefaultConnectTimeout bounds a single handshake request to Azure
const DefaultConnectTimeout = 30 * time.Second

// CredentialFactory builds the token credential used for a connection attempt
type CredentialFactory func(tenantID, clientID, clientSecret string, options *azidentity.ClientSecretCredentialOptions) (azcore.TokenCredential, error)

// HTTPClientFactory builds the transporter used for a connection attempt
type HTTPClientFactory func(proxyURI string) (policy.Transporter, error)

// NewClientSecretCredential is the default CredentialFactory
func NewClientSecretCredential(tenantID, clientID, clientSecret string, options *azidentity.ClientSecretCredentialOptions) (azcore.TokenCredential, error) {
	cred, err := azidentity.NewClientSecretCredential(tenantID, clientID, clientSecret, options)
	if err != nil {
		return nil, fmt.Errorf("failed to build client secret credential: %w", err)
	}
	return cred, nil
}

// NewProxyHTTPClient returns an HTTP client that routes through proxyURI.
// An empty proxyURI falls back to HTTP_PROXY / HTTPS_PROXY / NO_PROXY.
func NewProxyHTTPClient(proxyURI string, timeout time.Duration) (*http.Client, error) {
	transport := cleanhttp.DefaultPooledTransport()
	transport.Proxy = http.ProxyFromEnvironment

	if proxyURI != "" {
		u, err := url.Parse(proxyURI)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy_uri %q: %w", proxyURI, err)
		}
		if u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("invalid proxy_uri %q: scheme and host are required", proxyURI)
		}
		transport.Proxy = http.ProxyURL(u)
	}

	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}
	return &http.Client{Transport: transport, Timeout: timeout}, nil
}

func defaultHTTPClientFactory(proxyURI string) (policy.Transporter, error) {
	return NewProxyHTTPClient(proxyURI, DefaultConnectTimeout)
}

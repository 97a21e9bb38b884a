package models

// ConnectionRequest carries everything needed for one connection attempt.
// It is built fresh for every connect or verify call and never cached.
type ConnectionRequest struct {
	ClientID       string
	ClientSecret   string
	TenantID       string
	SubscriptionID string
	Region         string
	EndpointURL    string
	ProxyURI       string
}

// LogFields returns the request attributes that are safe to log
func (r ConnectionRequest) LogFields() map[string]interface{} {
	return map[string]interface{}{
		"client_id":        r.ClientID,
		"tenant_id":        r.TenantID,
		"subscription_id":  r.SubscriptionID,
		"region":           r.Region,
		"endpoint_url":     r.EndpointURL,
		"proxy_configured": r.ProxyURI != "",
	}
}

// ConnectionResult is the outcome of a connection attempt
type ConnectionResult struct {
	Success     bool
	Environment string
	// Reason is set when Success is false
	Reason string
}

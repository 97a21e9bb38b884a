// Package environment maps Azure regions onto the cloud environment that serves them
package environment

import (
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/cloud"
)

// Environment is a deployment-region-specific set of Azure endpoints
type Environment struct {
	Name  string
	Cloud cloud.Configuration
}

var (
	// DefaultEnvironment is the Azure public cloud
	DefaultEnvironment = Environment{
		Name:  "AzureCloud",
		Cloud: cloud.AzurePublic,
	}

	// USGovEnvironment is Azure Government
	USGovEnvironment = Environment{
		Name:  "AzureUSGovernmentCloud",
		Cloud: cloud.AzureGovernment,
	}

	// GermanyEnvironment is the sovereign Azure Germany cloud.
	// azcore does not ship a configuration for it.
	GermanyEnvironment = Environment{
		Name: "AzureGermanCloud",
		Cloud: cloud.Configuration{
			ActiveDirectoryAuthorityHost: "https://login.microsoftonline.de/",
			Services: map[cloud.ServiceName]cloud.ServiceConfiguration{
				cloud.ResourceManager: {
					Audience: "https://management.core.cloudapi.de/",
					Endpoint: "https://management.microsoftazure.de",
				},
			},
		},
	}
)

// For returns the environment serving region.
// Matching is a case-insensitive substring test; anything unmatched, including "",
// is served by DefaultEnvironment.
func For(region string) Environment {
	r := strings.ToLower(region)
	switch {
	case strings.Contains(r, "germany"):
		return GermanyEnvironment
	case strings.Contains(r, "usgov"):
		return USGovEnvironment
	default:
		return DefaultEnvironment
	}
}

// ResourceManagerEndpoint returns the Resource Manager endpoint of the environment
func (e Environment) ResourceManagerEndpoint() string {
	return e.Cloud.Services[cloud.ResourceManager].Endpoint
}

// ResourceManagerAudience returns the token audience of the Resource Manager service
func (e Environment) ResourceManagerAudience() string {
	return e.Cloud.Services[cloud.ResourceManager].Audience
}

// ResourceManagerScope returns the token scope used to reach Resource Manager
func (e Environment) ResourceManagerScope() string {
	return strings.TrimSuffix(e.ResourceManagerAudience(), "/") + "/.default"
}

// WithEndpoint returns a copy of e whose Resource Manager endpoint is url.
// An empty url returns e unchanged. The shared variants are never mutated.
func (e Environment) WithEndpoint(url string) Environment {
	url = strings.TrimSpace(url)
	if url == "" {
		return e
	}

	services := make(map[cloud.ServiceName]cloud.ServiceConfiguration, len(e.Cloud.Services))
	for name, svc := range e.Cloud.Services {
		services[name] = svc
	}
	rm := services[cloud.ResourceManager]
	rm.Endpoint = strings.TrimSuffix(url, "/")
	services[cloud.ResourceManager] = rm

	out := e
	out.Cloud.Services = services
	return out
}

package environment

import (
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/cloud"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFor(t *testing.T) {
	tests := []struct {
		region   string
		expected Environment
	}{
		{region: "germanycentral", expected: GermanyEnvironment},
		{region: "GermanyNorthEast", expected: GermanyEnvironment},
		{region: "GERMANY", expected: GermanyEnvironment},
		{region: "usgovvirginia", expected: USGovEnvironment},
		{region: "USGovArizona", expected: USGovEnvironment},
		{region: "eastus", expected: DefaultEnvironment},
		{region: "westeurope", expected: DefaultEnvironment},
		{region: "us-gov", expected: DefaultEnvironment},
		{region: "", expected: DefaultEnvironment},
		{region: "   ", expected: DefaultEnvironment},
	}

	for _, tt := range tests {
		t.Run(tt.region, func(t *testing.T) {
			assert.Equal(t, tt.expected.Name, For(tt.region).Name)
		})
	}
}

func TestResourceManagerScope(t *testing.T) {
	assert.Equal(t, "https://management.core.windows.net/.default", DefaultEnvironment.ResourceManagerScope())
	assert.Equal(t, "https://management.core.cloudapi.de/.default", GermanyEnvironment.ResourceManagerScope())
	assert.Equal(t, "https://management.microsoftazure.de", GermanyEnvironment.ResourceManagerEndpoint())
}

func TestWithEndpoint(t *testing.T) {
	original := DefaultEnvironment.ResourceManagerEndpoint()

	env := DefaultEnvironment.WithEndpoint("https://arm.example.test/")
	assert.Equal(t, "https://arm.example.test", env.ResourceManagerEndpoint())
	assert.Equal(t, DefaultEnvironment.ResourceManagerAudience(), env.ResourceManagerAudience())

	// the shared variant is untouched
	assert.Equal(t, original, DefaultEnvironment.ResourceManagerEndpoint())
	assert.Equal(t, original, cloud.AzurePublic.Services[cloud.ResourceManager].Endpoint)

	assert.Equal(t, original, DefaultEnvironment.WithEndpoint("").ResourceManagerEndpoint())
}

func TestRegions(t *testing.T) {
	regions := Regions()
	require.NotEmpty(t, regions)

	for i := 1; i < len(regions); i++ {
		assert.LessOrEqual(t, regions[i-1].Description, regions[i].Description)
	}

	// callers cannot mutate the catalog
	regions[0].Name = "mutated"
	assert.NotEqual(t, "mutated", Regions()[0].Name)

	r, ok := Lookup("usgovvirginia")
	require.True(t, ok)
	assert.Equal(t, "US Gov Virginia", r.Description)
	assert.Equal(t, USGovEnvironment.Name, For(r.Name).Name)

	_, ok = Lookup("atlantis")
	assert.False(t, ok)
	assert.Contains(t, RegionNames(), "westeurope")
}

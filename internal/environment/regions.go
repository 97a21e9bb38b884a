package environment

import (
	"strings"

	"golang.org/x/exp/slices"
)

// Region is an Azure region known to the provider
type Region struct {
	Name        string
	Description string
}

// catalog is built once at package load and never mutated
var catalog = buildCatalog()

func buildCatalog() []Region {
	regions := []Region{
		{Name: "australiacentral", Description: "Australia Central"},
		{Name: "australiaeast", Description: "Australia East"},
		{Name: "australiasoutheast", Description: "Australia Southeast"},
		{Name: "brazilsouth", Description: "Brazil South"},
		{Name: "canadacentral", Description: "Canada Central"},
		{Name: "canadaeast", Description: "Canada East"},
		{Name: "centralindia", Description: "Central India"},
		{Name: "centralus", Description: "Central US"},
		{Name: "eastasia", Description: "East Asia"},
		{Name: "eastus", Description: "East US"},
		{Name: "eastus2", Description: "East US 2"},
		{Name: "francecentral", Description: "France Central"},
		{Name: "germanycentral", Description: "Germany Central"},
		{Name: "germanynortheast", Description: "Germany Northeast"},
		{Name: "germanywestcentral", Description: "Germany West Central"},
		{Name: "japaneast", Description: "Japan East"},
		{Name: "japanwest", Description: "Japan West"},
		{Name: "koreacentral", Description: "Korea Central"},
		{Name: "koreasouth", Description: "Korea South"},
		{Name: "northcentralus", Description: "North Central US"},
		{Name: "northeurope", Description: "North Europe"},
		{Name: "norwayeast", Description: "Norway East"},
		{Name: "southafricanorth", Description: "South Africa North"},
		{Name: "southcentralus", Description: "South Central US"},
		{Name: "southeastasia", Description: "Southeast Asia"},
		{Name: "southindia", Description: "South India"},
		{Name: "swedencentral", Description: "Sweden Central"},
		{Name: "switzerlandnorth", Description: "Switzerland North"},
		{Name: "uaenorth", Description: "UAE North"},
		{Name: "uksouth", Description: "UK South"},
		{Name: "ukwest", Description: "UK West"},
		{Name: "usgovarizona", Description: "US Gov Arizona"},
		{Name: "usgoviowa", Description: "US Gov Iowa"},
		{Name: "usgovtexas", Description: "US Gov Texas"},
		{Name: "usgovvirginia", Description: "US Gov Virginia"},
		{Name: "westcentralus", Description: "West Central US"},
		{Name: "westeurope", Description: "West Europe"},
		{Name: "westindia", Description: "West India"},
		{Name: "westus", Description: "West US"},
		{Name: "westus2", Description: "West US 2"},
		{Name: "westus3", Description: "West US 3"},
	}
	slices.SortFunc(regions, func(a, b Region) int {
		return strings.Compare(a.Description, b.Description)
	})
	return regions
}

// Regions returns the known regions sorted by description
func Regions() []Region {
	return slices.Clone(catalog)
}

// RegionNames returns the names of the known regions
func RegionNames() []string {
	names := make([]string, 0, len(catalog))
	for _, r := range catalog {
		names = append(names, r.Name)
	}
	return names
}

// Lookup returns the catalog entry for name
func Lookup(name string) (Region, bool) {
	idx := slices.IndexFunc(catalog, func(r Region) bool { return r.Name == name })
	if idx < 0 {
		return Region{}, false
	}
	return catalog[idx], true
}

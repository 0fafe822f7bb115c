package install

import (
	"sort"
	"strings"
)

// Platform is how one OS family refreshes and installs packages.
type Platform struct {
	Name string
	// Update refreshes the package index. Empty skips the refresh.
	Update string
	// InstallLocal installs package files given as arguments.
	InstallLocal string
	// InstallOfficial installs packages by name from the repositories.
	InstallOfficial string
	// Extension of the package files, without the dot.
	Extension string
}

var platforms = map[string]Platform{
	"ubuntu": {
		Name:            "ubuntu",
		Update:          "apt update",
		InstallLocal:    "apt install -fy",
		InstallOfficial: "apt install -fy",
		Extension:       "deb",
	},
	"centos":     rpmPlatform("centos"),
	"almalinux":  rpmPlatform("almalinux"),
	"rockylinux": rpmPlatform("rockylinux"),
}

func rpmPlatform(name string) Platform {
	return Platform{
		Name:            name,
		InstallLocal:    "rpm -U --force",
		InstallOfficial: "yum install -y",
		Extension:       "rpm",
	}
}

// LookupPlatform returns the platform for an OS image repository.
func LookupPlatform(name string) (Platform, error) {
	p, ok := platforms[strings.ToLower(name)]
	if !ok {
		return Platform{}, &UnsupportedPlatformError{Platform: name, Supported: Platforms()}
	}
	return p, nil
}

// Platforms lists the supported platform names.
func Platforms() []string {
	names := make([]string, 0, len(platforms))
	for name := range platforms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Package is one required package category.
type Package struct {
	Name         string
	ProviderOnly bool // Only installed on the catalog service provider
}

// RequiredPackages returns the packages a server needs for databaseEngine,
// in install order.
func RequiredPackages(databaseEngine string) []Package {
	return []Package{
		{Name: "irods-runtime"},
		{Name: "irods-icommands"},
		{Name: "irods-server"},
		{Name: "irods-database-plugin-" + databaseEngine, ProviderOnly: true},
	}
}

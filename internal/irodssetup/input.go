package irodssetup

import (
	"sort"
	"strconv"
	"strings"
)

// Role is the part a server plays in the zone.
type Role string

const (
	RoleProvider Role = "provider"
	RoleConsumer Role = "consumer"
)

// consumerRoleMarker selects the consumer role in the setup script. The
// provider is the script's default and answers with an empty line.
const consumerRoleMarker = "2"

// confirm accepts a configuration summary in the setup script.
const confirm = "y"

// Input is the ordered answer sequence for one run of the setup script.
type Input struct {
	Role  Role
	Lines []string
}

// String renders the answers as standard input, one per line.
func (in Input) String() string {
	return strings.Join(in.Lines, "\n") + "\n"
}

type builder func(cfg Config) []string

var builders = map[Role]builder{
	RoleProvider: providerLines,
	RoleConsumer: consumerLines,
}

// Roles lists the roles Build knows.
func Roles() []Role {
	roles := make([]Role, 0, len(builders))
	for r := range builders {
		roles = append(roles, r)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })
	return roles
}

// Build renders the setup answers for role.
func Build(role Role, cfg Config) (Input, error) {
	b, ok := builders[role]
	if !ok {
		return Input{}, &UnsupportedRoleError{Role: role, Supported: Roles()}
	}
	return Input{Role: role, Lines: b(cfg)}, nil
}

func providerLines(cfg Config) []string {
	lines := []string{
		cfg.ServiceAccountName,
		cfg.ServiceAccountGroup,
		"",
		cfg.ODBCDriver,
		cfg.DatabaseServerHostname,
		strconv.Itoa(cfg.DatabaseServerPort),
		cfg.DatabaseName,
		cfg.DatabaseUsername,
		confirm,
		cfg.DatabasePassword,
		cfg.StoredPasswordsSalt,
		cfg.ZoneName,
		strconv.Itoa(cfg.ZonePort),
	}
	lines = append(lines, networkLines(cfg)...)
	return append(lines, trailerLines(cfg)...)
}

func consumerLines(cfg Config) []string {
	lines := []string{
		cfg.ServiceAccountName,
		cfg.ServiceAccountGroup,
		consumerRoleMarker,
		cfg.ZoneName,
		cfg.ProviderHostname,
		strconv.Itoa(cfg.ZonePort),
	}
	lines = append(lines, networkLines(cfg)...)
	return append(lines, trailerLines(cfg)...)
}

// networkLines are the port, schema and admin answers shared by both roles.
func networkLines(cfg Config) []string {
	return []string{
		strconv.Itoa(cfg.ParallelPortRangeBegin),
		strconv.Itoa(cfg.ParallelPortRangeEnd),
		strconv.Itoa(cfg.ControlPlanePort),
		cfg.SchemaValidationURI,
		cfg.AdminUsername,
		confirm,
	}
}

// trailerLines are the keys, admin password and vault, shared by both roles.
func trailerLines(cfg Config) []string {
	return []string{
		cfg.ZoneKey,
		cfg.NegotiationKey,
		cfg.ControlPlaneKey,
		cfg.AdminPassword,
		confirm,
		cfg.VaultDirectory,
		"",
	}
}

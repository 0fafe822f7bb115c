package irodssetup

// Config holds every answer the setup script asks for. Start from
// DefaultConfig and override what differs.
type Config struct {
	ServiceAccountName  string `yaml:"service_account_name"`
	ServiceAccountGroup string `yaml:"service_account_group"`

	ODBCDriver             string `yaml:"odbc_driver"`
	DatabaseServerHostname string `yaml:"database_server_hostname"` // Empty resolves the catalog container's hostname
	DatabaseServerPort     int    `yaml:"database_server_port"`
	DatabaseName           string `yaml:"database_name"`
	DatabaseUsername       string `yaml:"database_username"`
	DatabasePassword       string `yaml:"database_password"`
	StoredPasswordsSalt    string `yaml:"stored_passwords_salt"`

	ZoneName               string `yaml:"zone_name"`
	ProviderHostname       string `yaml:"provider_hostname"` // Empty resolves the provider container's hostname
	ZonePort               int    `yaml:"zone_port"`
	ParallelPortRangeBegin int    `yaml:"parallel_port_range_begin"`
	ParallelPortRangeEnd   int    `yaml:"parallel_port_range_end"`
	ControlPlanePort       int    `yaml:"control_plane_port"`
	SchemaValidationURI    string `yaml:"schema_validation_base_uri"`

	AdminUsername string `yaml:"admin_username"`
	AdminPassword string `yaml:"admin_password"`

	ZoneKey         string `yaml:"zone_key"`
	NegotiationKey  string `yaml:"negotiation_key"`
	ControlPlaneKey string `yaml:"control_plane_key"`

	VaultDirectory string `yaml:"vault_directory"`
}

// DefaultConfig returns the answers used for throwaway test zones.
func DefaultConfig() Config {
	return Config{
		ServiceAccountName:     "irods",
		ServiceAccountGroup:    "irods",
		ODBCDriver:             "/usr/lib/x86_64-linux-gnu/odbc/psqlodbca.so",
		DatabaseServerPort:     5432,
		DatabaseName:           "ICAT",
		DatabaseUsername:       "irods",
		DatabasePassword:       "testpassword",
		StoredPasswordsSalt:    "salt",
		ZoneName:               "tempZone",
		ZonePort:               1247,
		ParallelPortRangeBegin: 20000,
		ParallelPortRangeEnd:   20199,
		ControlPlanePort:       1248,
		SchemaValidationURI:    "file:///var/lib/irods/configuration_schemas",
		AdminUsername:          "rods",
		AdminPassword:          "rods",
		ZoneKey:                "TEMPORARY_ZONE_KEY",
		NegotiationKey:         "32_byte_server_negotiation_key__",
		ControlPlaneKey:        "32_byte_server_control_plane_key",
		VaultDirectory:         "/var/lib/irods/Vault",
	}
}

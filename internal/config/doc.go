// Package config loads the zonerun configuration file.
//
// The file is optional. Without one, or for every key it leaves out, the
// defaults apply. The default location is ~/.config/zonerun/config.yaml;
// commands accept --config to point somewhere else.
//
// # Configuration Structure
//
//	run:
//	  consumer_count: 3              # Consumers brought up by run
//	  setup_timeout: 30s             # How long to wait for server setup
//	  command_policy: continue       # continue | abort
//	  package_resolution: first      # first | strict
//	  parallelism: 0                 # Fan-out bound, 0 for one worker per task
//	  runtime: docker                # docker | docker-engine
//	database:
//	  name: ICAT
//	  user: irods
//	  password: testpassword
//	  root_password: testpassword    # MySQL and MariaDB only
//	  port: 0                        # 0 means the engine's default port
//	  user_host: "%"                 # MySQL and MariaDB only
//	setup:
//	  zone_name: tempZone            # Any answer of the server setup script
//	  admin_password: rods
//
// The database section is the single source of the catalog credentials;
// SetupConfig copies it over the matching setup answers.
package config

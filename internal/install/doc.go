// Package install puts iRODS server packages into the containers of a
// topology.
//
// Local installs resolve one file per required package from a directory,
// bundle them into a single archive and extract that archive into every
// server container. Official installs take the packages from the platform
// repositories, optionally pinned to a version. Either way the database
// plugin only goes to the catalog service provider.
//
// Containers are handled concurrently and independently: a failure on one
// container is reported in the results but never stops the others.
package install

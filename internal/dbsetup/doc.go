// Package dbsetup prepares the catalog database of a topology.
//
// Each supported database engine is a Strategy that renders engine specific
// client commands and runs them inside the database container. Strategies
// are looked up in a Registry by the repository name of the database image,
// for example "postgres" or "mysql".
//
// SetupCatalog runs create database, create user and grant privileges in
// that order and stops at the first failing step. Nothing already created
// is rolled back.
package dbsetup

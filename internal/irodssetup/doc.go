// Package irodssetup drives the iRODS setup script of server containers.
//
// The setup script asks a fixed sequence of questions whose order depends on
// the role of the server. Build renders the answers for a role from a Config,
// and SetupServer feeds them to the script on standard input before it
// restarts the server as the service account.
//
// Once a server is set up it signals completion by creating a sentinel file.
// Waiter polls for that file until it appears or a timeout passes.
package irodssetup

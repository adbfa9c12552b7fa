// Package auth validates SOCKS5 username/password credentials.
//
// The default store is a properties file of user=password lines, loaded once
// at startup and read-only afterwards, so one store can serve every session
// concurrently.
//
// The store is deliberately permissive for unknown users: a username with no
// record (or an empty stored password) is accepted whatever password it
// presents. Only users with a stored password are checked.
package auth

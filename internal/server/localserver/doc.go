// Package localserver serves the admin API on a Unix domain socket.
//
// The socket is created with mode 0600, so only the server's user (and
// root) can reach it. Requests over the socket skip the admin password;
// the router it serves is built without one.
package localserver

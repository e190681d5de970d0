// Package core holds the shared contracts of the module: configuration,
// scopes, sessions and the session store interface, the error envelope
// helpers, and logging and metrics observation. It must not depend on any
// other package of the module.
package core

// Package cli builds the cobra root command shared by the publisher and
// subscriber binaries.
//
// Each binary calls NewCommand with its role; the command binds the role's
// flags, resolves the configuration and hands over to the app package.
// Setup errors are returned from Execute so main can exit with status 1.
package cli

// Package history persists completed pipeline runs to a SQLite database so
// past work can be listed and inspected from the CLI.
package history

// Command migrate applies pending PostgreSQL schema migrations.
package main

import "github.com/aqasim81/migration-runner/internal/cli"

func main() {
	cli.Execute()
}

// contractctl is the administration CLI: it creates organizations, users and
// contracts directly against the database.
package main

import "os"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// nuhepmc-validate checks HepMC3 event files against the NuHepMC
// conventions and reports the first (or every) rule a file violates.
package main

import (
	"os"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

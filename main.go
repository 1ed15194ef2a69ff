// The main package for the events-crawler executable.
package main

import (
	"github.com/JakeFAU/campus-events-crawler/cmd"
)

func main() {
	cmd.Execute()
}

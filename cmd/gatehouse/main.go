// Command gatehouse is the multi-site HTTP front-end server.
package main

import (
	"os"

	"github.com/vitaliisemenov/gatehouse/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}

// Command shopcheck runs purchase-flow acceptance checks against a storefront.
package main

import "github.com/devicelab-dev/shopcheck/pkg/cli"

func main() {
	cli.Execute()
}

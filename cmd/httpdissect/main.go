// Command httpdissect dissects, builds and captures HTTP/1.x messages.
package main

import "github.com/Sentinel-Gate/httpdissect/cmd/httpdissect/cmd"

func main() {
	cmd.Execute()
}

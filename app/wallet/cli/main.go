package main

import "github.com/ardanlabs/slowchain/app/wallet/cli/cmd"

func main() {
	cmd.Execute()
}

package main

import "github.com/Alijeyrad/simorq_screening/cmd"

func main() {
	cmd.Execute()
}

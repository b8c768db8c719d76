package main

import "github.com/KaramelBytes/medtext-cli/cmd"

func main() {
	cmd.Execute()
}

package main

import "github.com/NamanBalaji/segreq/cmd"

func main() {
	cmd.Execute()
}

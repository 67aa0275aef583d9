package main

import "github.com/ValentinKolb/nsqc/cmd"

func main() {
	cmd.Execute()
}

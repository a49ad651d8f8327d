package main

import (
	"fmt"
	"os"
	"os/exec"
)

func direct() {
	cmd := os.Getenv("TOOL")
	exec.Command(cmd)
}

func throughFormat() {
	arg := os.Getenv("ARG")
	full := fmt.Sprintf("run-%s", arg)
	exec.Command("runner", full)
}

func clean() {
	exec.Command("ls", "-l")
}

func main() {
	direct()
	throughFormat()
	clean()
}

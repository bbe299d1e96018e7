package main

import (
	"os"
	"runtime/debug"

	"github.com/mezonai/dosguard/cmd"
	"github.com/mezonai/dosguard/logx"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			_ = logx.Errorf("DOSGUARD CRASHED: %v\n%s", r, debug.Stack())
			os.Exit(1)
		}
	}()

	cmd.Execute()
}

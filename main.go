package main

import (
	"github.com/BioHazard786/roomtalk/cmd"
	"github.com/BioHazard786/roomtalk/internal/logging"
)

func main() {
	// Initialize logging
	closeLog := logging.Init()
	defer closeLog()
	cmd.Execute()
}

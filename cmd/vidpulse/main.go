package main

import (
	"vidpulse/cmd/handlers"
	"vidpulse/internal/logger"
)

func main() {
	logger.Init()
	handlers.Execute()
}

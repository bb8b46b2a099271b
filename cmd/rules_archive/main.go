package main

import (
	"log"
	"os"

	"github.com/cvickery/rules-archive/cmd/rules_archive/cmd"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: could not load .env file: %v", err)
	}
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

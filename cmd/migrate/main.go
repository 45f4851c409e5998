package main

import (
	"fmt"
	"os"

	"github.com/distfocus/logistics_backend/config"
	"github.com/distfocus/logistics_backend/models"
)

func main() {
	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil)")
		os.Exit(1)
	}

	models.MigrateTable()
	fmt.Println("schema migrated")
}

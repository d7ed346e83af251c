package main

import (
	"log"
	"log/slog"
	"os"

	"github.com/econlab/ripple/pkg/mcp"
	"github.com/econlab/ripple/pkg/store"
)

func main() {
	var runs *store.Store
	if dbPath := os.Getenv("RIPPLE_DB_PATH"); dbPath != "" {
		st, err := store.NewStore(dbPath)
		if err != nil {
			log.Fatalf("Failed to open run database: %v", err)
		}
		defer st.Close()
		runs = st
	} else {
		slog.Warn("RIPPLE_DB_PATH not set, runs will not be persisted")
	}

	s := mcp.NewServer(runs)
	if err := s.Serve(); err != nil {
		log.Fatalf("MCP server error: %v", err)
	}
}

// Command filekvstat opens a filekv data directory and prints the
// structural diagnostics of one named map as JSON: depth, balance/density
// checks, key ordering validity, node/key counts and free-list population
// per size class. It is a consumer of the store, not part of it.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/iamNilotpal/filekv/pkg/filekv"
	"github.com/iamNilotpal/filekv/pkg/keytype"
	"github.com/iamNilotpal/filekv/pkg/options"
)

func main() {
	dir := flag.String("dir", options.DefaultDataDir, "data directory holding the map's files")
	name := flag.String("map", "", "name of the map to inspect")
	kindFlag := flag.String("kind", "bytes", "key type of the map: bytes, string or uint64")
	flag.Parse()

	if *name == "" {
		fmt.Fprintln(os.Stderr, "filekvstat: -map is required")
		os.Exit(2)
	}

	kind, err := parseKind(*kindFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, "filekvstat:", err)
		os.Exit(2)
	}

	db, err := filekv.Open(context.Background(), "filekvstat", options.WithDataDir(*dir))
	if err != nil {
		fmt.Fprintln(os.Stderr, "filekvstat: opening store:", err)
		os.Exit(1)
	}
	defer db.Close()

	m, err := db.Map(*name, kind)
	if err != nil {
		fmt.Fprintln(os.Stderr, "filekvstat: opening map:", err)
		os.Exit(1)
	}

	stats, err := m.Stats()
	if err != nil {
		fmt.Fprintln(os.Stderr, "filekvstat: collecting stats:", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(stats); err != nil {
		fmt.Fprintln(os.Stderr, "filekvstat: encoding stats:", err)
		os.Exit(1)
	}
}

func parseKind(s string) (keytype.Kind, error) {
	switch s {
	case "bytes":
		return keytype.Bytes, nil
	case "string":
		return keytype.String, nil
	case "uint64":
		return keytype.Uint64, nil
	default:
		return 0, fmt.Errorf("unknown key kind %q", s)
	}
}

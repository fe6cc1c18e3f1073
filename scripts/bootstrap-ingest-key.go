package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/signalbeam/signalbeam/internal/auth"
)

type output struct {
	Key       string `json:"key"`
	KeyPrefix string `json:"key_prefix"`
	KeyHash   string `json:"key_hash"`
}

func main() {
	var (
		env    = flag.String("env", auth.EnvLive, "Key environment: live or test")
		format = flag.String("format", "plain", "Output format: plain or json")
	)
	flag.Parse()

	generated, err := auth.GenerateIngestKey(*env)
	if err != nil {
		fmt.Fprintln(os.Stderr, "generate ingest key:", err)
		os.Exit(1)
	}

	out := output{
		Key:       generated.Plaintext,
		KeyPrefix: generated.Prefix,
		KeyHash:   generated.Hash,
	}

	switch strings.ToLower(*format) {
	case "plain":
		// The key is shown once; the hash goes into INGEST_KEY_HASH.
		fmt.Println("key:", out.Key)
		fmt.Println("hash:", out.KeyHash)
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(out)
	default:
		fmt.Fprintln(os.Stderr, "invalid format; use plain or json")
		os.Exit(1)
	}
}

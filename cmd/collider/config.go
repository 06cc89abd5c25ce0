package main

import (
	"encoding/hex"
	"flag"
	"fmt"

	"VowCollider/internal/sha2"
	"VowCollider/internal/vow"
)

// Config holds the search configuration.
type Config struct {
	// HashName selects the SHA-2 variant, e.g. "sha256".
	HashName string

	// N is the partial-collision length in bytes.
	N int

	// K is the distinguished-point leading-zero-byte count.
	K int

	// PrefixHex and SuffixHex frame every hashed input, hex-encoded.
	PrefixHex string
	SuffixHex string

	// Threads is the number of parallel chain walkers.
	Threads int

	// BatchSize is the number of chain steps per walker per dispatch.
	BatchSize uint64

	// DPCap is the per-walker DP buffer capacity.
	DPCap int

	// SeedSalt reseeds the walker set; leave empty for the default
	// index-derived seeds.
	SeedSalt string

	// TracePath records ingested DP batches when set.
	TracePath string

	// Verbose enables debug logging.
	Verbose bool
}

// parseFlags parses command-line flags into Config.
func parseFlags() *Config {
	cfg := &Config{}

	flag.StringVar(&cfg.HashName, "hash", "sha256", "SHA-2 variant (sha224, sha256, sha384, sha512, sha512/224, sha512/256)")
	flag.IntVar(&cfg.N, "n", 4, "Partial-collision length in bytes")
	flag.IntVar(&cfg.K, "k", 2, "Distinguished-point leading zero bytes (K <= N)")
	flag.StringVar(&cfg.PrefixHex, "prefix", "00112233", "Input frame prefix (hex)")
	flag.StringVar(&cfg.SuffixHex, "suffix", "33221100", "Input frame suffix (hex)")
	flag.IntVar(&cfg.Threads, "threads", 20_000, "Number of parallel chain walkers")
	flag.Uint64Var(&cfg.BatchSize, "batch", 100_000, "Chain steps per walker per dispatch")
	flag.IntVar(&cfg.DPCap, "dp-cap", 100, "Per-walker DP buffer capacity")
	flag.StringVar(&cfg.SeedSalt, "seed-salt", "", "Seed salt for a fresh walker seed set")
	flag.StringVar(&cfg.TracePath, "trace", "", "Record ingested DP batches to this file")
	flag.BoolVar(&cfg.Verbose, "v", false, "Enable debug logging")
	flag.Parse()

	return cfg
}

// params converts the flag values into validated search parameters.
func (c *Config) params() (*vow.Params, error) {
	variant, err := sha2.ParseVariant(c.HashName)
	if err != nil {
		return nil, err
	}

	prefix, err := hex.DecodeString(c.PrefixHex)
	if err != nil {
		return nil, fmt.Errorf("decode prefix:\n%w", err)
	}

	suffix, err := hex.DecodeString(c.SuffixHex)
	if err != nil {
		return nil, fmt.Errorf("decode suffix:\n%w", err)
	}

	p := &vow.Params{
		Variant:   variant,
		N:         c.N,
		K:         c.K,
		Prefix:    prefix,
		Suffix:    suffix,
		Threads:   c.Threads,
		BatchSize: c.BatchSize,
		DPCap:     c.DPCap,
		SeedSalt:  c.SeedSalt,
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}

	return p, nil
}

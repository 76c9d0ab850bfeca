package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	BaseURL      string
	HTTPAddr     string
	ChainID      uint64
	RPCURL       string
	ContractAddr string
	DBPath       string
	StoreKeyHex  string
	RedisAddr    string
	RedisDB      int
	Verbose      bool
}

func FromEnv() Config {
	return Config{
		BaseURL:      envDefault("PRIVYCREDIT_BASE_URL", "https://privycredit.example"),
		HTTPAddr:     envDefault("PRIVYCREDIT_HTTP_ADDR", ":8080"),
		ChainID:      envUint("PRIVYCREDIT_CHAIN_ID", 534351),
		RPCURL:       envDefault("PRIVYCREDIT_RPC_URL", "https://sepolia-rpc.scroll.io"),
		ContractAddr: os.Getenv("PRIVYCREDIT_CONTRACT"),
		DBPath:       envDefault("PRIVYCREDIT_DB_PATH", "privycredit.db"),
		StoreKeyHex:  os.Getenv("PRIVYCREDIT_STORE_KEY"),
		RedisAddr:    os.Getenv("PRIVYCREDIT_REDIS_ADDR"),
		RedisDB:      int(envUint("PRIVYCREDIT_REDIS_DB", 0)),
		Verbose:      os.Getenv("PRIVYCREDIT_VERBOSE") != "",
	}
}

// StoreKey decodes the hex-encoded factors encryption key.
func (c Config) StoreKey() ([]byte, error) {
	if c.StoreKeyHex == "" {
		return nil, fmt.Errorf("PRIVYCREDIT_STORE_KEY is required")
	}
	key, err := hex.DecodeString(c.StoreKeyHex)
	if err != nil {
		return nil, fmt.Errorf("PRIVYCREDIT_STORE_KEY: %w", err)
	}
	return key, nil
}

func envDefault(key, def string) string {
	value := os.Getenv(key)
	if value == "" {
		return def
	}
	return value
}

func envUint(key string, def uint64) uint64 {
	value := os.Getenv(key)
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}

package snowflake

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"strings"

	gosnowflake "github.com/snowflakedb/gosnowflake"
)

// keyPairDSN returns dsn rewritten to sign in with the RSA key at keyPath
// instead of a password. Service accounts for trial warehouses usually have
// no password at all.
func keyPairDSN(dsn, keyPath string) (string, error) {
	key, err := loadPrivateKey(keyPath)
	if err != nil {
		return "", err
	}

	sf, err := parsePasswordless(dsn)
	if err != nil {
		return "", fmt.Errorf("parse DSN: %w", err)
	}
	sf.Password = ""
	sf.Authenticator = gosnowflake.AuthTypeJwt
	sf.PrivateKey = key

	out, err := gosnowflake.DSN(sf)
	if err != nil {
		return "", fmt.Errorf("rebuild DSN: %w", err)
	}
	return out, nil
}

// parsePasswordless parses dsn, tolerating user@account forms that
// gosnowflake refuses for lacking a password.
func parsePasswordless(dsn string) (*gosnowflake.Config, error) {
	sf, err := gosnowflake.ParseDSN(dsn)
	if err == nil || !strings.Contains(err.Error(), "password is empty") {
		return sf, err
	}
	at := strings.Index(dsn, "@")
	if at <= 0 || strings.Contains(dsn[:at], ":") {
		return nil, err
	}
	return gosnowflake.ParseDSN(dsn[:at] + ":placeholder" + dsn[at:])
}

var keyParsers = map[string]func([]byte) (any, error){
	"RSA PRIVATE KEY": func(der []byte) (any, error) { return x509.ParsePKCS1PrivateKey(der) },
	"PRIVATE KEY":     x509.ParsePKCS8PrivateKey,
}

// loadPrivateKey reads an unencrypted PEM RSA key, PKCS#1 or PKCS#8.
func loadPrivateKey(path string) (*rsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read private key file %q: %w", path, err)
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found in %q", path)
	}

	parse, ok := keyParsers[block.Type]
	if !ok {
		return nil, fmt.Errorf("unsupported PEM block type %q, want RSA PRIVATE KEY or PRIVATE KEY", block.Type)
	}
	parsed, err := parse(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("private key is %T, want RSA", parsed)
	}
	return key, nil
}

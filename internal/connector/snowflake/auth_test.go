package snowflake

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeKeyFile(t *testing.T, blockType string, der []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rsa_key.p8")
	if err := os.WriteFile(path, pem.EncodeToMemory(&pem.Block{Type: blockType, Bytes: der}), 0600); err != nil {
		t.Fatalf("write key: %v", err)
	}
	return path
}

func testKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate RSA key: %v", err)
	}
	return key
}

func TestLoadPrivateKeyFormats(t *testing.T) {
	key := testKey(t)
	pkcs8, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatalf("marshal PKCS8: %v", err)
	}

	tests := []struct {
		name      string
		blockType string
		der       []byte
	}{
		{"pkcs1", "RSA PRIVATE KEY", x509.MarshalPKCS1PrivateKey(key)},
		{"pkcs8", "PRIVATE KEY", pkcs8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loaded, err := loadPrivateKey(writeKeyFile(t, tt.blockType, tt.der))
			if err != nil {
				t.Fatalf("loadPrivateKey: %v", err)
			}
			if loaded.N.Cmp(key.N) != 0 {
				t.Error("loaded key modulus does not match")
			}
		})
	}
}

func TestLoadPrivateKeyErrors(t *testing.T) {
	garbage := filepath.Join(t.TempDir(), "garbage.pem")
	os.WriteFile(garbage, []byte("not a pem file"), 0600)

	tests := []struct {
		name    string
		path    string
		wantErr string
	}{
		{"missing file", "/nonexistent/rsa_key.p8", "read private key file"},
		{"not pem", garbage, "no PEM block"},
		{"ec block", writeKeyFile(t, "EC PRIVATE KEY", []byte("x")), "unsupported PEM block type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadPrivateKey(tt.path)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestKeyPairDSN(t *testing.T) {
	der, _ := x509.MarshalPKCS8PrivateKey(testKey(t))
	keyPath := writeKeyFile(t, "PRIVATE KEY", der)

	out, err := keyPairDSN("analyst@trialorg/CDISC/PUBLIC?warehouse=TRIALS_WH", keyPath)
	if err != nil {
		t.Fatalf("keyPairDSN: %v", err)
	}
	if !strings.Contains(strings.ToLower(out), "authenticator=snowflake_jwt") {
		t.Errorf("DSN missing authenticator param: %s", out)
	}
	if !strings.Contains(out, "analyst") {
		t.Errorf("DSN missing user: %s", out)
	}

	if _, err := keyPairDSN("analyst@trialorg/CDISC/PUBLIC", "/nonexistent/rsa_key.p8"); err == nil {
		t.Error("expected error for missing key file")
	}
}

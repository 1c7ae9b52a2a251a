package config

import (
	"crypto/md5" //nolint:gosec // file naming scheme, not a security boundary
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
)

// WebhookDescriptor mirrors the "{database_name}.wbh" file spec.md §6
// describes: the base-layer subscription this node registered.
type WebhookDescriptor struct {
	ID         string                 `json:"id"`
	Event      string                 `json:"event"`
	Target     string                 `json:"target"`
	Conditions map[string]interface{} `json:"conditions"`
	Key        string                 `json:"key"`
}

// LoadWebhookDescriptor reads "{dir}/{databaseName}.wbh".
func LoadWebhookDescriptor(dir, databaseName string) (*WebhookDescriptor, error) {
	raw, err := os.ReadFile(fmt.Sprintf("%s/%s.wbh", dir, databaseName))
	if err != nil {
		return nil, fmt.Errorf("read webhook descriptor: %w", err)
	}
	var d WebhookDescriptor
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("parse webhook descriptor: %w", err)
	}
	return &d, nil
}

// WebhookKey mirrors "<md5(authorization)>.key": the stored verification
// string and hash used to authenticate inbound /blocks webhooks
// (spec.md §6).
type WebhookKey struct {
	Verification string `json:"verification"`
	Hash         string `json:"hash"`
}

// KeyFileName returns the on-disk name for a given Authorization token.
func KeyFileName(authorization string) string {
	sum := md5.Sum([]byte(authorization)) //nolint:gosec // filename derivation only
	return hex.EncodeToString(sum[:]) + ".key"
}

// LoadWebhookKey reads the key file for the given authorization token.
func LoadWebhookKey(dir, authorization string) (*WebhookKey, error) {
	raw, err := os.ReadFile(dir + "/" + KeyFileName(authorization))
	if err != nil {
		return nil, fmt.Errorf("read webhook key: %w", err)
	}
	var k WebhookKey
	if err := json.Unmarshal(raw, &k); err != nil {
		return nil, fmt.Errorf("parse webhook key: %w", err)
	}
	return &k, nil
}

// Verify recomputes SHA256(authorization || stored verification) and
// compares it against the stored hash, per spec.md §4.5(i).
func (k *WebhookKey) Verify(authorization string) bool {
	sum := sha256.Sum256([]byte(authorization + k.Verification))
	return hex.EncodeToString(sum[:]) == k.Hash
}

package encryption

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kms"
)

var phiEncryptionContext = map[string]string{
	"Purpose": "PHI-Encryption",
	"Service": "Haven-Backend",
}

type KMSClient struct {
	client *kms.Client
	keyID  string
}

func NewKMSClient() (*KMSClient, error) {
	cfg, err := config.LoadDefaultConfig(context.TODO())
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %v", err)
	}

	keyID := os.Getenv("KMS_KEY_ID")
	if keyID == "" {
		return nil, fmt.Errorf("KMS_KEY_ID environment variable is required")
	}

	client := kms.NewFromConfig(cfg)
	return &KMSClient{
		client: client,
		keyID:  keyID,
	}, nil
}

// EncryptPHI encrypts PHI data using AWS KMS
func (k *KMSClient) EncryptPHI(ctx context.Context, plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	input := &kms.EncryptInput{
		KeyId:             aws.String(k.keyID),
		Plaintext:         []byte(plaintext),
		EncryptionContext: phiEncryptionContext,
	}

	result, err := k.client.Encrypt(ctx, input)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt PHI: %v", err)
	}

	// Return base64 encoded ciphertext
	return base64.StdEncoding.EncodeToString(result.CiphertextBlob), nil
}

// DecryptPHI decrypts PHI data using AWS KMS
func (k *KMSClient) DecryptPHI(ctx context.Context, ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}

	ciphertextBlob, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("failed to decode ciphertext: %v", err)
	}

	input := &kms.DecryptInput{
		CiphertextBlob:    ciphertextBlob,
		EncryptionContext: phiEncryptionContext,
	}

	result, err := k.client.Decrypt(ctx, input)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt PHI: %v", err)
	}

	return string(result.Plaintext), nil
}

// ValidateKMSKey validates that the KMS key exists and is accessible
func (k *KMSClient) ValidateKMSKey(ctx context.Context) error {
	input := &kms.DescribeKeyInput{
		KeyId: aws.String(k.keyID),
	}

	_, err := k.client.DescribeKey(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to validate KMS key %s: %v", k.keyID, err)
	}

	return nil
}

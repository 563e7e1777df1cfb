package services

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/m-barthelemy/dating-pwa/models"
)

// DataProtector encrypts sensitive values before they touch the database.
// Used for push subscription key material when ENCRYPTIONKEY is set.
type DataProtector struct {
	config *models.Config
}

// NewDataProtector creates an instance of DataProtector
func NewDataProtector(config *models.Config) *DataProtector {
	return &DataProtector{config: config}
}

func (d *DataProtector) Encrypt(stringToEncrypt string) (string, error) {
	key := []byte(d.config.EncryptionKey)
	plaintext := []byte(stringToEncrypt)

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	// Nonce / Unique IV, prefixed to the ciphertext.
	nonce := make([]byte, aesGCM.NonceSize())
	if _, err = io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ciphertext := aesGCM.Seal(nonce, nonce, plaintext, nil)
	return fmt.Sprintf("%x", ciphertext), nil
}

func (d *DataProtector) Decrypt(encryptedString string) (string, error) {
	key := []byte(d.config.EncryptionKey)
	enc, err := hex.DecodeString(encryptedString)
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonceSize := aesGCM.NonceSize()
	if len(enc) < nonceSize {
		return "", errors.New("encrypted value is too short")
	}

	nonce, ciphertext := enc[:nonceSize], enc[nonceSize:]
	plaintext, err := aesGCM.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", err
	}

	return string(plaintext), nil
}

// Package signature provides helper functions for handling the blockchain
// hashing and signature needs.
package signature

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
)

// ZeroHash represents a hash code of zeros.
const ZeroHash string = "0000000000000000000000000000000000000000000000000000000000000000"

// AddressLength is the number of hex characters kept from the public key
// digest to form an address.
const AddressLength = 40

// Sizes of the accepted public key encodings. Addresses are always derived
// from the X||Y form.
const (
	rawPublicKeyLength        = 64
	compressedPublicKeyLength = 33
)

// The order of the secp256k1 group and half of it, used to normalize
// signatures into their low-S form before verification.
var (
	secp256k1N     = crypto.S256().Params().N
	secp256k1HalfN = new(big.Int).Rsh(secp256k1N, 1)
)

// =============================================================================

// Canonical returns the deterministic JSON representation of the value.
// Object keys are sorted, there is no insignificant whitespace, HTML
// characters are not escaped and numbers keep their shortest decimal form.
func Canonical(value any) ([]byte, error) {
	data, err := marshal(value)
	if err != nil {
		return nil, err
	}

	// Round trip through generic values so every object is a map, which the
	// encoder always writes with its keys in sorted order.
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, err
	}

	return marshal(generic)
}

// Digest returns the lower-case hex SHA-256 of the data.
func Digest(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// Hash returns a unique string for the value. The ZeroHash is returned
// when the value can't be serialized.
func Hash(value any) string {
	data, err := Canonical(value)
	if err != nil {
		return ZeroHash
	}

	return Digest(data)
}

// =============================================================================

// FormatAmount renders an amount the way it appears in a signed message.
func FormatAmount(amount float64) string {
	return strconv.FormatFloat(amount, 'f', -1, 64)
}

// Message returns the exact string that is signed for a transfer.
func Message(sender string, receiver string, amount float64) string {
	return fmt.Sprintf("%s:%s:%s", sender, receiver, FormatAmount(amount))
}

// Sign uses the specified private key to sign the message. The signature
// is returned as the hex encoding of the 64 byte [R|S] values.
func Sign(message string, privateKey *ecdsa.PrivateKey) (string, error) {
	digest := sha256.Sum256([]byte(message))

	sig, err := crypto.Sign(digest[:], privateKey)
	if err != nil {
		return "", err
	}

	// Drop the recovery id, only [R|S] travels with the transaction.
	return hex.EncodeToString(sig[:crypto.RecoveryIDOffset]), nil
}

// Verify checks the signature for the message was produced by the private
// key for the specified public key. Any malformed input reports false.
func Verify(publicKey string, sig string, message string) bool {
	pk, err := ParsePublicKey(publicKey)
	if err != nil {
		return false
	}

	rs, err := decodeHex(sig)
	if err != nil || len(rs) != crypto.RecoveryIDOffset {
		return false
	}

	digest := sha256.Sum256([]byte(message))

	return crypto.VerifySignature(crypto.FromECDSAPub(pk), digest[:], lowS(rs))
}

// =============================================================================

// ParsePublicKey decodes a hex public key. The 64 byte X||Y form, the 65
// byte uncompressed form and the 33 byte compressed form are accepted.
func ParsePublicKey(publicKey string) (*ecdsa.PublicKey, error) {
	data, err := decodeHex(publicKey)
	if err != nil {
		return nil, fmt.Errorf("decoding public key: %w", err)
	}

	switch len(data) {
	case rawPublicKeyLength:
		return crypto.UnmarshalPubkey(append([]byte{0x04}, data...))

	case rawPublicKeyLength + 1:
		return crypto.UnmarshalPubkey(data)

	case compressedPublicKeyLength:
		return crypto.DecompressPubkey(data)
	}

	return nil, fmt.Errorf("invalid public key length %d", len(data))
}

// PublicKeyHex returns the hex X||Y form of the public key.
func PublicKeyHex(pk ecdsa.PublicKey) string {
	return hex.EncodeToString(crypto.FromECDSAPub(&pk)[1:])
}

// PublicKeyToAddress derives the address for the public key.
func PublicKeyToAddress(pk ecdsa.PublicKey) string {
	return Digest(crypto.FromECDSAPub(&pk)[1:])[:AddressLength]
}

// Address derives the address for the hex encoded public key.
func Address(publicKey string) (string, error) {
	pk, err := ParsePublicKey(publicKey)
	if err != nil {
		return "", err
	}

	return PublicKeyToAddress(*pk), nil
}

// =============================================================================

// marshal encodes the value without HTML escaping or a trailing newline.
func marshal(value any) ([]byte, error) {
	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(value); err != nil {
		return nil, err
	}

	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// decodeHex decodes a hex string with an optional 0x prefix.
func decodeHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if s == "" {
		return nil, errors.New("empty hex string")
	}

	return hex.DecodeString(s)
}

// lowS returns the signature with S folded into the lower half of the
// curve order. Both forms are valid ECDSA signatures for the same message.
func lowS(rs []byte) []byte {
	s := new(big.Int).SetBytes(rs[32:])
	if s.Cmp(secp256k1HalfN) <= 0 {
		return rs
	}

	out := make([]byte, len(rs))
	copy(out, rs[:32])
	new(big.Int).Sub(secp256k1N, s).FillBytes(out[32:])

	return out
}

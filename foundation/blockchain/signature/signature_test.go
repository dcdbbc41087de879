package signature_test

import (
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/ardanlabs/slowchain/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/crypto"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

const (
	pkHexKey  = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"
	pubHexKey = "412ffaffb78f2931e193f1add952fcb84ceaa55c8491b3a71f25f89fbb482aaf9b74f0fc0d3b6a71da07425d3ef94ac0a1b1d7972f10c2c38bd77257b346fbf8"
	compHex   = "02412ffaffb78f2931e193f1add952fcb84ceaa55c8491b3a71f25f89fbb482aaf"
	address   = "e67cc0d3278942abe26beec591da9a22df129493"
)

// =============================================================================

func Test_Hash(t *testing.T) {
	value := struct {
		Name string
	}{
		Name: "Bill",
	}
	hash := "0f6887ac85101d6d6425a617edf35bd721b5f619fb92c36c3d2224e3bdb0ee5a"

	h := signature.Hash(value)
	if h != hash {
		t.Logf("got: %s", h)
		t.Logf("exp: %s", hash)
		t.Fatalf("Should get back the right hash: %s", h[:6])
	}

	h = signature.Hash(value)
	if h != hash {
		t.Logf("got: %s", h)
		t.Logf("exp: %s", hash)
		t.Fatalf("Should get back the same hash twice.")
	}

	if len(h) != 64 {
		t.Fatalf("Should get back a 64 character hash: %d", len(h))
	}
}

func Test_Canonical(t *testing.T) {
	type table struct {
		name  string
		value any
		exp   string
	}

	tt := []table{
		{
			name:  "sorted",
			value: map[string]any{"b": 1, "a": "x", "c": []int{3, 2}},
			exp:   `{"a":"x","b":1,"c":[3,2]}`,
		},
		{
			name: "struct",
			value: struct {
				Zeta  float64 `json:"zeta"`
				Alpha string  `json:"alpha"`
			}{Zeta: 12.5, Alpha: "<&>"},
			exp: `{"alpha":"<&>","zeta":12.5}`,
		},
		{
			name:  "whole",
			value: map[string]float64{"amount": 42},
			exp:   `{"amount":42}`,
		},
	}

	t.Log("Given the need to serialize values deterministically.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				data, err := signature.Canonical(tst.value)
				if err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to serialize the value: %v", failed, testID, err)
				}

				if string(data) != tst.exp {
					t.Logf("\t%s\tTest %d:\tgot: %s", failed, testID, data)
					t.Logf("\t%s\tTest %d:\texp: %s", failed, testID, tst.exp)
					t.Fatalf("\t%s\tTest %d:\tShould get back the canonical form.", failed, testID)
				}
				t.Logf("\t%s\tTest %d:\tShould get back the canonical form.", success, testID)
			}

			t.Run(tst.name, f)
		}
	}
}

func Test_Message(t *testing.T) {
	tt := map[string]struct {
		amount float64
		exp    string
	}{
		"whole":    {42, "alice:bob:42"},
		"fraction": {12.5, "alice:bob:12.5"},
		"zero":     {0, "alice:bob:0"},
	}

	for name, tst := range tt {
		if got := signature.Message("alice", "bob", tst.amount); got != tst.exp {
			t.Logf("got: %s", got)
			t.Logf("exp: %s", tst.exp)
			t.Fatalf("Should get back the right message for %s.", name)
		}
	}
}

func Test_Address(t *testing.T) {
	pk, err := crypto.HexToECDSA(pkHexKey)
	if err != nil {
		t.Fatalf("Should be able to load a private key: %s", err)
	}

	if got := signature.PublicKeyHex(pk.PublicKey); got != pubHexKey {
		t.Logf("got: %s", got)
		t.Logf("exp: %s", pubHexKey)
		t.Fatalf("Should get back the raw public key.")
	}

	if got := signature.PublicKeyToAddress(pk.PublicKey); got != address {
		t.Logf("got: %s", got)
		t.Logf("exp: %s", address)
		t.Fatalf("Should get back the right address.")
	}

	uncompressed := hex.EncodeToString(crypto.FromECDSAPub(&pk.PublicKey))
	for _, key := range []string{pubHexKey, "0x" + pubHexKey, uncompressed, compHex} {
		addr, err := signature.Address(key)
		if err != nil {
			t.Fatalf("Should be able to derive an address from %s: %s", key[:8], err)
		}
		if addr != address {
			t.Logf("got: %s", addr)
			t.Logf("exp: %s", address)
			t.Fatalf("Should derive the same address for every encoding.")
		}
	}

	for _, key := range []string{"", "zz", "abcd", pubHexKey[:60]} {
		if _, err := signature.Address(key); err == nil {
			t.Fatalf("Should not derive an address from %q.", key)
		}
	}
}

func Test_Signing(t *testing.T) {
	pk, err := crypto.HexToECDSA(pkHexKey)
	if err != nil {
		t.Fatalf("Should be able to load a private key: %s", err)
	}

	other, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("Should be able to generate a private key: %s", err)
	}

	msg := signature.Message(address, "bob", 42)

	sig, err := signature.Sign(msg, pk)
	if err != nil {
		t.Fatalf("Should be able to sign data: %s", err)
	}

	if len(sig) != 128 {
		t.Fatalf("Should get back a 64 byte hex signature: %d", len(sig))
	}

	if !signature.Verify(pubHexKey, sig, msg) {
		t.Fatalf("Should be able to verify the signature.")
	}

	if !signature.Verify(compHex, sig, msg) {
		t.Fatalf("Should be able to verify with the compressed public key.")
	}

	type table struct {
		name   string
		pubKey string
		sig    string
		msg    string
	}

	tt := []table{
		{name: "message", pubKey: pubHexKey, sig: sig, msg: signature.Message(address, "bob", 43)},
		{name: "message-byte", pubKey: pubHexKey, sig: sig, msg: msg[:len(msg)-1] + "3"},
		{name: "signature", pubKey: pubHexKey, sig: flip(sig), msg: msg},
		{name: "public-key", pubKey: signature.PublicKeyHex(other.PublicKey), sig: sig, msg: msg},
		{name: "bad-hex-sig", pubKey: pubHexKey, sig: "not-hex", msg: msg},
		{name: "short-sig", pubKey: pubHexKey, sig: sig[:64], msg: msg},
		{name: "bad-hex-key", pubKey: "not-hex", sig: sig, msg: msg},
		{name: "empty", pubKey: "", sig: "", msg: msg},
	}

	t.Log("Given the need to reject anything that was not signed.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				if signature.Verify(tst.pubKey, tst.sig, tst.msg) {
					t.Fatalf("\t%s\tTest %d:\tShould not verify a mutated %s.", failed, testID, tst.name)
				}
				t.Logf("\t%s\tTest %d:\tShould not verify a mutated %s.", success, testID, tst.name)
			}

			t.Run(tst.name, f)
		}
	}
}

func Test_HighS(t *testing.T) {
	pk, err := crypto.HexToECDSA(pkHexKey)
	if err != nil {
		t.Fatalf("Should be able to load a private key: %s", err)
	}

	msg := signature.Message(address, "bob", 12.5)

	sig, err := signature.Sign(msg, pk)
	if err != nil {
		t.Fatalf("Should be able to sign data: %s", err)
	}

	rs, _ := hex.DecodeString(sig)
	s := new(big.Int).SetBytes(rs[32:])
	high := make([]byte, 64)
	copy(high, rs[:32])
	new(big.Int).Sub(crypto.S256().Params().N, s).FillBytes(high[32:])

	if !signature.Verify(pubHexKey, hex.EncodeToString(high), msg) {
		t.Fatalf("Should be able to verify the high-S form of the signature.")
	}
}

// flip mutates the first byte of the hex signature.
func flip(sig string) string {
	b, _ := hex.DecodeString(sig)
	b[0] ^= 0xff
	return hex.EncodeToString(b)
}

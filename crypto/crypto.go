package crypto

import (
	"errors"

	btc_ecdsa "github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/holiman/uint256"
	"github.com/umbracle/fastrlp"

	"github.com/0xPolygon/polygon-evm/helper/keccak"
	"github.com/0xPolygon/polygon-evm/types"
)

var (
	secp256k1N     = uint256.MustFromHex("0xfffffffffffffffffffffffffffffffebaaedce6af48a03bbfd25e8cd0364141")
	secp256k1NHalf = new(uint256.Int).Rsh(secp256k1N, 1)

	errHashOfInvalidLength = errors.New("message hash of invalid length")
	errInvalidSignature    = errors.New("invalid signature")
)

const (
	// ECDSASignatureLength indicates the byte length required to carry a signature with recovery id.
	// (64 bytes ECDSA signature + 1 byte recovery id)
	ECDSASignatureLength = 64 + 1

	// recoveryID is ECDSA signature recovery id
	recoveryID = byte(27)
)

// ValidateSignatureValues checks if the signature values are correct
func ValidateSignatureValues(v byte, r, s *uint256.Int, isHomestead bool) bool {
	if r == nil || s == nil || r.IsZero() || s.IsZero() {
		return false
	}

	// v must be 0 or 1
	if v > 1 {
		return false
	}

	// From Homestead, s must be less or equal than secp256k1n/2
	if isHomestead {
		return r.Lt(secp256k1N) && !s.Gt(secp256k1NHalf)
	}

	return r.Lt(secp256k1N) && s.Lt(secp256k1N)
}

var addressPool fastrlp.ArenaPool

// CreateAddress creates an Ethereum address from the sender and its nonce:
// keccak256(rlp([sender, nonce]))[12:]
func CreateAddress(addr types.Address, nonce uint64) types.Address {
	a := addressPool.Get()
	defer addressPool.Put(a)

	v := a.NewArray()
	v.Set(a.NewBytes(addr.Bytes()))
	v.Set(a.NewUint(nonce))

	dst := keccak.Keccak256Rlp(nil, v)

	return types.BytesToAddress(dst[12:])
}

var create2Prefix = []byte{0xff}

// CreateAddress2 creates an Ethereum address following the CREATE2 Opcode.
func CreateAddress2(addr types.Address, salt [32]byte, inithash []byte) types.Address {
	return types.BytesToAddress(Keccak256(create2Prefix, addr.Bytes(), salt[:], Keccak256(inithash))[12:])
}

// Ecrecover returns the uncompressed public key that produced the signature
// sig ([R || S || V], V in {0, 1}) over hash
func Ecrecover(hash, sig []byte) ([]byte, error) {
	if len(hash) != types.HashLength {
		return nil, errHashOfInvalidLength
	}

	if len(sig) != ECDSASignatureLength {
		return nil, errInvalidSignature
	}

	// btcec wants the recovery id first
	btcsig := make([]byte, ECDSASignatureLength)
	btcsig[0] = sig[ECDSASignatureLength-1] + recoveryID
	copy(btcsig[1:], sig)

	pub, _, err := btc_ecdsa.RecoverCompact(btcsig, hash)
	if err != nil {
		return nil, err
	}

	return pub.SerializeUncompressed(), nil
}

// Keccak256 calculates the Keccak256
func Keccak256(v ...[]byte) []byte {
	return keccak.Keccak256Parts(nil, v...)
}

// Keccak256Hash calculates and returns the Keccak256 hash of the input data,
// converting it to an internal Hash data structure.
func Keccak256Hash(v ...[]byte) types.Hash {
	return types.BytesToHash(Keccak256(v...))
}

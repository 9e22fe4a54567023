package evm

import (
	"math/bits"

	"github.com/holiman/uint256"

	"github.com/0xPolygon/polygon-evm/chain"
	"github.com/0xPolygon/polygon-evm/state/runtime"
	"github.com/0xPolygon/polygon-evm/types"
)

func safeAdd(x, y uint64) (uint64, bool) {
	sum, carry := bits.Add64(x, y, 0)

	return sum, carry != 0
}

func safeMul(x, y uint64) (uint64, bool) {
	hi, lo := bits.Mul64(x, y)

	return lo, hi != 0
}

// allButOne64th is the most gas a frame can hand to a sub-call once
// EIP150Mode is on. It is floor(63*gas/64), one less than the mainnet
// gas - gas/64 when gas is not a multiple of 64.
func allButOne64th(gas uint64) uint64 {
	return gas/64*63 + (gas%64)*63/64
}

// memory sizing

func calcMemSize64(off, l *uint256.Int) (uint64, bool) {
	if !l.IsUint64() {
		return 0, true
	}

	return calcMemSize64WithUint(off, l.Uint64())
}

func calcMemSize64WithUint(off *uint256.Int, length uint64) (uint64, bool) {
	// a zero length access does not touch memory, whatever the offset
	if length == 0 {
		return 0, false
	}

	offset, overflow := off.Uint64WithOverflow()
	if overflow {
		return 0, true
	}

	return safeAdd(offset, length)
}

func memorySha3(s *Stack) (uint64, bool) {
	return calcMemSize64(s.back(0), s.back(1))
}

func memoryCopy(s *Stack) (uint64, bool) {
	return calcMemSize64(s.back(0), s.back(2))
}

func memoryExtCodeCopy(s *Stack) (uint64, bool) {
	return calcMemSize64(s.back(1), s.back(3))
}

func memoryMLoad(s *Stack) (uint64, bool) {
	return calcMemSize64WithUint(s.back(0), 32)
}

func memoryMStore(s *Stack) (uint64, bool) {
	return calcMemSize64WithUint(s.back(0), 32)
}

func memoryMStore8(s *Stack) (uint64, bool) {
	return calcMemSize64WithUint(s.back(0), 1)
}

func memoryLog(s *Stack) (uint64, bool) {
	return calcMemSize64(s.back(0), s.back(1))
}

func memoryCreate(s *Stack) (uint64, bool) {
	return calcMemSize64(s.back(1), s.back(2))
}

func memoryReturn(s *Stack) (uint64, bool) {
	return calcMemSize64(s.back(0), s.back(1))
}

func memoryCall(s *Stack) (uint64, bool) {
	return maxMemSize(s.back(3), s.back(4), s.back(5), s.back(6))
}

func memoryDelegateOrStaticCall(s *Stack) (uint64, bool) {
	return maxMemSize(s.back(2), s.back(3), s.back(4), s.back(5))
}

// maxMemSize returns the larger of the input and output regions of a call
func maxMemSize(inOffset, inSize, retOffset, retSize *uint256.Int) (uint64, bool) {
	in, overflow := calcMemSize64(inOffset, inSize)
	if overflow {
		return 0, true
	}

	ret, overflow := calcMemSize64(retOffset, retSize)
	if overflow {
		return 0, true
	}

	if in > ret {
		return in, false
	}

	return ret, false
}

// dynamic gas

// wordGas prices the words covered by a length operand
func wordGas(length *uint256.Int, perWord uint64) (uint64, bool) {
	l, overflow := length.Uint64WithOverflow()
	if overflow {
		return 0, true
	}

	return safeMul(toWordSize(l), perWord)
}

func gasCopy(lengthPos int) dynamicGasFunc {
	return func(f *frame, _ uint64) (uint64, error) {
		gas, overflow := wordGas(f.stack.back(lengthPos), f.schedule.CopyGas)
		if overflow {
			return 0, runtime.ErrOutOfGas
		}

		return gas, nil
	}
}

func gasExtCodeCopy(f *frame, charged uint64) (uint64, error) {
	gas, err := gasCopy(3)(f, charged)
	if err != nil {
		return 0, err
	}

	gas, overflow := safeAdd(gas, f.schedule.ExtcodecopyGas)
	if overflow {
		return 0, runtime.ErrOutOfGas
	}

	return gas, nil
}

func gasSha3(f *frame, _ uint64) (uint64, error) {
	gas, overflow := wordGas(f.stack.back(1), f.schedule.Sha3WordGas)
	if overflow {
		return 0, runtime.ErrOutOfGas
	}

	if gas, overflow = safeAdd(gas, f.schedule.Sha3Gas); overflow {
		return 0, runtime.ErrOutOfGas
	}

	return gas, nil
}

func gasExp(f *frame, _ uint64) (uint64, error) {
	expByteLen := uint64((f.stack.back(1).BitLen() + 7) / 8)

	gas, overflow := safeMul(expByteLen, f.schedule.ExpByteGas)
	if overflow {
		return 0, runtime.ErrOutOfGas
	}

	if gas, overflow = safeAdd(gas, f.schedule.ExpGas); overflow {
		return 0, runtime.ErrOutOfGas
	}

	return gas, nil
}

func gasLog(n int) dynamicGasFunc {
	return func(f *frame, _ uint64) (uint64, error) {
		size, overflow := f.stack.back(1).Uint64WithOverflow()
		if overflow {
			return 0, runtime.ErrOutOfGas
		}

		s := f.schedule
		gas := s.LogGas + uint64(n)*s.LogTopicGas

		dataGas, overflow := safeMul(size, s.LogDataGas)
		if overflow {
			return 0, runtime.ErrOutOfGas
		}

		if gas, overflow = safeAdd(gas, dataGas); overflow {
			return 0, runtime.ErrOutOfGas
		}

		return gas, nil
	}
}

func gasBalance(f *frame, _ uint64) (uint64, error) {
	return f.schedule.BalanceGas, nil
}

func gasExtCodeSize(f *frame, _ uint64) (uint64, error) {
	return f.schedule.ExtcodesizeGas, nil
}

func gasExtCodeHash(f *frame, _ uint64) (uint64, error) {
	return f.schedule.ExtcodehashGas, nil
}

func gasBlockHash(f *frame, _ uint64) (uint64, error) {
	return f.schedule.BlockhashGas, nil
}

func gasJumpDest(f *frame, _ uint64) (uint64, error) {
	return f.schedule.JumpdestGas, nil
}

func gasSLoad(f *frame, _ uint64) (uint64, error) {
	return f.schedule.SloadGas, nil
}

// gasSStore prices a storage write and records the refund it earns in
// f.sstoreRefund. opSStore applies the refund once the gas is paid.
func gasSStore(f *frame, _ uint64) (uint64, error) {
	s := f.schedule
	f.sstoreRefund = 0

	if s.SstorePolicy == chain.SstoreNetMeteredSentry && f.gas <= s.SstoreSentryGas {
		return 0, runtime.ErrOutOfGas
	}

	key := types.Hash(f.stack.back(0).Bytes32())
	value := types.Hash(f.stack.back(1).Bytes32())
	current := f.host.GetStorage(f.msg.Address, key)

	if s.SstorePolicy == chain.SstoreFlat {
		switch {
		case current.IsZero() && !value.IsZero():
			return s.SstoreSetGas, nil
		case !current.IsZero() && value.IsZero():
			f.sstoreRefund = int64(s.SstoreRefundGas)

			return s.SstoreResetGas, nil
		default:
			return s.SstoreResetGas, nil
		}
	}

	// net metering
	if current == value {
		return s.SstoreUnchangedGas, nil
	}

	original := f.host.GetCommittedStorage(f.msg.Address, key)
	if original == current {
		if original.IsZero() {
			return s.SstoreSetGas, nil
		}

		if value.IsZero() {
			f.sstoreRefund = int64(s.SstoreRefundGas)
		}

		return s.SstoreResetGas, nil
	}

	// dirty slot
	if !original.IsZero() {
		if current.IsZero() {
			f.sstoreRefund -= int64(s.SstoreRefundGas)
		} else if value.IsZero() {
			f.sstoreRefund += int64(s.SstoreRefundGas)
		}
	}

	if original == value {
		if original.IsZero() {
			f.sstoreRefund += int64(s.SstoreSetGas - s.SstoreUnchangedGas)
		} else {
			f.sstoreRefund += int64(s.SstoreResetGas - s.SstoreUnchangedGas)
		}
	}

	return s.SstoreUnchangedGas, nil
}

// isNewAccount reports whether touching addr with the given value creates
// an account, which costs CallNewAccountGas
func (f *frame) isNewAccount(addr types.Address, transfersValue bool) bool {
	if f.schedule.EIP158Mode {
		return transfersValue && f.host.Empty(addr)
	}

	return !f.host.AccountExists(addr)
}

func gasCall(f *frame, charged uint64) (uint64, error) {
	s := f.schedule
	transfersValue := !f.stack.back(2).IsZero()

	if transfersValue && f.msg.Static {
		return 0, runtime.ErrWriteProtection
	}

	gas := s.CallGas
	if f.isNewAccount(types.Address(f.stack.back(1).Bytes20()), transfersValue) {
		gas += s.CallNewAccountGas
	}

	if transfersValue {
		gas += s.CallValueTransferGas
	}

	return f.callGas(charged, gas, f.stack.back(0))
}

func gasCallCode(f *frame, charged uint64) (uint64, error) {
	s := f.schedule
	transfersValue := !f.stack.back(2).IsZero()

	if transfersValue && f.msg.Static {
		return 0, runtime.ErrWriteProtection
	}

	gas := s.CallGas
	if transfersValue {
		gas += s.CallValueTransferGas
	}

	return f.callGas(charged, gas, f.stack.back(0))
}

func gasDelegateOrStaticCall(f *frame, charged uint64) (uint64, error) {
	return f.callGas(charged, f.schedule.CallGas, f.stack.back(0))
}

// callGas settles the gas handed to a sub-call and stores it in
// f.callGasTemp. The returned cost is the surcharge plus the forwarded gas.
func (f *frame) callGas(charged, surcharge uint64, requested *uint256.Int) (uint64, error) {
	cost, overflow := safeAdd(charged, surcharge)
	if overflow {
		return 0, runtime.ErrOutOfGas
	}

	if f.schedule.EIP150Mode {
		if f.gas < cost {
			return 0, runtime.ErrOutOfGas
		}

		capped := allButOne64th(f.gas - cost)
		if requested.IsUint64() && requested.Uint64() < capped {
			f.callGasTemp = requested.Uint64()
		} else {
			f.callGasTemp = capped
		}
	} else {
		if !requested.IsUint64() {
			return 0, runtime.ErrOutOfGas
		}

		f.callGasTemp = requested.Uint64()
	}

	total, overflow := safeAdd(surcharge, f.callGasTemp)
	if overflow {
		return 0, runtime.ErrOutOfGas
	}

	return total, nil
}

func gasCreate(f *frame, _ uint64) (uint64, error) {
	return f.schedule.CreateGas, nil
}

func gasCreate2(f *frame, _ uint64) (uint64, error) {
	gas, overflow := wordGas(f.stack.back(2), f.schedule.Sha3WordGas)
	if overflow {
		return 0, runtime.ErrOutOfGas
	}

	if gas, overflow = safeAdd(gas, f.schedule.CreateGas); overflow {
		return 0, runtime.ErrOutOfGas
	}

	return gas, nil
}

func gasSelfDestruct(f *frame, _ uint64) (uint64, error) {
	s := f.schedule
	gas := s.SelfdestructGas

	if s.EIP150Mode {
		beneficiary := types.Address(f.stack.back(0).Bytes20())
		hasBalance := !f.host.GetBalance(f.msg.Address).IsZero()

		if f.isNewAccount(beneficiary, hasBalance) {
			gas += s.CallNewAccountGas
		}
	}

	return gas, nil
}

// Package abi turns human-readable function signatures and literal argument
// strings into selector-prefixed calldata, using go-ethereum's ABI encoder
// for the standard tuple-encoding rules.
package abi

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"reflect"
	"strconv"
	"strings"

	gethabi "github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// Param is one named parameter of a parsed signature.
type Param struct {
	Name string
	Type gethabi.Type
}

// Function is a parsed human-readable signature such as
// "swap(uint256 x, uint256 y, address a, bytes b)".
type Function struct {
	Name   string
	Params []Param

	arguments gethabi.Arguments
}

// ParseSignature parses a signature of the form name(type name, ...).
// Parameter names are optional; unnamed parameters get positional names
// (arg0, arg1, ...).
func ParseSignature(sig string) (*Function, error) {
	sig = strings.TrimSpace(sig)
	open := strings.IndexByte(sig, '(')
	if open <= 0 || !strings.HasSuffix(sig, ")") {
		return nil, fmt.Errorf("malformed signature %q", sig)
	}
	name := strings.TrimSpace(sig[:open])
	if strings.ContainsAny(name, " \t()") {
		return nil, fmt.Errorf("malformed signature %q: bad function name", sig)
	}

	inner := strings.TrimSpace(sig[open+1 : len(sig)-1])
	fn := &Function{Name: name}
	if inner == "" {
		return fn, nil
	}
	if strings.ContainsAny(inner, "()") {
		return nil, fmt.Errorf("malformed signature %q: tuple parameters are not supported", sig)
	}

	for i, part := range strings.Split(inner, ",") {
		fields := strings.Fields(part)
		var typeStr, paramName string
		switch len(fields) {
		case 1:
			typeStr = fields[0]
			paramName = fmt.Sprintf("arg%d", i)
		case 2:
			typeStr = fields[0]
			paramName = fields[1]
		default:
			return nil, fmt.Errorf("malformed signature %q: parameter %d", sig, i)
		}

		typ, err := gethabi.NewType(typeStr, "", nil)
		if err != nil {
			return nil, fmt.Errorf("malformed signature %q: parameter %d type %q: %w", sig, i, typeStr, err)
		}
		fn.Params = append(fn.Params, Param{Name: paramName, Type: typ})
		fn.arguments = append(fn.arguments, gethabi.Argument{Name: paramName, Type: typ})
	}
	return fn, nil
}

// Canonical returns the normalized signature used for selector derivation,
// e.g. "swap(uint256,uint256,address,bytes)".
func (f *Function) Canonical() string {
	types := make([]string, len(f.Params))
	for i, p := range f.Params {
		types[i] = p.Type.String()
	}
	return f.Name + "(" + strings.Join(types, ",") + ")"
}

// Selector returns the 4-byte function selector.
func (f *Function) Selector() []byte {
	return crypto.Keccak256([]byte(f.Canonical()))[:4]
}

// ParamIndex returns the position of the named parameter, or -1.
func (f *Function) ParamIndex(name string) int {
	for i, p := range f.Params {
		if p.Name == name {
			return i
		}
	}
	return -1
}

// Encode converts the literal arguments and returns selector-prefixed
// calldata. Literal count must match the parameter count.
func (f *Function) Encode(literals []string) ([]byte, error) {
	if len(literals) != len(f.Params) {
		return nil, fmt.Errorf("%s takes %d arguments, got %d", f.Name, len(f.Params), len(literals))
	}
	values := make([]interface{}, len(literals))
	for i, lit := range literals {
		v, err := valueFor(f.Params[i].Type, lit)
		if err != nil {
			return nil, fmt.Errorf("argument %s of %s: %w", f.Params[i].Name, f.Name, err)
		}
		values[i] = v
	}
	packed, err := f.arguments.Pack(values...)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", f.Canonical(), err)
	}
	return append(f.Selector(), packed...), nil
}

// UnsignedBounds returns the full [0, 2^N-1] domain for an unsigned integer
// parameter type. Fuzzing is only defined over unsigned integers; any other
// type is a configuration error.
func UnsignedBounds(t gethabi.Type) (min, max *uint256.Int, err error) {
	if t.T != gethabi.UintTy {
		return nil, nil, fmt.Errorf("type %s cannot be fuzzed, only unsigned integers", t.String())
	}
	min = uint256.NewInt(0)
	if t.Size >= 256 {
		return min, new(uint256.Int).Not(uint256.NewInt(0)), nil
	}
	max = new(uint256.Int).Lsh(uint256.NewInt(1), uint(t.Size))
	return min, max.SubUint64(max, 1), nil
}

// valueFor converts a literal string into the Go value the ABI encoder
// expects for the given type. Nothing is silently coerced: a literal that
// does not parse into its declared type is an error.
func valueFor(t gethabi.Type, literal string) (interface{}, error) {
	switch t.T {
	case gethabi.UintTy, gethabi.IntTy:
		n, ok := new(big.Int).SetString(strings.TrimSpace(literal), 0)
		if !ok {
			return nil, fmt.Errorf("invalid %s literal %q", t.String(), literal)
		}
		if t.T == gethabi.UintTy && n.Sign() < 0 {
			return nil, fmt.Errorf("negative literal %q for %s", literal, t.String())
		}
		return sizedInt(t, n)
	case gethabi.AddressTy:
		if !common.IsHexAddress(literal) {
			return nil, fmt.Errorf("invalid address %q", literal)
		}
		return common.HexToAddress(literal), nil
	case gethabi.BoolTy:
		b, err := strconv.ParseBool(literal)
		if err != nil {
			return nil, fmt.Errorf("invalid bool literal %q", literal)
		}
		return b, nil
	case gethabi.StringTy:
		return literal, nil
	case gethabi.BytesTy:
		b, err := hexBytes(literal)
		if err != nil {
			return nil, err
		}
		return b, nil
	case gethabi.FixedBytesTy:
		b, err := hexBytes(literal)
		if err != nil {
			return nil, err
		}
		if len(b) != t.Size {
			return nil, fmt.Errorf("bytes%d literal %q has %d bytes", t.Size, literal, len(b))
		}
		arr := reflect.New(t.GetType()).Elem()
		reflect.Copy(arr, reflect.ValueOf(b))
		return arr.Interface(), nil
	default:
		return nil, fmt.Errorf("unsupported argument type %s", t.String())
	}
}

// sizedInt maps a big.Int onto the native type the encoder expects for the
// declared bit width. go-ethereum packs 8/16/32/64-bit integers as native
// Go integers and everything else as *big.Int.
func sizedInt(t gethabi.Type, n *big.Int) (interface{}, error) {
	if t.T == gethabi.IntTy {
		half := new(big.Int).Lsh(big.NewInt(1), uint(t.Size-1))
		if n.Cmp(half) >= 0 || n.Cmp(new(big.Int).Neg(half)) < 0 {
			return nil, fmt.Errorf("literal %s overflows %s", n.String(), t.String())
		}
		switch t.Size {
		case 8:
			return int8(n.Int64()), nil
		case 16:
			return int16(n.Int64()), nil
		case 32:
			return int32(n.Int64()), nil
		case 64:
			return n.Int64(), nil
		}
		return n, nil
	}
	if n.BitLen() > t.Size {
		return nil, fmt.Errorf("literal %s overflows %s", n.String(), t.String())
	}
	switch t.Size {
	case 8:
		return uint8(n.Uint64()), nil
	case 16:
		return uint16(n.Uint64()), nil
	case 32:
		return uint32(n.Uint64()), nil
	case 64:
		return n.Uint64(), nil
	}
	return n, nil
}

func hexBytes(literal string) ([]byte, error) {
	s := strings.TrimPrefix(literal, "0x")
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex literal %q", literal)
	}
	return b, nil
}

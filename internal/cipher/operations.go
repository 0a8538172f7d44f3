package cipher

import (
	"context"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/RowanDark/cipherstack/internal/keycodec"
)

// Layer Operations

// ChaCha20Op applies the ChaCha20 keystream. It is its own reverse.
type ChaCha20Op struct {
	BaseOperation
}

func (op *ChaCha20Op) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	key, err := hexParam(params, "key")
	if err != nil {
		return nil, err
	}
	nonce, err := hexParam(params, "nonce")
	if err != nil {
		return nil, err
	}
	counter, err := counterParam(params)
	if err != nil {
		return nil, err
	}
	return ChaCha20(input, key, nonce, counter)
}

// BlockStreamOp applies the S-box-derived stream cipher. It is its own reverse.
type BlockStreamOp struct {
	BaseOperation
}

func (op *BlockStreamOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	key, err := hexParam(params, "key")
	if err != nil {
		return nil, err
	}
	nonce, err := hexParam(params, "nonce")
	if err != nil {
		return nil, err
	}
	return BlockStream(input, key, nonce)
}

// XorAvalancheEncryptOp applies the forward avalanche transform
type XorAvalancheEncryptOp struct {
	BaseOperation
}

func (op *XorAvalancheEncryptOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	key, err := hexParam(params, "key")
	if err != nil {
		return nil, err
	}
	return XorAvalanche(input, key)
}

// XorAvalancheDecryptOp undoes the avalanche transform
type XorAvalancheDecryptOp struct {
	BaseOperation
}

func (op *XorAvalancheDecryptOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	key, err := hexParam(params, "key")
	if err != nil {
		return nil, err
	}
	return XorAvalancheInverse(input, key)
}

// Decimal Operations

// DecimalEncodeOp renders bytes as a base-10 integer string
type DecimalEncodeOp struct {
	BaseOperation
}

func (op *DecimalEncodeOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	length, ok, err := intParam(params, "length")
	if err != nil {
		return nil, err
	}
	if ok && len(input) > length {
		return nil, fmt.Errorf("decimal encode: input is %d bytes, length is %d", len(input), length)
	}
	return []byte(keycodec.BytesToDecimal(input)), nil
}

// ReverseParams reports that decoding only restores leading zero bytes, and
// the empty input, when the byte length is known.
func (op *DecimalEncodeOp) ReverseParams() []string {
	return []string{"length"}
}

// DecimalDecodeOp parses a base-10 integer string back into bytes. The
// "length" parameter restores leading zero bytes; without it the minimal
// big-endian form is produced.
type DecimalDecodeOp struct {
	BaseOperation
}

func (op *DecimalDecodeOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	text := strings.TrimSpace(string(input))
	length, ok, err := intParam(params, "length")
	if err != nil {
		return nil, err
	}
	if !ok {
		// each decimal digit needs at most 10/3 bits
		length = len(text)*10/24 + 2
		decoded, err := keycodec.DecimalToBytes(text, length)
		if err != nil {
			return nil, fmt.Errorf("decimal decode failed: %w", err)
		}
		i := 0
		for i < len(decoded)-1 && decoded[i] == 0 {
			i++
		}
		return decoded[i:], nil
	}
	decoded, err := keycodec.DecimalToBytes(text, length)
	if err != nil {
		return nil, fmt.Errorf("decimal decode failed: %w", err)
	}
	return decoded, nil
}

func hexParam(params map[string]interface{}, name string) ([]byte, error) {
	raw, ok := params[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s parameter required", ErrInvalidKeyMaterial, name)
	}
	var value string
	switch v := raw.(type) {
	case string:
		value = v
	case []byte:
		return append([]byte(nil), v...), nil
	default:
		return nil, fmt.Errorf("%w: %s parameter must be a hex string", ErrInvalidKeyMaterial, name)
	}
	value = strings.TrimPrefix(strings.TrimSpace(value), "0x")
	decoded, err := hex.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %s parameter is not valid hex", ErrInvalidKeyMaterial, name)
	}
	return decoded, nil
}

func counterParam(params map[string]interface{}) (uint32, error) {
	value, ok, err := intParam(params, "counter")
	if err != nil || !ok {
		return 0, err
	}
	if uint64(value) > math.MaxUint32 {
		return 0, fmt.Errorf("counter parameter out of range: %d", value)
	}
	return uint32(value), nil
}

// intParam reads a non-negative integer parameter. JSON and YAML decoders hand
// numbers over as float64 or int, and CLI callers pass strings.
func intParam(params map[string]interface{}, name string) (int, bool, error) {
	raw, ok := params[name]
	if !ok {
		return 0, false, nil
	}
	var value int
	switch v := raw.(type) {
	case int:
		value = v
	case int64:
		value = int(v)
	case uint32:
		value = int(v)
	case float64:
		if v != math.Trunc(v) {
			return 0, false, fmt.Errorf("%s parameter must be an integer", name)
		}
		value = int(v)
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, false, fmt.Errorf("%s parameter must be an integer: %w", name, err)
		}
		value = parsed
	default:
		return 0, false, fmt.Errorf("%s parameter has unsupported type %T", name, raw)
	}
	if value < 0 {
		return 0, false, fmt.Errorf("%s parameter must not be negative", name)
	}
	return value, true, nil
}

// init registers the layer and decimal operations
func init() {
	chacha := &ChaCha20Op{
		BaseOperation: BaseOperation{
			NameValue:        "chacha20",
			TypeValue:        OperationTypeEncrypt,
			DescriptionValue: "XOR with the ChaCha20 keystream (params: key, nonce, counter)",
		},
	}
	chacha.ReverseOp = chacha

	blockStream := &BlockStreamOp{
		BaseOperation: BaseOperation{
			NameValue:        "blockstream",
			TypeValue:        OperationTypeEncrypt,
			DescriptionValue: "S-box-derived stream cipher, not AES (params: key, nonce)",
		},
	}
	blockStream.ReverseOp = blockStream

	avalancheEncrypt := &XorAvalancheEncryptOp{
		BaseOperation: BaseOperation{
			NameValue:        "xor_avalanche_encrypt",
			TypeValue:        OperationTypeEncrypt,
			DescriptionValue: "XOR, rotate and chained avalanche mixing (params: key)",
		},
	}
	avalancheDecrypt := &XorAvalancheDecryptOp{
		BaseOperation: BaseOperation{
			NameValue:        "xor_avalanche_decrypt",
			TypeValue:        OperationTypeDecrypt,
			DescriptionValue: "Undo XOR avalanche mixing (params: key)",
		},
	}
	avalancheEncrypt.ReverseOp = avalancheDecrypt
	avalancheDecrypt.ReverseOp = avalancheEncrypt

	decimalEncode := &DecimalEncodeOp{
		BaseOperation: BaseOperation{
			NameValue:        "decimal_encode",
			TypeValue:        OperationTypeEncode,
			DescriptionValue: "Encode bytes as a base-10 integer string (params: length, required to reverse)",
		},
	}
	decimalDecode := &DecimalDecodeOp{
		BaseOperation: BaseOperation{
			NameValue:        "decimal_decode",
			TypeValue:        OperationTypeDecode,
			DescriptionValue: "Decode a base-10 integer string; without length, leading zero bytes are dropped (params: length)",
		},
	}
	decimalEncode.ReverseOp = decimalDecode
	decimalDecode.ReverseOp = decimalEncode

	RegisterOperation(chacha)
	RegisterOperation(blockStream)
	RegisterOperation(avalancheEncrypt)
	RegisterOperation(avalancheDecrypt)
	RegisterOperation(decimalEncode)
	RegisterOperation(decimalDecode)
}

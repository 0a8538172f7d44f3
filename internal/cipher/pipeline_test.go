package cipher

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func layerParams() map[string]map[string]interface{} {
	return map[string]map[string]interface{}{
		"chacha20": {
			"key":   hexOf(sequentialBytes(0x01, 32)),
			"nonce": hexOf(make([]byte, 12)),
		},
		"blockstream": {
			"key":   hexOf(sequentialBytes(0x00, 16)),
			"nonce": hexOf(sequentialBytes(0x10, 16)),
		},
		"xor_avalanche": {
			"key": hexOf(sequentialBytes(0x01, 16)),
		},
	}
}

func TestPipelineMatchesOrchestrator(t *testing.T) {
	params := layerParams()
	pipeline := &Pipeline{
		Operations: []OperationConfig{
			{Name: "chacha20", Parameters: params["chacha20"]},
			{Name: "blockstream", Parameters: params["blockstream"]},
			{Name: "xor_avalanche_encrypt", Parameters: params["xor_avalanche"]},
		},
		Reversible: true,
	}

	ctx := context.Background()
	sealed, err := pipeline.Execute(ctx, []byte("Hello, World!"))
	if err != nil {
		t.Fatalf("pipeline execution failed: %v", err)
	}
	if got := hexOf(sealed); got != "47f0fa54bdc724a18098d64447" {
		t.Errorf("expected orchestrator output, got %s", got)
	}
}

func TestPipelineReversibility(t *testing.T) {
	params := layerParams()
	tests := []struct {
		name       string
		operations []OperationConfig
		input      []byte
	}{
		{
			name: "single layer",
			operations: []OperationConfig{
				{Name: "xor_avalanche_encrypt", Parameters: params["xor_avalanche"]},
			},
			input: []byte("hello world"),
		},
		{
			name: "all layers",
			operations: []OperationConfig{
				{Name: "xor_avalanche_encrypt", Parameters: params["xor_avalanche"]},
				{Name: "chacha20", Parameters: params["chacha20"]},
				{Name: "blockstream", Parameters: params["blockstream"]},
			},
			input: bytes.Repeat([]byte("multi block input "), 10),
		},
		{
			name: "layers then decimal",
			operations: []OperationConfig{
				{Name: "blockstream", Parameters: params["blockstream"]},
				{Name: "decimal_encode", Parameters: map[string]interface{}{"length": 16}},
			},
			input: []byte("printable output"),
		},
		{
			name:       "decimal keeps leading zeros",
			operations: []OperationConfig{{Name: "decimal_encode", Parameters: map[string]interface{}{"length": 4}}},
			input:      []byte{0, 0, 7, 1},
		},
		{
			name:       "decimal of empty input",
			operations: []OperationConfig{{Name: "decimal_encode", Parameters: map[string]interface{}{"length": 0}}},
			input:      []byte{},
		},
		{
			name:       "empty buffer",
			operations: []OperationConfig{{Name: "chacha20", Parameters: params["chacha20"]}},
			input:      []byte{},
		},
	}

	ctx := context.Background()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pipeline := &Pipeline{
				Operations: tt.operations,
				Reversible: true,
			}

			encoded, err := pipeline.Execute(ctx, tt.input)
			if err != nil {
				t.Fatalf("forward pipeline failed: %v", err)
			}

			reversePipeline, err := pipeline.Reverse()
			if err != nil {
				t.Fatalf("failed to create reverse pipeline: %v", err)
			}

			decoded, err := reversePipeline.Execute(ctx, encoded)
			if err != nil {
				t.Fatalf("reverse pipeline failed: %v", err)
			}

			if !bytes.Equal(decoded, tt.input) {
				t.Errorf("roundtrip failed: expected %q, got %q", tt.input, decoded)
			}
		})
	}
}

func TestPipelineReverseOrder(t *testing.T) {
	params := layerParams()
	pipeline := &Pipeline{
		Operations: []OperationConfig{
			{Name: "chacha20", Parameters: params["chacha20"]},
			{Name: "xor_avalanche_encrypt", Parameters: params["xor_avalanche"]},
		},
		Reversible: true,
	}

	reversed, err := pipeline.Reverse()
	if err != nil {
		t.Fatalf("reverse failed: %v", err)
	}
	if reversed.Operations[0].Name != "xor_avalanche_decrypt" || reversed.Operations[1].Name != "chacha20" {
		t.Fatalf("unexpected reversed steps: %+v", reversed.Operations)
	}
}

func TestPipelineReverseNeedsDecimalLength(t *testing.T) {
	pipeline := &Pipeline{
		Operations: []OperationConfig{{Name: "decimal_encode"}},
		Reversible: true,
	}
	_, err := pipeline.Reverse()
	if err == nil || !strings.Contains(err.Error(), "length") {
		t.Fatalf("expected missing length error, got %v", err)
	}

	pipeline.Operations[0].Parameters = map[string]interface{}{"length": 2}
	reversed, err := pipeline.Reverse()
	if err != nil {
		t.Fatalf("reverse with length: %v", err)
	}
	if reversed.Operations[0].Name != "decimal_decode" || reversed.Operations[0].Parameters["length"] != 2 {
		t.Fatalf("unexpected reversed step %+v", reversed.Operations[0])
	}

	if _, err := pipeline.Execute(context.Background(), []byte{1, 2, 3}); err == nil {
		t.Fatal("expected encode to reject input longer than length")
	}
}

func TestPipelineNotMarkedReversible(t *testing.T) {
	pipeline := &Pipeline{
		Operations: []OperationConfig{{Name: "decimal_encode"}},
		Reversible: false,
	}

	if _, err := pipeline.Reverse(); err == nil {
		t.Error("expected error when reversing a pipeline not marked reversible")
	}
}

func TestPipelineUnknownOperation(t *testing.T) {
	pipeline := &Pipeline{
		Operations: []OperationConfig{
			{Name: "unknown_operation"},
		},
		Reversible: false,
	}

	ctx := context.Background()
	_, err := pipeline.Execute(ctx, []byte("test"))
	if err == nil {
		t.Error("expected error for unknown operation")
	}
}

func TestPipelineStepErrorWraps(t *testing.T) {
	pipeline := &Pipeline{
		Operations: []OperationConfig{
			{Name: "chacha20", Parameters: map[string]interface{}{"key": "00"}},
		},
	}

	_, err := pipeline.Execute(context.Background(), []byte("test"))
	if !errors.Is(err, ErrInvalidKeyMaterial) {
		t.Fatalf("expected wrapped ErrInvalidKeyMaterial, got %v", err)
	}
}

func TestPipelineCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pipeline := &Pipeline{
		Operations: []OperationConfig{{Name: "decimal_encode"}},
	}
	_, err := pipeline.Execute(ctx, []byte("test"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestPipelineEmptyOperations(t *testing.T) {
	pipeline := &Pipeline{
		Operations: []OperationConfig{},
		Reversible: true,
	}

	ctx := context.Background()
	input := []byte("test")
	result, err := pipeline.Execute(ctx, input)
	if err != nil {
		t.Fatalf("empty pipeline should not fail: %v", err)
	}

	if string(result) != string(input) {
		t.Errorf("empty pipeline should return input unchanged")
	}
}

package onnx

import (
	"encoding/binary"

	"github.com/x448/float16"
)

var f16LookupTable [65536]float32

func init() {
	// precompute float16 lookup table for faster conversion to float32
	for i := range f16LookupTable {
		f16 := float16.Frombits(uint16(i))
		f16LookupTable[i] = f16.Float32()
	}
}

// float32ToHalfBytes encodes values as little endian IEEE 754 half precision
// as expected by a float16 ONNX tensor
func float32ToHalfBytes(values []float32) []byte {

	buf := make([]byte, len(values)*2)

	for i, v := range values {
		binary.LittleEndian.PutUint16(buf[i*2:], float16.Fromfloat32(v).Bits())
	}

	return buf
}

// halfBytesToFloat32 decodes little endian half precision values
func halfBytesToFloat32(buf []byte) []float32 {

	out := make([]float32, len(buf)/2)

	for i := range out {
		out[i] = f16LookupTable[binary.LittleEndian.Uint16(buf[i*2:])]
	}

	return out
}

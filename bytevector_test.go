// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package classfile

import (
	"bytes"
	"testing"
)

func TestByteVectorPuts(t *testing.T) {
	v := NewByteVector(0)
	v.PutByte(0xFF).PutShort(0x1234).Put12(0xAB, 0xCDEF).PutInt(0x01020304)

	want := []byte{0xFF, 0x12, 0x34, 0xAB, 0xCD, 0xEF, 0x01, 0x02, 0x03, 0x04}
	if !bytes.Equal(v.Bytes(), want) {
		t.Fatalf("Bytes() = % x, want % x", v.Bytes(), want)
	}
}

func TestByteVectorGrowsPastInitialCapacity(t *testing.T) {
	v := NewByteVector(2)
	for i := 0; i < 100; i++ {
		v.PutByte(i)
	}
	if v.Len() != 100 {
		t.Fatalf("Len() = %d, want 100", v.Len())
	}
	for i := 0; i < 100; i++ {
		if v.Bytes()[i] != byte(i) {
			t.Fatalf("byte %d = %d, want %d", i, v.Bytes()[i], i)
		}
	}
}

func TestByteVectorOverwrite(t *testing.T) {
	v := NewByteVector(0)
	v.PutShort(0).PutInt(0)
	v.OverwriteShort(0, 0xBEEF)
	v.OverwriteInt(2, -1)

	want := []byte{0xBE, 0xEF, 0xFF, 0xFF, 0xFF, 0xFF}
	if !bytes.Equal(v.Bytes(), want) {
		t.Fatalf("Bytes() = % x, want % x", v.Bytes(), want)
	}
}

func TestByteVectorInsertZeros(t *testing.T) {
	v := NewByteVector(0)
	v.PutByte(0xAA).PutByte(0xBB).PutByte(0xCC).PutByte(0xDD)
	v.InsertZeros(2, 3)

	want := []byte{0xAA, 0xBB, 0x00, 0x00, 0x00, 0xCC, 0xDD}
	if !bytes.Equal(v.Bytes(), want) {
		t.Fatalf("Bytes() = % x, want % x", v.Bytes(), want)
	}
	if v.Len() != len(want) {
		t.Fatalf("Len() = %d, want %d", v.Len(), len(want))
	}
}

func TestByteVectorInsertZerosAtEnd(t *testing.T) {
	v := NewByteVector(0)
	v.PutByte(0x01).PutByte(0x02)
	v.InsertZeros(2, 2)

	want := []byte{0x01, 0x02, 0x00, 0x00}
	if !bytes.Equal(v.Bytes(), want) {
		t.Fatalf("Bytes() = % x, want % x", v.Bytes(), want)
	}
}

func TestModifiedUTF8RoundTrip(t *testing.T) {
	tests := []string{
		"",
		"hello world",
		"has a \x00 null byte",
		"emoji \U0001F600 surrogate pair",
		"snowman ☃",
	}
	for _, s := range tests {
		encoded, err := EncodeModifiedUTF8(s)
		if err != nil {
			t.Fatalf("EncodeModifiedUTF8(%q): %v", s, err)
		}
		if got := DecodeModifiedUTF8(encoded); got != s {
			t.Errorf("round trip %q -> % x -> %q", s, encoded, got)
		}
	}
}

// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package classfile

// Fuzz drives a Reader over data the way a go-fuzz harness would, reporting
// 1 for input it accepted and 0 for anything it rejected or on which the
// driven visitor panicked. The legacy go-fuzz entry-point shape is kept
// even though dvyukov/go-fuzz itself is no longer wired into go.mod (see
// DESIGN.md).
func Fuzz(data []byte) (score int) {
	defer func() {
		if recover() != nil {
			score = 0
		}
	}()
	r := NewBytes(data, ReaderOptions{})
	if err := r.Accept(&BaseClassVisitor{}, ExpandFrames); err != nil {
		return 0
	}
	return 1
}
